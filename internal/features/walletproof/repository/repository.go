package repository

import (
	"context"
	"time"

	"monad-deathmatch-backend/internal/features/walletproof/models"
)

type Repository interface {
	// SaveChallenge stores an issued payload until ttl.
	SaveChallenge(ctx context.Context, challenge *models.Challenge, ttl time.Duration) error

	// ConsumeChallenge returns and deletes the payload. nil when unknown.
	ConsumeChallenge(ctx context.Context, payload string) (*models.Challenge, error)

	// SaveProof сохраняет запись о верификации
	SaveProof(ctx context.Context, record *models.ProofRecord, ttl time.Duration) error

	// GetProof returns nil when the device never proved the wallet.
	GetProof(ctx context.Context, deviceID, address string) (*models.ProofRecord, error)
}
