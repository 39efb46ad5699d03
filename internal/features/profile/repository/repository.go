package repository

import (
	"context"
	"errors"

	"monad-deathmatch-backend/internal/features/profile/models"
)

var ErrUserNotFound = errors.New("user not found")

type Repository interface {
	// GetByWallet returns ErrUserNotFound when the wallet has no row.
	GetByWallet(ctx context.Context, wallet string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateSocial(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]*models.User, error)

	// ParticipantStats lists mirrored participants of a pool, newest first.
	ParticipantStats(ctx context.Context, poolID int64) ([]models.ParticipantStat, error)
	// AddParticipants mirrors chain joins; already known wallets are skipped.
	AddParticipants(ctx context.Context, poolID int64, wallets []string) (int64, error)
}
