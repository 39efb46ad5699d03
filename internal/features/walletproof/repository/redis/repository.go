package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"monad-deathmatch-backend/internal/features/walletproof/models"
	"monad-deathmatch-backend/internal/features/walletproof/repository"
)

const (
	keyPrefixChallenge = "wallet_proof:payload:"
	keyPrefixProof     = "wallet_proof:proof:"
)

type Repository struct {
	client redis.Cmdable
}

func NewRepository(client redis.Cmdable) repository.Repository {
	return &Repository{client: client}
}

func proofKey(deviceID, address string) string {
	return keyPrefixProof + deviceID + ":" + strings.ToLower(address)
}

func (r *Repository) SaveChallenge(ctx context.Context, challenge *models.Challenge, ttl time.Duration) error {
	data, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefixChallenge+challenge.Payload, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save challenge: %w", err)
	}
	return nil
}

func (r *Repository) ConsumeChallenge(ctx context.Context, payload string) (*models.Challenge, error) {
	// GETDEL: a payload can be redeemed exactly once
	data, err := r.client.GetDel(ctx, keyPrefixChallenge+payload).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	var challenge models.Challenge
	if err := json.Unmarshal(data, &challenge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}
	return &challenge, nil
}

func (r *Repository) SaveProof(ctx context.Context, record *models.ProofRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal proof record: %w", err)
	}
	return r.client.Set(ctx, proofKey(record.DeviceID, record.Address), data, ttl).Err()
}

func (r *Repository) GetProof(ctx context.Context, deviceID, address string) (*models.ProofRecord, error) {
	data, err := r.client.Get(ctx, proofKey(deviceID, address)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proof: %w", err)
	}

	var record models.ProofRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal proof record: %w", err)
	}
	return &record, nil
}
