package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"monad-deathmatch-backend/internal/features/session/models"
	"monad-deathmatch-backend/internal/features/session/repository"
)

const (
	keyPrefixWallet = "identity:wallet:"
	keyPrefixSocial = "social:session:"
)

type identityCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewIdentityCache(client redis.Cmdable, ttl time.Duration) repository.IdentityCache {
	return &identityCache{client: client, ttl: ttl}
}

// GetWallet returns "" when nothing is cached.
func (r *identityCache) GetWallet(ctx context.Context, deviceID string) (string, error) {
	if deviceID == "" {
		return "", nil
	}
	wallet, err := r.client.Get(ctx, keyPrefixWallet+deviceID).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get cached wallet: %w", err)
	}
	return wallet, nil
}

func (r *identityCache) SetWallet(ctx context.Context, deviceID, wallet string) error {
	if err := r.client.Set(ctx, keyPrefixWallet+deviceID, wallet, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache wallet: %w", err)
	}
	return nil
}

func (r *identityCache) ClearWallet(ctx context.Context, deviceID string) error {
	if err := r.client.Del(ctx, keyPrefixWallet+deviceID).Err(); err != nil {
		return fmt.Errorf("failed to clear cached wallet: %w", err)
	}
	return nil
}

type socialSessions struct {
	client redis.Cmdable
}

func NewSocialSessionStore(client redis.Cmdable) repository.SocialSessionStore {
	return &socialSessions{client: client}
}

func (r *socialSessions) Create(ctx context.Context, identity models.SocialIdentity, ttl time.Duration) (string, error) {
	data, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("failed to marshal social identity: %w", err)
	}

	token := uuid.New().String()
	if err := r.client.Set(ctx, keyPrefixSocial+token, data, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to save social session: %w", err)
	}
	return token, nil
}

func (r *socialSessions) Get(ctx context.Context, token string) (*models.SocialIdentity, error) {
	if token == "" {
		return nil, nil
	}
	data, err := r.client.Get(ctx, keyPrefixSocial+token).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get social session: %w", err)
	}

	var identity models.SocialIdentity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal social session: %w", err)
	}
	return &identity, nil
}

func (r *socialSessions) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, keyPrefixSocial+token).Err()
}
