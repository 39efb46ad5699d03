package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"monad-deathmatch-backend/internal/features/betlabel/repository"
)

const keyPrefixUserBets = "userBets:"

type Repository struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRepository returns a hash-per-bettor store. A non-positive ttl keeps
// labels forever.
func NewRepository(client redis.Cmdable, ttl time.Duration) repository.Store {
	return &Repository{client: client, ttl: ttl}
}

func key(bettor string) string {
	return keyPrefixUserBets + strings.ToLower(bettor)
}

func (r *Repository) Put(ctx context.Context, bettor, participant, label string) error {
	k := key(bettor)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, strings.ToLower(participant), label)
		if r.ttl > 0 {
			pipe.Expire(ctx, k, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save bet label: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, bettor, participant string) (string, bool, error) {
	label, err := r.client.HGet(ctx, key(bettor), strings.ToLower(participant)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get bet label: %w", err)
	}
	return label, true, nil
}

func (r *Repository) All(ctx context.Context, bettor string) (map[string]string, error) {
	labels, err := r.client.HGetAll(ctx, key(bettor)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bet labels: %w", err)
	}
	return labels, nil
}
