package cache_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monad-deathmatch-backend/internal/common/cache"
)

func newCache(t *testing.T) (*cache.CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewCacheService(client), mr
}

func TestGetOrSet_CallsSetterOnce(t *testing.T) {
	svc, _ := newCache(t)
	ctx := context.Background()

	calls := 0
	setter := func() (interface{}, error) {
		calls++
		return []string{"0xabc", "0xdef"}, nil
	}

	var first, second []string
	require.NoError(t, svc.GetOrSet(ctx, cache.KeyProfiles, &first, time.Minute, setter))
	require.NoError(t, svc.GetOrSet(ctx, cache.KeyProfiles, &second, time.Minute, setter))

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"0xabc", "0xdef"}, second)
}

func TestGetOrSet_SetterErrorPropagates(t *testing.T) {
	svc, _ := newCache(t)

	var out []string
	err := svc.GetOrSet(context.Background(), "k", &out, time.Minute, func() (interface{}, error) {
		return nil, errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
}

func TestInvalidateProfiles(t *testing.T) {
	svc, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, cache.KeyProfiles, []int{1}, time.Minute))
	require.NoError(t, svc.Set(ctx, fmt.Sprintf(cache.KeyParticipantStats, 1), []int{1}, time.Minute))
	require.NoError(t, svc.Set(ctx, "unrelated", 1, time.Minute))

	require.NoError(t, svc.InvalidateProfiles(ctx))

	assert.False(t, mr.Exists(cache.KeyProfiles))
	assert.False(t, mr.Exists(fmt.Sprintf(cache.KeyParticipantStats, 1)))
	assert.True(t, mr.Exists("unrelated"))
}
