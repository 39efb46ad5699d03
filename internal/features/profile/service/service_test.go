package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monad-deathmatch-backend/internal/common/cache"
	"monad-deathmatch-backend/internal/features/profile/models"
	"monad-deathmatch-backend/internal/features/profile/repository"
	"monad-deathmatch-backend/internal/features/profile/service"
	sessionmodels "monad-deathmatch-backend/internal/features/session/models"
)

type memRepo struct {
	mu           sync.Mutex
	users        map[string]*models.User
	participants []string
	listCalls    int
	failGet      error
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[string]*models.User)}
}

func (r *memRepo) GetByWallet(_ context.Context, wallet string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	u, ok := r.users[strings.ToLower(wallet)]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = int64(len(r.users) + 1)
	user.CreatedAt = time.Now()
	cp := *user
	r.users[strings.ToLower(user.WalletAddress)] = &cp
	return nil
}

func (r *memRepo) UpdateSocial(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[strings.ToLower(user.WalletAddress)]; !ok {
		return repository.ErrUserNotFound
	}
	cp := *user
	r.users[strings.ToLower(user.WalletAddress)] = &cp
	return nil
}

func (r *memRepo) List(context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	out := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memRepo) ParticipantStats(context.Context, int64) ([]models.ParticipantStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ParticipantStat, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, models.ParticipantStat{Address: p})
	}
	return out, nil
}

func (r *memRepo) AddParticipants(_ context.Context, _ int64, wallets []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants = append(r.participants, wallets...)
	return int64(len(wallets)), nil
}

func setup(t *testing.T) (*service.Service, *memRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := newMemRepo()
	return service.NewService(repo, cache.NewCacheService(client), time.Minute, 1), repo
}

const wallet = "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"

func TestConnectTwitter_InsertThenUpdate(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	user, err := svc.ConnectTwitter(ctx, models.ConnectTwitterRequest{
		WalletAddress:   wallet,
		TwitterID:       "42",
		TwitterUsername: "@monad_fan",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(wallet), user.WalletAddress)
	assert.Equal(t, "monad_fan", *user.TwitterUsername)

	_, err = svc.ConnectTwitter(ctx, models.ConnectTwitterRequest{
		WalletAddress:   strings.ToLower(wallet),
		TwitterUsername: "renamed",
	}, nil)
	require.NoError(t, err)

	assert.Len(t, repo.users, 1)
	assert.Equal(t, "renamed", *repo.users[strings.ToLower(wallet)].TwitterUsername)
}

func TestConnectTwitter_FallsBackToSessionIdentity(t *testing.T) {
	svc, _ := setup(t)

	user, err := svc.ConnectTwitter(context.Background(), models.ConnectTwitterRequest{WalletAddress: wallet},
		&sessionmodels.SocialIdentity{Provider: "twitter", ID: "42", Username: "monad_fan", ProfileImageURL: "https://pbs.twimg.com/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "42", *user.TwitterID)
	assert.Equal(t, "monad_fan", *user.TwitterUsername)
	assert.Equal(t, "https://pbs.twimg.com/a.png", *user.ProfileImageURL)
}

func TestConnectTwitter_LookupFailure(t *testing.T) {
	svc, repo := setup(t)
	repo.failGet = errors.New("db down")

	_, err := svc.ConnectTwitter(context.Background(), models.ConnectTwitterRequest{WalletAddress: wallet}, nil)
	assert.Error(t, err)
}

func TestLinkSocial_TelegramUsesUsernameColumn(t *testing.T) {
	svc, repo := setup(t)

	err := svc.LinkSocial(context.Background(), wallet, sessionmodels.SocialIdentity{Provider: "telegram", ID: "7", Username: "tg_user"})
	require.NoError(t, err)

	u := repo.users[strings.ToLower(wallet)]
	require.NotNil(t, u)
	assert.Nil(t, u.TwitterUsername)
	assert.Equal(t, "tg_user", *u.Username)

	profiles, err := svc.ProfilesByWallet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tg_user", profiles[strings.ToLower(wallet)].SocialUsername)
}

func TestListUsers_CachedUntilLinkChanges(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	_, err = svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)

	require.NoError(t, svc.LinkSocial(ctx, wallet, sessionmodels.SocialIdentity{Provider: "twitter", ID: "1", Username: "fan"}))

	users, err = svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 2, repo.listCalls)
}

func TestRecordParticipants_InvalidatesStats(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	stats, err := svc.ParticipantStats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats)

	require.NoError(t, svc.RecordParticipants(ctx, []string{"0xaa"}))

	stats, err = svc.ParticipantStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "0xaa", stats[0].Address)
}

func TestConnectTwitter_OmittedFieldsKeepExistingLink(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	_, err := svc.ConnectTwitter(ctx, models.ConnectTwitterRequest{
		WalletAddress:   wallet,
		TwitterID:       "42",
		TwitterUsername: "monad_fan",
		ProfileImageURL: "https://pbs.twimg.com/a.png",
	}, nil)
	require.NoError(t, err)

	_, err = svc.ConnectTwitter(ctx, models.ConnectTwitterRequest{WalletAddress: wallet},
		&sessionmodels.SocialIdentity{Provider: "telegram", ID: "7", Username: "tg_user"})
	require.NoError(t, err)

	stored := repo.users[strings.ToLower(wallet)]
	require.NotNil(t, stored.TwitterID)
	assert.Equal(t, "42", *stored.TwitterID)
	require.NotNil(t, stored.TwitterUsername)
	assert.Equal(t, "monad_fan", *stored.TwitterUsername)
	require.NotNil(t, stored.ProfileImageURL)
	assert.Equal(t, "https://pbs.twimg.com/a.png", *stored.ProfileImageURL)
}
