package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "monad-deathmatch-backend/internal/common/errors"
	"monad-deathmatch-backend/internal/features/session/models"
	sessionredis "monad-deathmatch-backend/internal/features/session/repository/redis"
	"monad-deathmatch-backend/internal/features/session/service"
)

type fakeLinker struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeLinker) LinkSocial(context.Context, string, models.SocialIdentity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fakeVerifier struct{ verified map[string]bool }

func (f fakeVerifier) IsVerified(_ context.Context, deviceID, wallet string) (bool, error) {
	return f.verified[deviceID+"|"+wallet], nil
}

type fixture struct {
	svc    *service.Service
	linker *fakeLinker
	token  string
}

func newFixture(t *testing.T, verifier service.WalletVerifier) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	linker := &fakeLinker{}
	svc := service.NewService(
		service.NewMountRegistry("/home", "/", time.Minute, nil),
		sessionredis.NewIdentityCache(client, time.Hour),
		sessionredis.NewSocialSessionStore(client),
		linker,
		verifier,
		service.Options{SocialSessionTTL: time.Hour},
		nil,
	)

	resp, err := svc.CreateSocialSession(context.Background(), models.SocialSessionRequest{
		Provider: "twitter", ID: "42", Username: "@monad_fan",
	})
	require.NoError(t, err)

	return fixture{svc: svc, linker: linker, token: resp.Token}
}

func bothPresent(path string) models.EvaluateRequest {
	return models.EvaluateRequest{
		Wallet:      models.Present(wallet),
		Social:      models.Signal{State: models.SignalPresent},
		CurrentPath: path,
	}
}

func TestService_UnknownMount(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Evaluate(context.Background(), "nope", bothPresent("/"), service.Credentials{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMountNotFound))
}

func TestService_AuthorizesAndLinksOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	mount := f.svc.OpenMount("dev-1")
	creds := service.Credentials{SocialToken: f.token}

	d, err := f.svc.Evaluate(ctx, mount.MountID, bothPresent("/"), creds)
	require.NoError(t, err)
	assert.True(t, d.Authorized)
	assert.Equal(t, "/home", d.RedirectTarget)
	require.NotNil(t, d.Session.SocialIdentity)
	assert.Equal(t, "monad_fan", d.Session.SocialIdentity.Username)

	d, err = f.svc.Evaluate(ctx, mount.MountID, bothPresent("/home"), creds)
	require.NoError(t, err)
	assert.True(t, d.Authorized)
	assert.Empty(t, d.RedirectTarget)
	assert.Equal(t, 1, f.linker.calls)

	m, err := f.svc.Mounts().Get(mount.MountID)
	require.NoError(t, err)
	w, ok := m.AuthorizedWallet()
	assert.True(t, ok)
	assert.Equal(t, "0x71c7656ec7ab88b098defb751b7401b5f6d8976f", w)
}

func TestService_LinkFailureDoesNotBlockGate(t *testing.T) {
	f := newFixture(t, nil)
	f.linker.err = errors.New("db down")
	ctx := context.Background()
	mount := f.svc.OpenMount("dev-1")
	creds := service.Credentials{SocialToken: f.token}

	d, err := f.svc.Evaluate(ctx, mount.MountID, bothPresent("/home"), creds)
	require.NoError(t, err)
	assert.True(t, d.Authorized)

	_, err = f.svc.Evaluate(ctx, mount.MountID, bothPresent("/home"), creds)
	require.NoError(t, err)
	assert.Equal(t, 2, f.linker.calls, "failed link is retried")
}

func TestService_CachedWalletSurvivesReload(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	creds := service.Credentials{SocialToken: f.token}

	first := f.svc.OpenMount("dev-1")
	_, err := f.svc.Evaluate(ctx, first.MountID, bothPresent("/home"), creds)
	require.NoError(t, err)
	f.svc.CloseMount(first.MountID)

	reload := f.svc.OpenMount("dev-1")
	d, err := f.svc.Evaluate(ctx, reload.MountID, models.EvaluateRequest{
		Wallet:      models.Pending(),
		Social:      models.Signal{State: models.SignalPresent},
		CurrentPath: "/home",
	}, creds)
	require.NoError(t, err)
	assert.Equal(t, wallet, d.MirrorWallet)
	assert.True(t, d.ProvisionalWallet)
	assert.True(t, d.Authorized)
	assert.Empty(t, d.RedirectTarget)

	require.NoError(t, f.svc.Disconnect(ctx, "dev-1", f.token))
	other := f.svc.OpenMount("dev-1")
	d, err = f.svc.Evaluate(ctx, other.MountID, models.EvaluateRequest{
		Wallet: models.Pending(),
		Social: models.Signal{State: models.SignalPresent},
	}, creds)
	require.NoError(t, err)
	assert.Empty(t, d.MirrorWallet)
	assert.Equal(t, models.OutcomePending, d.Outcome)
}

func TestService_InvalidSocialTokenDenies(t *testing.T) {
	f := newFixture(t, nil)
	mount := f.svc.OpenMount("dev-1")

	d, err := f.svc.Evaluate(context.Background(), mount.MountID, bothPresent("/home"), service.Credentials{SocialToken: "forged"})
	require.NoError(t, err)
	assert.False(t, d.Authorized)
	assert.Equal(t, "/", d.RedirectTarget)
	assert.Zero(t, f.linker.calls)
}

func TestService_UnprovenWalletDenied(t *testing.T) {
	f := newFixture(t, fakeVerifier{verified: map[string]bool{"dev-2|" + wallet: true}})
	ctx := context.Background()

	m1 := f.svc.OpenMount("dev-1")
	d, err := f.svc.Evaluate(ctx, m1.MountID, bothPresent("/home"), service.Credentials{SocialToken: f.token})
	require.NoError(t, err)
	assert.False(t, d.Authorized)

	m2 := f.svc.OpenMount("dev-2")
	d, err = f.svc.Evaluate(ctx, m2.MountID, bothPresent("/home"), service.Credentials{SocialToken: f.token})
	require.NoError(t, err)
	assert.True(t, d.Authorized)
}

func TestService_RejectsBadTwitterUsername(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.CreateSocialSession(context.Background(), models.SocialSessionRequest{
		Provider: "twitter", ID: "1", Username: "not a handle!",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}
