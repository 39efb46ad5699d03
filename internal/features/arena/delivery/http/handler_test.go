package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "monad-deathmatch-backend/internal/common/errors"
	"monad-deathmatch-backend/internal/common/middleware"
	arenahttp "monad-deathmatch-backend/internal/features/arena/delivery/http"
	"monad-deathmatch-backend/internal/features/arena/delivery/ws"
	"monad-deathmatch-backend/internal/features/arena/models"
	"monad-deathmatch-backend/internal/features/arena/reconcile"
	"monad-deathmatch-backend/internal/features/arena/service"
	betlabelredis "monad-deathmatch-backend/internal/features/betlabel/repository/redis"
	poolmodels "monad-deathmatch-backend/internal/features/pool/models"
	poolservice "monad-deathmatch-backend/internal/features/pool/service"
	profilemodels "monad-deathmatch-backend/internal/features/profile/models"
)

const wallet = "0x71c7656ec7ab88b098defb751b7401b5f6d8976f"

type oneMount struct{ ctx context.Context }

func (m oneMount) Context() context.Context          { return m.ctx }
func (m oneMount) AuthorizedWallet() (string, bool) { return wallet, true }

type mountSource struct{}

func (mountSource) Mount(id string) (service.Mount, error) {
	if id != "m1" {
		return nil, apperrors.NewMountNotFoundError(id)
	}
	return oneMount{ctx: context.Background()}, nil
}

func (mountSource) OnRelease(func(string)) {}

type poorReader struct{}

func (poorReader) PoolInfo(context.Context) poolmodels.Reading[poolmodels.PoolInfo] {
	return poolmodels.Reading[poolmodels.PoolInfo]{Present: true}
}
func (poorReader) Participants(context.Context) poolmodels.Reading[[]string] {
	return poolmodels.Reading[[]string]{Value: []string{"0x00000000000000000000000000000000000000AA"}, Present: true}
}
func (poorReader) BettingHistory(context.Context, string) poolmodels.Reading[[]poolmodels.Bet] {
	return poolmodels.Reading[[]poolmodels.Bet]{Present: true}
}
func (poorReader) MaxParticipants(context.Context) poolmodels.Reading[int64] {
	return poolmodels.Reading[int64]{Value: 10, Present: true}
}
func (poorReader) TotalPoolBets(context.Context) poolmodels.Reading[*big.Int] {
	return poolmodels.Reading[*big.Int]{Value: new(big.Int), Present: true}
}
func (poorReader) Balance(context.Context, string) poolmodels.Reading[*big.Int] {
	return poolmodels.Reading[*big.Int]{Value: big.NewInt(5e17), Present: true}
}
func (poorReader) Invalidate(...string) {}

type noWriter struct{}

func (noWriter) JoinPool(context.Context, string, *big.Int) (common.Hash, error) {
	panic("join must not be submitted")
}
func (noWriter) PlaceBet(context.Context, string, string, poolmodels.BetType, *big.Int) (common.Hash, error) {
	panic("bet must not be submitted")
}
func (noWriter) Await(context.Context, common.Hash) (*types.Receipt, error) { return nil, nil }
func (noWriter) CanSign(string) bool                                      { return true }

type snapshots struct{}

func (snapshots) Latest() poolservice.Snapshot { return poolservice.Snapshot{} }
func (snapshots) Poll(ctx context.Context) poolservice.Snapshot {
	return poolservice.Snapshot{PolledAt: time.Now(), Participants: poolmodels.Reading[[]string]{Present: true}}
}

type noProfiles struct{}

func (noProfiles) ProfilesByWallet(context.Context) (map[string]profilemodels.Profile, error) {
	return nil, nil
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	labels := betlabelredis.NewRepository(client, time.Hour)
	require.NoError(t, labels.Put(context.Background(), wallet, "0xAA", "Top 10"))

	rules := reconcile.Rules{EntryFee: decimal.NewFromInt(1), MinBet: decimal.RequireFromString("0.1"), MaxBet: decimal.NewFromInt(10), Symbol: "MON"}
	coord := service.NewCoordinator(mountSource{}, poorReader{}, noWriter{}, labels, nil, rules, time.Second, nil)
	viewer := service.NewViewer(snapshots{}, poorReader{}, labels, noProfiles{}, rules)

	guard := func(c *gin.Context) {
		c.Set(middleware.ContextKeyWallet, wallet)
		c.Next()
	}

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	arenahttp.NewHandler(coord, viewer, ws.NewHub("*", nil)).RegisterRoutes(r.Group("/api/v1"), guard)
	return r
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJoin_PreconditionIs422(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPost, "/api/v1/arena/mounts/m1/join", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient balance for entry fee (1 MON)")

	w = do(r, http.MethodGet, "/api/v1/arena/mounts/m1/actions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var actions models.ActionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &actions))
	assert.Equal(t, models.StateIdle, actions.Join.State)
	assert.Equal(t, uint64(1), actions.Join.Seq)
}

func TestBet_BelowMinimumIs422(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPost, "/api/v1/arena/mounts/m1/bets", map[string]string{
		"participant": "0x00000000000000000000000000000000000000aa",
		"amount":      "0.05",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Minimum bet is 0.1 MON")
}

func TestUnknownMountIs404(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPost, "/api/v1/arena/mounts/nope/join", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLabelsAndView(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodGet, "/api/v1/arena/bets/labels", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"bettor":"`+wallet+`","userBets":{"0xaa":"Top 10"}}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/arena/view", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var m reconcile.Model
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, wallet, m.Wallet)
	assert.False(t, m.CanJoin)
	assert.Equal(t, []reconcile.OrphanLabel{{Participant: "0xaa", Label: "Top 10"}}, m.OrphanLabels)
}
