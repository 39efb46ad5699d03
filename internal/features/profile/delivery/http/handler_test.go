package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monad-deathmatch-backend/internal/common/cache"
	"monad-deathmatch-backend/internal/common/middleware"
	profilehttp "monad-deathmatch-backend/internal/features/profile/delivery/http"
	"monad-deathmatch-backend/internal/features/profile/models"
	"monad-deathmatch-backend/internal/features/profile/repository"
	"monad-deathmatch-backend/internal/features/profile/service"
	sessionmodels "monad-deathmatch-backend/internal/features/session/models"
)

type singleUserRepo struct {
	user *models.User
}

func (r *singleUserRepo) GetByWallet(context.Context, string) (*models.User, error) {
	if r.user == nil {
		return nil, repository.ErrUserNotFound
	}
	return r.user, nil
}

func (r *singleUserRepo) Create(_ context.Context, u *models.User) error {
	u.ID = 1
	r.user = u
	return nil
}

func (r *singleUserRepo) UpdateSocial(_ context.Context, u *models.User) error {
	r.user = u
	return nil
}

func (r *singleUserRepo) List(context.Context) ([]*models.User, error) {
	if r.user == nil {
		return nil, nil
	}
	return []*models.User{r.user}, nil
}

func (r *singleUserRepo) ParticipantStats(context.Context, int64) ([]models.ParticipantStat, error) {
	return nil, nil
}

func (r *singleUserRepo) AddParticipants(context.Context, int64, []string) (int64, error) {
	return 0, nil
}

const cookieWallet = "0x71c7656ec7ab88b098defb751b7401b5f6d8976f"

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc := service.NewService(&singleUserRepo{}, cache.NewCacheService(client), time.Minute, 1)
	guard := func(c *gin.Context) {
		c.Set(middleware.ContextKeyWallet, cookieWallet)
		c.Set(sessionmodels.ContextKeySocial, sessionmodels.SocialIdentity{Provider: "twitter", ID: "42", Username: "monad_fan"})
		c.Next()
	}

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	profilehttp.NewHandler(svc).RegisterRoutes(r.Group("/api"), guard)
	return r
}

func post(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestConnectTwitter_ThenListed(t *testing.T) {
	r := newRouter(t)

	w := post(r, "/api/user/connect-twitter", map[string]string{"walletAddress": "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.ConnectTwitterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "monad_fan", *resp.Data.TwitterUsername)

	list := httptest.NewRecorder()
	r.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/api/user/get-users", nil))
	require.Equal(t, http.StatusOK, list.Code)

	var users []models.UserListItem
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, cookieWallet, users[0].WalletAddress)
}

func TestConnectTwitter_RejectsForeignWallet(t *testing.T) {
	r := newRouter(t)

	w := post(r, "/api/user/connect-twitter", map[string]string{"walletAddress": "0x00000000000000000000000000000000000000aa"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestConnectTwitter_RejectsBadAddress(t *testing.T) {
	r := newRouter(t)

	w := post(r, "/api/user/connect-twitter", map[string]string{"walletAddress": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParticipantStats_EmptyList(t *testing.T) {
	r := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/participant-stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"participants":[]}`, w.Body.String())
}
