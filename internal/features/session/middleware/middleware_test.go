package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monad-deathmatch-backend/internal/features/session/middleware"
	"monad-deathmatch-backend/internal/features/session/models"
	sessionredis "monad-deathmatch-backend/internal/features/session/repository/redis"
	"monad-deathmatch-backend/internal/features/session/service"
)

const wallet = "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"

type noopLinker struct{}

func (noopLinker) LinkSocial(context.Context, string, models.SocialIdentity) error { return nil }

func setup(t *testing.T, api bool) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc := service.NewService(
		service.NewMountRegistry("/home", "/", time.Minute, nil),
		sessionredis.NewIdentityCache(client, time.Hour),
		sessionredis.NewSocialSessionStore(client),
		noopLinker{},
		nil,
		service.Options{SocialSessionTTL: time.Hour},
		nil,
	)
	resp, err := svc.CreateSocialSession(context.Background(), models.SocialSessionRequest{
		Provider: "twitter", ID: "42", Username: "monad_fan",
	})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/home", middleware.RequireDualIdentity(svc, "/", api), func(c *gin.Context) {
		social, _ := middleware.Social(c)
		c.JSON(http.StatusOK, gin.H{"wallet": middleware.Wallet(c), "social": social.Username})
	})
	return r, resp.Token
}

func request(r *gin.Engine, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireDualIdentity_PageRedirects(t *testing.T) {
	r, token := setup(t, false)

	w := request(r, &http.Cookie{Name: models.CookieSocialSession, Value: token})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = request(r, &http.Cookie{Name: models.CookieWallet, Value: wallet})
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestRequireDualIdentity_APIUnauthorized(t *testing.T) {
	r, _ := setup(t, true)

	w := request(r, &http.Cookie{Name: models.CookieWallet, Value: wallet})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "IDENTITY_ABSENT")
}

func TestRequireDualIdentity_BothPresentPasses(t *testing.T) {
	r, token := setup(t, false)

	w := request(r,
		&http.Cookie{Name: models.CookieSocialSession, Value: token},
		&http.Cookie{Name: models.CookieWallet, Value: wallet},
	)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "0x71c7656ec7ab88b098defb751b7401b5f6d8976f")
	assert.Contains(t, w.Body.String(), "monad_fan")
}
