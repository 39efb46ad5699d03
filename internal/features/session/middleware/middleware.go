package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"monad-deathmatch-backend/internal/common/errors"
	"monad-deathmatch-backend/internal/common/logger"
	common "monad-deathmatch-backend/internal/common/middleware"
	"monad-deathmatch-backend/internal/common/validation"
	sessionhttp "monad-deathmatch-backend/internal/features/session/delivery/http"
	"monad-deathmatch-backend/internal/features/session/models"
	"monad-deathmatch-backend/internal/features/session/service"
)

// RequireDualIdentity guards a route with both identities: a verified social
// session and the walletAddress cookie. Pages are redirected to publicRoute,
// API calls get 401.
func RequireDualIdentity(svc *service.Service, publicRoute string, api bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		wallet, _ := c.Cookie(models.CookieWallet)
		wallet = strings.TrimSpace(wallet)

		social, err := svc.SocialIdentity(c.Request.Context(), sessionhttp.Credentials(c))
		if err != nil {
			logger.Warn().Err(err).Msg("Social session lookup failed in route guard")
		}

		missing := ""
		switch {
		case social == nil:
			missing = "social"
		case !validation.IsAddress(wallet):
			missing = "wallet"
		}

		if missing != "" {
			if api {
				common.AbortWithError(c, errors.NewIdentityAbsentError(missing))
				return
			}
			c.Redirect(http.StatusFound, publicRoute)
			c.Abort()
			return
		}

		c.Set(common.ContextKeyWallet, strings.ToLower(wallet))
		c.Set(models.ContextKeySocial, *social)
		c.Next()
	}
}

// Wallet returns the wallet stored by RequireDualIdentity.
func Wallet(c *gin.Context) string {
	return c.GetString(common.ContextKeyWallet)
}

// Social returns the identity stored by RequireDualIdentity.
func Social(c *gin.Context) (models.SocialIdentity, bool) {
	v, ok := c.Get(models.ContextKeySocial)
	if !ok {
		return models.SocialIdentity{}, false
	}
	s, ok := v.(models.SocialIdentity)
	return s, ok
}
