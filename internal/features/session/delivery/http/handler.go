package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"monad-deathmatch-backend/internal/common/errors"
	"monad-deathmatch-backend/internal/common/middleware"
	"monad-deathmatch-backend/internal/features/session/models"
	"monad-deathmatch-backend/internal/features/session/service"
)

type CookieOptions struct {
	WalletMaxAge int
	SocialMaxAge int
	Secure       bool
}

type Handler struct {
	service      *service.Service
	cookies      CookieOptions
	bridgeSecret string
}

func NewHandler(svc *service.Service, cookies CookieOptions, bridgeSecret string) *Handler {
	return &Handler{
		service:      svc,
		cookies:      cookies,
		bridgeSecret: bridgeSecret,
	}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	session := router.Group("/session")
	{
		session.POST("/mounts", h.OpenMount)
		session.POST("/mounts/:id/evaluate", h.Evaluate)
		session.DELETE("/mounts/:id", h.CloseMount)
		session.POST("/social", h.CreateSocialSession)
		session.POST("/disconnect", h.Disconnect)
	}
}

// Credentials collects the social credentials a request carries.
func Credentials(c *gin.Context) service.Credentials {
	token := c.GetHeader(models.HeaderSocialSession)
	if token == "" {
		token, _ = c.Cookie(models.CookieSocialSession)
	}
	return service.Credentials{
		InitData:    c.GetHeader(models.HeaderInitData),
		SocialToken: token,
	}
}

// @Summary Register a page load
// @Description Creates a mount with a fresh redirect latch. Call once per page load.
// @Tags session
// @Produce json
// @Success 201 {object} models.MountResponse
// @Router /session/mounts [post]
func (h *Handler) OpenMount(c *gin.Context) {
	resp := h.service.OpenMount(middleware.GetDeviceID(c))
	c.JSON(http.StatusCreated, resp)
}

// @Summary Evaluate the session gate
// @Description Folds the wallet and social provider states into an access decision. At most one redirect is returned per mount.
// @Tags session
// @Accept json
// @Produce json
// @Param id path string true "Mount ID"
// @Param signals body models.EvaluateRequest true "Provider states"
// @Success 200 {object} models.Decision
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse "Unknown mount"
// @Router /session/mounts/{id}/evaluate [post]
func (h *Handler) Evaluate(c *gin.Context) {
	var req models.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, errors.NewValidationError("body", err.Error()))
		return
	}

	decision, err := h.service.Evaluate(c.Request.Context(), c.Param("id"), req, Credentials(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	if decision.MirrorWallet != "" {
		h.setWalletCookie(c, decision.MirrorWallet)
	} else if decision.Session.WalletAddress != nil && !decision.ProvisionalWallet {
		h.setWalletCookie(c, *decision.Session.WalletAddress)
	}
	if w := decision.Session.Wallet(); w != "" {
		c.Set(middleware.ContextKeyWallet, w)
	}

	c.JSON(http.StatusOK, decision)
}

// @Summary Release a page load
// @Description Cancels pending confirmation waits bound to the mount.
// @Tags session
// @Param id path string true "Mount ID"
// @Success 204
// @Router /session/mounts/{id} [delete]
func (h *Handler) CloseMount(c *gin.Context) {
	h.service.CloseMount(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// @Summary Store a social sign-in
// @Description Called by the OAuth bridge. Returns an opaque token the browser presents as a cookie or X-Social-Session header.
// @Tags session
// @Accept json
// @Produce json
// @Param X-Bridge-Secret header string true "Shared bridge secret"
// @Param identity body models.SocialSessionRequest true "Verified identity"
// @Success 201 {object} models.SocialSessionResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Router /session/social [post]
func (h *Handler) CreateSocialSession(c *gin.Context) {
	secret := c.GetHeader(models.HeaderBridgeSecret)
	if h.bridgeSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.bridgeSecret)) != 1 {
		middleware.AbortWithError(c, errors.NewForbiddenError("invalid bridge secret"))
		return
	}

	var req models.SocialSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, errors.NewValidationError("body", err.Error()))
		return
	}

	resp, err := h.service.CreateSocialSession(c.Request.Context(), req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(models.CookieSocialSession, resp.Token, h.cookies.SocialMaxAge, "/", "", h.cookies.Secure, true)
	c.JSON(http.StatusCreated, resp)
}

// @Summary Disconnect
// @Description Forgets the cached wallet and the social session of this device.
// @Tags session
// @Success 204
// @Router /session/disconnect [post]
func (h *Handler) Disconnect(c *gin.Context) {
	creds := Credentials(c)
	if err := h.service.Disconnect(c.Request.Context(), middleware.GetDeviceID(c), creds.SocialToken); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(models.CookieWallet, "", -1, "/", "", h.cookies.Secure, false)
	c.SetCookie(models.CookieSocialSession, "", -1, "/", "", h.cookies.Secure, true)
	c.Status(http.StatusNoContent)
}

func (h *Handler) setWalletCookie(c *gin.Context, wallet string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(models.CookieWallet, wallet, h.cookies.WalletMaxAge, "/", "", h.cookies.Secure, false)
}
