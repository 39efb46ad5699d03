package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"monad-deathmatch-backend/internal/common/errors"
	"monad-deathmatch-backend/internal/common/middleware"
	"monad-deathmatch-backend/internal/features/profile/models"
	"monad-deathmatch-backend/internal/features/profile/service"
	sessionmw "monad-deathmatch-backend/internal/features/session/middleware"
	sessionmodels "monad-deathmatch-backend/internal/features/session/models"
)

type Handler struct {
	service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// RegisterRoutes mounts the profile endpoints. guard protects the write.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, guard gin.HandlerFunc) {
	router.GET("/participant-stats", h.ParticipantStats)

	user := router.Group("/user")
	{
		user.GET("/get-users", h.GetUsers)
		user.POST("/connect-twitter", guard, h.ConnectTwitter)
	}
}

// @Summary Participant statistics
// @Description Mirrored pool participants joined with their linked profiles, newest first
// @Tags profile
// @Produce json
// @Success 200 {object} models.ParticipantStatsResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /participant-stats [get]
func (h *Handler) ParticipantStats(c *gin.Context) {
	stats, err := h.service.ParticipantStats(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ParticipantStatsResponse{Success: true, Participants: stats})
}

// @Summary List users
// @Tags profile
// @Produce json
// @Success 200 {array} models.UserListItem
// @Router /user/get-users [get]
func (h *Handler) GetUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// @Summary Link a Twitter account to a wallet
// @Description Updates the wallet's row when it exists, otherwise creates it. The wallet must match the caller's walletAddress cookie.
// @Tags profile
// @Accept json
// @Produce json
// @Param request body models.ConnectTwitterRequest true "Link request"
// @Success 200 {object} models.ConnectTwitterResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Router /user/connect-twitter [post]
func (h *Handler) ConnectTwitter(c *gin.Context) {
	var req models.ConnectTwitterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, errors.NewValidationError("body", err.Error()))
		return
	}

	if w := sessionmw.Wallet(c); w != "" && !strings.EqualFold(w, req.WalletAddress) {
		middleware.AbortWithError(c, errors.NewForbiddenError("wallet does not match the session"))
		return
	}

	var social *sessionmodels.SocialIdentity
	if s, ok := sessionmw.Social(c); ok {
		social = &s
	}

	user, err := h.service.ConnectTwitter(c.Request.Context(), req, social)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ConnectTwitterResponse{Success: true, Data: user})
}
