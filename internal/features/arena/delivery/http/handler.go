package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"monad-deathmatch-backend/internal/common/errors"
	"monad-deathmatch-backend/internal/common/middleware"
	"monad-deathmatch-backend/internal/features/arena/delivery/ws"
	"monad-deathmatch-backend/internal/features/arena/models"
	"monad-deathmatch-backend/internal/features/arena/service"
	sessionmw "monad-deathmatch-backend/internal/features/session/middleware"
)

type Handler struct {
	coordinator *service.Coordinator
	viewer      *service.Viewer
	hub         *ws.Hub
}

func NewHandler(coordinator *service.Coordinator, viewer *service.Viewer, hub *ws.Hub) *Handler {
	return &Handler{
		coordinator: coordinator,
		viewer:      viewer,
		hub:         hub,
	}
}

// RegisterRoutes mounts the arena API. guard protects the per-wallet reads;
// mount routes rely on the mount's own gate decision.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, guard gin.HandlerFunc) {
	arena := router.Group("/arena")
	{
		arena.GET("/view", guard, h.GetView)
		arena.GET("/bets/labels", guard, h.GetLabels)
		arena.GET("/stream", h.Stream)

		mounts := arena.Group("/mounts/:id")
		mounts.POST("/join", h.Join)
		mounts.POST("/bets", h.PlaceBet)
		mounts.GET("/actions", h.GetActions)
	}
}

// @Summary Arena view
// @Description Pool state joined with profiles and the caller's bet labels
// @Tags arena
// @Produce json
// @Success 200 {object} reconcile.Model
// @Failure 401 {object} middleware.ErrorResponse
// @Router /arena/view [get]
func (h *Handler) GetView(c *gin.Context) {
	model, err := h.viewer.Build(c.Request.Context(), sessionmw.Wallet(c))
	if err != nil {
		middleware.AbortWithError(c, errors.Wrap(err, errors.ErrCodeInternal, "Failed to build arena view"))
		return
	}
	c.JSON(http.StatusOK, model)
}

// @Summary Recorded bet labels
// @Tags arena
// @Produce json
// @Success 200 {object} models.LabelsResponse
// @Router /arena/bets/labels [get]
func (h *Handler) GetLabels(c *gin.Context) {
	wallet := sessionmw.Wallet(c)
	labels, err := h.viewer.Labels(c.Request.Context(), wallet)
	if err != nil {
		middleware.AbortWithError(c, errors.NewCacheError("read bet labels", err))
		return
	}
	c.JSON(http.StatusOK, models.LabelsResponse{Bettor: wallet, UserBets: labels})
}

// @Summary Join the arena
// @Description Checks join preconditions and submits joinPool. Poll the actions endpoint for the confirmation.
// @Tags arena
// @Produce json
// @Param id path string true "Mount ID"
// @Success 202 {object} models.ActionStatus
// @Failure 409 {object} middleware.ErrorResponse "Join already in progress"
// @Failure 422 {object} middleware.ErrorResponse "Precondition failed"
// @Failure 502 {object} middleware.ErrorResponse "Write rejected"
// @Router /arena/mounts/{id}/join [post]
func (h *Handler) Join(c *gin.Context) {
	status, err := h.coordinator.Join(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, status)
}

// @Summary Place a bet
// @Tags arena
// @Accept json
// @Produce json
// @Param id path string true "Mount ID"
// @Param bet body models.BetRequest true "Bet"
// @Success 202 {object} models.ActionStatus
// @Failure 409 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse
// @Failure 502 {object} middleware.ErrorResponse
// @Router /arena/mounts/{id}/bets [post]
func (h *Handler) PlaceBet(c *gin.Context) {
	var req models.BetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, errors.NewValidationError("body", err.Error()))
		return
	}

	status, err := h.coordinator.PlaceBet(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, status)
}

// @Summary Action states of a mount
// @Tags arena
// @Produce json
// @Param id path string true "Mount ID"
// @Success 200 {object} models.ActionsResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /arena/mounts/{id}/actions [get]
func (h *Handler) GetActions(c *gin.Context) {
	resp, err := h.coordinator.Status(c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Live arena updates
// @Description Websocket. Sends the public view after every poll.
// @Tags arena
// @Router /arena/stream [get]
func (h *Handler) Stream(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}
