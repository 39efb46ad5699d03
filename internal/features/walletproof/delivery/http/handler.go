package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"monad-deathmatch-backend/internal/common/errors"
	"monad-deathmatch-backend/internal/common/middleware"
	"monad-deathmatch-backend/internal/common/validation"
	"monad-deathmatch-backend/internal/features/walletproof/models"
	"monad-deathmatch-backend/internal/features/walletproof/service"
)

type Handler struct {
	service *service.Service
}

func NewHandler(service *service.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	proof := router.Group("/wallet-proof")
	{
		proof.GET("/payload", h.GeneratePayload)
		proof.POST("/verify", h.VerifyProof)
		proof.GET("/status", h.CheckVerification)
	}
}

// @Summary Get wallet proof payload
// @Description Issues a single-use challenge bound to this device
// @Tags wallet-proof
// @Produce json
// @Success 200 {object} models.PayloadResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /wallet-proof/payload [get]
func (h *Handler) GeneratePayload(c *gin.Context) {
	resp, err := h.service.GeneratePayload(c.Request.Context(), middleware.GetDeviceID(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Verify wallet proof
// @Description Verifies a personal_sign signature over the issued challenge
// @Tags wallet-proof
// @Accept json
// @Produce json
// @Param proof body models.VerifyRequest true "Signed challenge"
// @Success 200 {object} models.VerifyResponse
// @Failure 400 {object} middleware.ErrorResponse "Invalid request"
// @Failure 401 {object} middleware.ErrorResponse "Invalid proof"
// @Router /wallet-proof/verify [post]
func (h *Handler) VerifyProof(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, errors.NewValidationError("body", err.Error()))
		return
	}

	if err := h.service.VerifyProof(c.Request.Context(), middleware.GetDeviceID(c), &req); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.VerifyResponse{
		Success: true,
		Message: "Successfully verified",
	})
}

// @Summary Check wallet proof status
// @Tags wallet-proof
// @Produce json
// @Param address query string true "Wallet address"
// @Success 200 {object} map[string]bool "Verification status"
// @Router /wallet-proof/status [get]
func (h *Handler) CheckVerification(c *gin.Context) {
	address := c.Query("address")
	if !validation.IsAddress(address) {
		middleware.AbortWithError(c, errors.NewValidationError("address", "must be a wallet address"))
		return
	}

	verified, err := h.service.IsVerified(c.Request.Context(), middleware.GetDeviceID(c), address)
	if err != nil {
		middleware.AbortWithError(c, errors.NewCacheError("get wallet proof", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"is_verified": verified,
	})
}
