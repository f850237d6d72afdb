package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"holidaysri-engine/internal/models"
	"holidaysri-engine/internal/services"
)

// UserHandler handles user-related endpoints
type UserHandler struct {
	userService *services.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

// GetProfile returns the current user's profile with wallet balances
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	userResponse := gin.H{
		"id":            user.ID,
		"email":         user.Email,
		"name":          user.Name,
		"hsc_balance":   user.HSCBalance,
		"hsg_balance":   user.HSGBalance,
		"hsd_balance":   user.HSDBalance,
		"payout_method": user.PayoutMethod(),
		"created_at":    user.CreatedAt,
	}
	if user.IsAdmin {
		userResponse["role"] = "admin"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    userResponse,
	})
}

// UpdatePayoutDetails stores bank or wallet details for claims
func (h *UserHandler) UpdatePayoutDetails(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.PayoutDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	user, err := h.userService.UpdatePayoutDetails(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"payout_method": user.PayoutMethod()},
	})
}

// GetTransactions returns the current user's wallet history
func (h *UserHandler) GetTransactions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	txs, pagination, err := h.userService.GetTransactions(
		c.Request.Context(),
		userID,
		queryInt(c, "page", 1),
		queryInt(c, "pageSize", 0),
	)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       txs,
		"pagination": pagination,
	})
}

func (h *UserHandler) isAdmin(ctx context.Context, userID uint) (bool, error) {
	return h.userService.IsAdmin(ctx, userID)
}
