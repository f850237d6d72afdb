package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"holidaysri-engine/internal/models"
	"holidaysri-engine/internal/services"
)

// EarningsHandler handles earnings listing, claims and conversion
type EarningsHandler struct {
	earningsService *services.EarningsService
	logger          *zap.Logger
}

// NewEarningsHandler creates a new EarningsHandler
func NewEarningsHandler(earningsService *services.EarningsService, logger *zap.Logger) *EarningsHandler {
	return &EarningsHandler{earningsService: earningsService, logger: logger}
}

// GetEarnings returns one page of the current user's earnings records
func (h *EarningsHandler) GetEarnings(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	records, pagination, err := h.earningsService.ListEarnings(
		c.Request.Context(),
		userID,
		models.EarningsStatus(c.Query("status")),
		queryInt(c, "page", 1),
		queryInt(c, "pageSize", 0),
	)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       records,
		"pagination": pagination,
	})
}

// GetSummary returns per-status totals for the current user
func (h *EarningsHandler) GetSummary(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	summary, err := h.earningsService.Summary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    summary,
	})
}

// Claim bundles completed records into a fiat claim request
func (h *EarningsHandler) Claim(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.ClaimEarningsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	claim, err := h.earningsService.Claim(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    claim,
	})
}

// Convert moves all completed earnings into the HSC balance
func (h *EarningsHandler) Convert(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	result, err := h.earningsService.ConvertToTokens(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// GetClaims returns the current user's claim requests
func (h *EarningsHandler) GetClaims(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	claims, err := h.earningsService.ListClaims(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    claims,
	})
}

// RecordEarning is called by the booking flow when a code is redeemed (admin only)
func (h *EarningsHandler) RecordEarning(c *gin.Context) {
	var req models.RecordEarningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	record, err := h.earningsService.RecordEarning(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    record,
	})
}

// FulfillClaim marks a claim paid (admin only)
func (h *EarningsHandler) FulfillClaim(c *gin.Context) {
	adminID, ok := requireUser(c)
	if !ok {
		return
	}

	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	claim, err := h.earningsService.FulfillClaim(c.Request.Context(), adminID, claimID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    claim,
	})
}
