package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"holidaysri-engine/internal/models"
	"holidaysri-engine/internal/services"
)

// ExchangeRateHandler serves and updates token exchange rates
type ExchangeRateHandler struct {
	rateService *services.ExchangeRateService
	logger      *zap.Logger
}

// NewExchangeRateHandler creates a new ExchangeRateHandler
func NewExchangeRateHandler(rateService *services.ExchangeRateService, logger *zap.Logger) *ExchangeRateHandler {
	return &ExchangeRateHandler{rateService: rateService, logger: logger}
}

// GetRates returns the current rates
func (h *ExchangeRateHandler) GetRates(c *gin.Context) {
	rates, err := h.rateService.Current(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rates,
	})
}

// UpdateRates replaces the rates (admin only)
func (h *ExchangeRateHandler) UpdateRates(c *gin.Context) {
	adminID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.UpdateExchangeRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	rates, err := h.rateService.Update(c.Request.Context(), adminID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rates,
	})
}
