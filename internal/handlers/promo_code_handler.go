package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"holidaysri-engine/internal/models"
	"holidaysri-engine/internal/services"
)

// PromoCodeHandler handles promo code issue, lookup and resale endpoints
type PromoCodeHandler struct {
	promoService *services.PromoCodeService
	logger       *zap.Logger
}

// NewPromoCodeHandler creates a new PromoCodeHandler
func NewPromoCodeHandler(promoService *services.PromoCodeService, logger *zap.Logger) *PromoCodeHandler {
	return &PromoCodeHandler{promoService: promoService, logger: logger}
}

// Issue creates a promo code for the current user
func (h *PromoCodeHandler) Issue(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.IssuePromoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	view, err := h.promoService.Issue(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    view,
	})
}

// GetMine returns every code the current user has owned
func (h *PromoCodeHandler) GetMine(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	codes, err := h.promoService.GetUserCodes(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    codes,
	})
}

// CheckAvailability reports whether a code or suffix can be claimed
func (h *PromoCodeHandler) CheckAvailability(c *gin.Context) {
	result, err := h.promoService.CheckAvailability(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// Quote applies a code's discount to a base price
func (h *PromoCodeHandler) Quote(c *gin.Context) {
	var req models.QuoteDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	quote, err := h.promoService.QuoteDiscount(c.Request.Context(), c.Param("code"), req.BasePrice)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    quote,
	})
}

// GetSales returns the resale history of a code owned by the current user
func (h *PromoCodeHandler) GetSales(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	sales, err := h.promoService.GetSales(c.Request.Context(), userID, c.Param("code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sales,
	})
}

// List puts the current user's code on the marketplace
func (h *PromoCodeHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.ListForResaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	view, err := h.promoService.ListForResale(c.Request.Context(), userID, c.Param("code"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

// Delist takes the current user's code off the marketplace
func (h *PromoCodeHandler) Delist(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	view, err := h.promoService.Delist(c.Request.Context(), userID, c.Param("code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

// Buy purchases a listed code for the current user
func (h *PromoCodeHandler) Buy(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	result, err := h.promoService.Buy(c.Request.Context(), userID, c.Param("code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
