package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"holidaysri-engine/internal/models"
	"holidaysri-engine/internal/services"
)

// MarketplaceHandler serves the public resale listing
type MarketplaceHandler struct {
	marketService *services.MarketplaceService
	logger        *zap.Logger
}

// NewMarketplaceHandler creates a new MarketplaceHandler
func NewMarketplaceHandler(marketService *services.MarketplaceService, logger *zap.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{marketService: marketService, logger: logger}
}

// GetListings returns one page of listed codes with stats.
// Query: type, active, includeExpired, sort, page, pageSize
func (h *MarketplaceHandler) GetListings(c *gin.Context) {
	query := models.MarketplaceQuery{
		Type:     models.PromoCodeType(c.Query("type")),
		Sort:     c.Query("sort"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 0),
	}

	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		query.Active = &active
	}
	if raw := c.Query("includeExpired"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		query.IncludeExpired = include
	}

	page, err := h.marketService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       page.Items,
		"pagination": page.Pagination,
		"stats":      page.Stats,
	})
}
