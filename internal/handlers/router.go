package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"holidaysri-engine/internal/auth"
)

// Handlers groups every HTTP handler mounted by the router
type Handlers struct {
	PromoCodes   *PromoCodeHandler
	Marketplace  *MarketplaceHandler
	Earnings     *EarningsHandler
	ExchangeRate *ExchangeRateHandler
	Users        *UserHandler
}

// RequestLogger logs each request with zap once it completes
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", statusCode),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}

		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()))
		}

		switch {
		case statusCode >= 500:
			logger.Error("request failed", fields...)
		case statusCode >= 400:
			logger.Warn("client error", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}

// RegisterRoutes mounts public, authenticated and admin routes on router
func RegisterRoutes(router *gin.Engine, h *Handlers, logger *zap.Logger) {
	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public routes
	router.GET("/api/exchange-rates", h.ExchangeRate.GetRates)
	router.GET("/api/marketplace", h.Marketplace.GetListings)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware(logger))
	{
		promo := api.Group("/promo-codes")
		{
			promo.POST("", h.PromoCodes.Issue)
			promo.GET("/mine", h.PromoCodes.GetMine)
			promo.GET("/check/:code", h.PromoCodes.CheckAvailability)
			promo.GET("/:code/sales", h.PromoCodes.GetSales)
			promo.POST("/:code/quote", h.PromoCodes.Quote)
			promo.POST("/:code/list", h.PromoCodes.List)
			promo.POST("/:code/delist", h.PromoCodes.Delist)
			promo.POST("/:code/buy", h.PromoCodes.Buy)
		}

		earnings := api.Group("/earnings")
		{
			earnings.GET("", h.Earnings.GetEarnings)
			earnings.GET("/summary", h.Earnings.GetSummary)
			earnings.POST("/claim", h.Earnings.Claim)
			earnings.POST("/convert", h.Earnings.Convert)
			earnings.GET("/claims", h.Earnings.GetClaims)
		}

		userRoutes := api.Group("/user")
		{
			userRoutes.GET("/profile", h.Users.GetProfile)
			userRoutes.PUT("/payout-details", h.Users.UpdatePayoutDetails)
			userRoutes.GET("/transactions", h.Users.GetTransactions)
		}

		admin := api.Group("/admin")
		admin.Use(auth.AdminMiddleware(h.Users.isAdmin, logger))
		{
			admin.PUT("/exchange-rates", h.ExchangeRate.UpdateRates)
			admin.POST("/earnings", h.Earnings.RecordEarning)
			admin.POST("/claims/:id/fulfill", h.Earnings.FulfillClaim)
		}
	}
}
