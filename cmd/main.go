package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"holidaysri-engine/internal/auth"
	"holidaysri-engine/internal/cache"
	"holidaysri-engine/internal/config"
	"holidaysri-engine/internal/database"
	"holidaysri-engine/internal/handlers"
	"holidaysri-engine/internal/logger"
	"holidaysri-engine/internal/metrics"
	"holidaysri-engine/internal/repository"
	"holidaysri-engine/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	// Initialize JWT
	auth.InitJWT(cfg.Auth.JWTSecret)

	// Connect to database
	db, err := database.Connect(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.AutoMigrate(db, zapLogger); err != nil {
		zapLogger.Fatal("failed to run migrations", zap.Error(err))
	}

	repo := repository.NewRepository(db)
	engineMetrics := metrics.Engine()

	// Exchange rate cache is optional
	var rateCache services.RateCache
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisCache, err := cache.NewRedisRateCache(ctx, cfg.Redis)
		cancel()
		if err != nil {
			zapLogger.Warn("redis unavailable, serving rates from the database", zap.Error(err))
		} else {
			defer redisCache.Close()
			rateCache = redisCache
			zapLogger.Info("exchange rate cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// Initialize services
	rateService, err := services.NewExchangeRateService(repo, rateCache, cfg.Engine, zapLogger)
	if err != nil {
		zapLogger.Fatal("invalid exchange rate defaults", zap.Error(err))
	}
	tiers, err := services.NewTierTable(cfg.Engine.Tiers)
	if err != nil {
		zapLogger.Fatal("invalid tier configuration", zap.Error(err))
	}
	locks := services.NewKeyedMutex()
	promoService := services.NewPromoCodeService(repo, rateService, tiers, cfg.Engine, locks, zapLogger, engineMetrics)
	earningsService, err := services.NewEarningsService(repo, rateService, cfg.Engine, locks, zapLogger, engineMetrics)
	if err != nil {
		zapLogger.Fatal("invalid earnings configuration", zap.Error(err))
	}
	marketService := services.NewMarketplaceService(repo, cfg.Engine.MarketplacePageMax)
	userService := services.NewUserService(repo, zapLogger)

	// Set up Gin router
	router := gin.New()
	router.Use(gin.Recovery(), handlers.RequestLogger(zapLogger))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handlers.RegisterRoutes(router, &handlers.Handlers{
		PromoCodes:   handlers.NewPromoCodeHandler(promoService, zapLogger),
		Marketplace:  handlers.NewMarketplaceHandler(marketService, zapLogger),
		Earnings:     handlers.NewEarningsHandler(earningsService, zapLogger),
		ExchangeRate: handlers.NewExchangeRateHandler(rateService, zapLogger),
		Users:        handlers.NewUserHandler(userService, zapLogger),
	}, zapLogger)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("server exited")
}
