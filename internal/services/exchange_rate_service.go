package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"holidaysri-engine/internal/config"
	"holidaysri-engine/internal/models"
	"holidaysri-engine/internal/repository"
)

// RateCache is an optional read-through cache for the exchange rates
type RateCache interface {
	Get(ctx context.Context) (models.ExchangeRateConfig, bool, error)
	Set(ctx context.Context, rates models.ExchangeRateConfig) error
	Invalidate(ctx context.Context) error
}

// ExchangeRateService serves and updates the token to fiat rates
type ExchangeRateService struct {
	repo     *repository.Repository
	cache    RateCache
	defaults models.ExchangeRateConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewExchangeRateService creates a new ExchangeRateService. cache may be nil.
func NewExchangeRateService(
	repo *repository.Repository,
	cache RateCache,
	cfg config.EngineConfig,
	logger *zap.Logger,
) (*ExchangeRateService, error) {
	defaults := models.ExchangeRateConfig{ID: models.ExchangeRateID, Currency: cfg.Currency}

	var err error
	if defaults.HSCValue, err = parseRate("default_hsc_value", cfg.DefaultHSCValue); err != nil {
		return nil, err
	}
	if defaults.HSGValue, err = parseRate("default_hsg_value", cfg.DefaultHSGValue); err != nil {
		return nil, err
	}
	if defaults.HSDValue, err = parseRate("default_hsd_value", cfg.DefaultHSDValue); err != nil {
		return nil, err
	}

	return &ExchangeRateService{
		repo:     repo,
		cache:    cache,
		defaults: defaults,
		logger:   logger,
		now:      utcNow,
	}, nil
}

func parseRate(name, value string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid rate %q: %w", name, value, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: rate must be positive", name)
	}
	return rate, nil
}

// Current returns a snapshot of the rates. Callers keep the copy for the whole
// operation so a concurrent update cannot change a price half way through.
func (s *ExchangeRateService) Current(ctx context.Context) (models.ExchangeRateConfig, error) {
	if s.cache != nil {
		rates, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("exchange rate cache read failed", zap.Error(err))
		} else if ok {
			return rates, nil
		}
	}

	stored, err := s.repo.GetExchangeRates(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return models.ExchangeRateConfig{}, fmt.Errorf("failed to load exchange rates: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, *stored); err != nil {
			s.logger.Warn("exchange rate cache write failed", zap.Error(err))
		}
	}
	return *stored, nil
}

// Update replaces the rates. Operations already holding a snapshot are unaffected.
func (s *ExchangeRateService) Update(ctx context.Context, adminID uint, req models.UpdateExchangeRatesRequest) (*models.ExchangeRateConfig, error) {
	for token, value := range map[models.Token]decimal.Decimal{
		models.TokenHSC: req.HSCValue,
		models.TokenHSG: req.HSGValue,
		models.TokenHSD: req.HSDValue,
	} {
		if !value.IsPositive() {
			return nil, newError(KindInvalidAmount, string(token), "exchange rate must be positive")
		}
	}

	rates := &models.ExchangeRateConfig{
		ID:        models.ExchangeRateID,
		HSCValue:  req.HSCValue,
		HSGValue:  req.HSGValue,
		HSDValue:  req.HSDValue,
		Currency:  s.defaults.Currency,
		UpdatedBy: adminID,
		UpdatedAt: s.now(),
	}
	if err := s.repo.SaveExchangeRates(ctx, rates); err != nil {
		return nil, fmt.Errorf("failed to save exchange rates: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("exchange rate cache invalidation failed", zap.Error(err))
		}
	}

	s.logger.Info("exchange rates updated",
		zap.Uint("admin_id", adminID),
		zap.String("hsc_value", rates.HSCValue.String()),
		zap.String("hsg_value", rates.HSGValue.String()),
		zap.String("hsd_value", rates.HSDValue.String()),
	)
	return rates, nil
}

// SetClock replaces the time source
func (s *ExchangeRateService) SetClock(now func() time.Time) {
	s.now = now
}

func utcNow() time.Time {
	return time.Now().UTC()
}
