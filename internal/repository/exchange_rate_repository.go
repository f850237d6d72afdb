package repository

import (
	"context"

	"gorm.io/gorm/clause"

	"holidaysri-engine/internal/models"
)

// GetExchangeRates reads the exchange-rate row
func (r *Repository) GetExchangeRates(ctx context.Context) (*models.ExchangeRateConfig, error) {
	var rates models.ExchangeRateConfig
	if err := r.db.WithContext(ctx).Where("id = ?", models.ExchangeRateID).First(&rates).Error; err != nil {
		return nil, notFound(err)
	}
	return &rates, nil
}

// SaveExchangeRates inserts or replaces the exchange-rate row
func (r *Repository) SaveExchangeRates(ctx context.Context, rates *models.ExchangeRateConfig) error {
	rates.ID = models.ExchangeRateID
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rates).Error
}
