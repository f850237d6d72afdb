package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"holidaysri-engine/internal/models"
)

// CreatePromoCode inserts a code. The unique indexes on reserved_code and
// owner_slot reject a second live holder of either.
func (r *Repository) CreatePromoCode(ctx context.Context, code *models.PromoCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

// GetLiveByCode retrieves the row currently reserving a code value
func (r *Repository) GetLiveByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.WithContext(ctx).Where("reserved_code = ?", code).First(&promo).Error; err != nil {
		return nil, notFound(err)
	}
	return &promo, nil
}

// GetLiveByCodeForUpdate is GetLiveByCode with a row lock
func (r *Repository) GetLiveByCodeForUpdate(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reserved_code = ?", code).
		First(&promo).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &promo, nil
}

// GetByOwnerSlot retrieves the code occupying a user's single code slot
func (r *Repository) GetByOwnerSlot(ctx context.Context, userID uint) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_slot = ?", userID).
		First(&promo).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &promo, nil
}

// ReleaseReservation frees the code value and owner slot held by an expired row
func (r *Repository) ReleaseReservation(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reserved_code": nil,
			"owner_slot":    nil,
			"version":       gorm.Expr("version + 1"),
		}).Error
}

// GetUserPromoCodes retrieves every code a user has owned, newest first
func (r *Repository) GetUserPromoCodes(ctx context.Context, userID uint) ([]models.PromoCode, error) {
	var codes []models.PromoCode
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// UpdatePromoCodeIfVersion applies updates only when the row still has the
// expected version and status. It returns the number of rows changed, so zero
// means another writer got there first.
func (r *Repository) UpdatePromoCodeIfVersion(
	ctx context.Context,
	id uint,
	version int64,
	status models.PromoCodeStatus,
	updates map[string]interface{},
) (int64, error) {
	updates["version"] = version + 1
	result := r.db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("id = ? AND version = ? AND status = ?", id, version, status).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CreateSale records a completed resale
func (r *Repository) CreateSale(ctx context.Context, sale *models.PromoCodeSale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

// GetPromoCodeSales retrieves resale history for a code row
func (r *Repository) GetPromoCodeSales(ctx context.Context, promoCodeID uint) ([]models.PromoCodeSale, error) {
	var sales []models.PromoCodeSale
	err := r.db.WithContext(ctx).
		Where("promo_code_id = ?", promoCodeID).
		Order("sold_at ASC, id ASC").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

// ============================================================================
// Marketplace queries
// ============================================================================

var marketplaceOrder = map[string]string{
	models.SortNewest:    "selling_listed_at DESC, id DESC",
	models.SortOldest:    "selling_listed_at ASC, id ASC",
	models.SortPriceLow:  "selling_price_hsc ASC, id ASC",
	models.SortPriceHigh: "selling_price_hsc DESC, id DESC",
	models.SortEarnings:  "total_earnings DESC, id DESC",
	models.SortUsage:     "used_count DESC, id DESC",
}

// IsMarketplaceSort reports whether key is a supported sort
func IsMarketplaceSort(key string) bool {
	_, ok := marketplaceOrder[key]
	return ok
}

// listedScope restricts to listed codes, hiding expired ones unless asked
func listedScope(db *gorm.DB, includeExpired bool, now time.Time) *gorm.DB {
	db = db.Model(&models.PromoCode{}).
		Where("status = ? AND reserved_code IS NOT NULL", models.PromoCodeStatusListed)
	if !includeExpired {
		db = db.Where("expiration_date > ?", now)
	}
	return db
}

// ListMarketplace returns one page of listed codes and the filtered total
func (r *Repository) ListMarketplace(ctx context.Context, q models.MarketplaceQuery, now time.Time) ([]models.PromoCode, int64, error) {
	scope := func() *gorm.DB {
		db := listedScope(r.db.WithContext(ctx), q.IncludeExpired, now)
		if q.Type != "" {
			db = db.Where("type = ?", q.Type)
		}
		if q.Active != nil {
			db = db.Where("is_active = ?", *q.Active)
		}
		return db
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, ok := marketplaceOrder[q.Sort]
	if !ok {
		order = marketplaceOrder[models.SortNewest]
	}

	var codes []models.PromoCode
	err := scope().
		Order(order).
		Limit(q.PageSize).
		Offset((q.Page - 1) * q.PageSize).
		Find(&codes).Error
	if err != nil {
		return nil, 0, err
	}

	return codes, total, nil
}

// MarketplaceStats aggregates the listed set as seen at now
func (r *Repository) MarketplaceStats(ctx context.Context, includeExpired bool, now time.Time) (models.MarketplaceStats, error) {
	stats := models.MarketplaceStats{ByType: make(map[models.PromoCodeType]int64)}

	if err := listedScope(r.db.WithContext(ctx), includeExpired, now).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	err := listedScope(r.db.WithContext(ctx), includeExpired, now).
		Where("is_active = ? AND expiration_date > ?", true, now).
		Count(&stats.Active).Error
	if err != nil {
		return stats, err
	}

	var rows []struct {
		Type  models.PromoCodeType
		Count int64
	}
	err = listedScope(r.db.WithContext(ctx), includeExpired, now).
		Select("type, COUNT(*) AS count").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return stats, err
	}
	for _, row := range rows {
		stats.ByType[row.Type] = row.Count
	}

	return stats, nil
}
