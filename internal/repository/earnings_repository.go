package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"holidaysri-engine/internal/models"
)

// CreateEarningsRecord inserts a new earnings record
func (r *Repository) CreateEarningsRecord(ctx context.Context, record *models.EarningsRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetUserEarningsByIDsForUpdate locks and returns the named records owned by userID.
// Records belonging to someone else are simply not returned.
func (r *Repository) GetUserEarningsByIDsForUpdate(ctx context.Context, userID uint, ids []uuid.UUID) ([]models.EarningsRecord, error) {
	var records []models.EarningsRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetUserEarningsByStatus returns all of a user's records in one status, oldest first
func (r *Repository) GetUserEarningsByStatus(ctx context.Context, userID uint, status models.EarningsStatus) ([]models.EarningsRecord, error) {
	var records []models.EarningsRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND status = ?", userID, status).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetUserEarnings lists a user's records, optionally filtered by status, newest first
func (r *Repository) GetUserEarnings(
	ctx context.Context,
	userID uint,
	status models.EarningsStatus,
	limit int,
	offset int,
) ([]models.EarningsRecord, int64, error) {
	query := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&models.EarningsRecord{}).Where("user_id = ?", userID)
		if status != "" {
			db = db.Where("status = ?", status)
		}
		return db
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.EarningsRecord
	err := query().
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// GetAllUserEarnings returns every record of a user, used for summaries
func (r *Repository) GetAllUserEarnings(ctx context.Context, userID uint) ([]models.EarningsRecord, error) {
	var records []models.EarningsRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// TransitionEarnings moves the named records from one status to the next.
// Only rows still in from are touched; the caller compares the returned count
// with len(ids) to detect a concurrent change.
func (r *Repository) TransitionEarnings(
	ctx context.Context,
	ids []uuid.UUID,
	from models.EarningsStatus,
	to models.EarningsStatus,
	claimID *uuid.UUID,
) (int64, error) {
	if err := models.ValidateTransition(from, to); err != nil {
		return 0, err
	}

	updates := map[string]interface{}{"status": to}
	if claimID != nil {
		updates["claim_request_id"] = *claimID
	}

	result := r.db.WithContext(ctx).Model(&models.EarningsRecord{}).
		Where("id IN ? AND status = ?", ids, from).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// TransitionClaimEarnings moves every record of a claim from one status to the next
func (r *Repository) TransitionClaimEarnings(
	ctx context.Context,
	claimID uuid.UUID,
	from models.EarningsStatus,
	to models.EarningsStatus,
) (int64, error) {
	if err := models.ValidateTransition(from, to); err != nil {
		return 0, err
	}

	result := r.db.WithContext(ctx).Model(&models.EarningsRecord{}).
		Where("claim_request_id = ? AND status = ?", claimID, from).
		Update("status", to)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CreateClaimRequest inserts a claim request
func (r *Repository) CreateClaimRequest(ctx context.Context, claim *models.ClaimRequest) error {
	return r.db.WithContext(ctx).Omit("Records").Create(claim).Error
}

// GetClaimRequestForUpdate retrieves and locks a claim request
func (r *Repository) GetClaimRequestForUpdate(ctx context.Context, claimID uuid.UUID) (*models.ClaimRequest, error) {
	var claim models.ClaimRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", claimID).
		First(&claim).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &claim, nil
}

// MarkClaimPaid flips a pending claim to paid
func (r *Repository) MarkClaimPaid(ctx context.Context, claimID uuid.UUID, paidAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.ClaimRequest{}).
		Where("id = ? AND status = ?", claimID, models.ClaimStatusPending).
		Updates(map[string]interface{}{
			"status":  models.ClaimStatusPaid,
			"paid_at": paidAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// GetUserClaimRequests lists a user's claims with their records, newest first
func (r *Repository) GetUserClaimRequests(ctx context.Context, userID uint) ([]models.ClaimRequest, error) {
	var claims []models.ClaimRequest
	err := r.db.WithContext(ctx).
		Preload("Records").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&claims).Error
	if err != nil {
		return nil, err
	}
	return claims, nil
}
