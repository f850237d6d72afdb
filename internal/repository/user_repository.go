package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"

	"holidaysri-engine/internal/models"
)

// CreateUser creates a new user
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserForUpdate retrieves a user and locks the row until the transaction ends
func (r *Repository) GetUserForUpdate(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// SetBalance writes a new wallet balance for one token
func (r *Repository) SetBalance(ctx context.Context, userID uint, token models.Token, balance decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update(models.BalanceColumn(token), balance).Error
}

// UpdatePayoutDetails replaces the user's bank and external wallet details
func (r *Repository) UpdatePayoutDetails(ctx context.Context, userID uint, req models.PayoutDetailsRequest) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"bank_name":      req.BankName,
			"bank_branch":    req.BankBranch,
			"account_number": req.AccountNumber,
			"account_holder": req.AccountHolder,
			"binance_id":     req.BinanceID,
		}).Error
}

// CreateTransaction records a wallet movement
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// GetUserTransactions retrieves a user's wallet history with total count
func (r *Repository) GetUserTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var txs []models.Transaction
	err = r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, 0, err
	}

	return txs, total, nil
}
