package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a wallet movement
type TransactionType string

const (
	TransactionIssueCharge        TransactionType = "promo_code_purchase"
	TransactionResalePurchase     TransactionType = "promo_code_resale_purchase"
	TransactionResaleIncome       TransactionType = "promo_code_resale_income"
	TransactionEarningsConversion TransactionType = "earnings_conversion"
)

// Transaction represents a token wallet movement. Amount is signed: debits are negative.
type Transaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	Type         TransactionType `gorm:"size:50;not null;index" json:"type"`
	Token        Token           `gorm:"size:8;not null;default:HSC" json:"token"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"balance_after"`
	Reference    string          `gorm:"size:64;index" json:"reference"`
	Description  string          `gorm:"type:text" json:"description"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Transaction model
func (Transaction) TableName() string {
	return "transactions"
}
