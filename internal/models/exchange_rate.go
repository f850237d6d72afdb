package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRateID is the primary key of the single exchange-rate row
const ExchangeRateID = 1

// ExchangeRateConfig holds how many fiat units one token is worth.
// Services take a copy at the start of an operation and never re-read it mid-way.
type ExchangeRateConfig struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	HSCValue  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"hscValue"`
	HSGValue  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"hsgValue"`
	HSDValue  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"hsdValue"`
	Currency  string          `gorm:"size:8;not null" json:"currency"`
	UpdatedBy uint            `json:"updatedBy,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// TableName specifies the table name for ExchangeRateConfig model
func (ExchangeRateConfig) TableName() string {
	return "exchange_rates"
}
