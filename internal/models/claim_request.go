package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ClaimStatus is the fulfilment state of a claim request
type ClaimStatus string

const (
	ClaimStatusPending ClaimStatus = "pending"
	ClaimStatusPaid    ClaimStatus = "paid"
)

// ClaimRequest batches completed earnings into one fiat payout request.
// Totals and the rate are frozen at creation.
type ClaimRequest struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Reference      string           `gorm:"size:40;uniqueIndex;not null" json:"reference"`
	UserID         uint             `gorm:"not null;index" json:"user_id"`
	TotalHSCAmount decimal.Decimal  `gorm:"type:decimal(18,4);not null" json:"total_hsc_amount"`
	TotalLKRAmount decimal.Decimal  `gorm:"type:decimal(18,4);not null" json:"total_lkr_amount"`
	ExchangeRate   decimal.Decimal  `gorm:"type:decimal(18,4);not null" json:"exchange_rate"`
	Currency       string           `gorm:"size:8;not null" json:"currency"`
	PayoutMethod   string           `gorm:"size:20;not null" json:"payout_method"`
	Status         ClaimStatus      `gorm:"size:20;not null;index" json:"status"`
	RecordCount    int              `gorm:"not null" json:"record_count"`
	Records        []EarningsRecord `gorm:"foreignKey:ClaimRequestID" json:"records,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	PaidAt         *time.Time       `json:"paid_at,omitempty"`
}

// TableName specifies the table name for ClaimRequest model
func (ClaimRequest) TableName() string {
	return "claim_requests"
}

// BeforeCreate assigns the claim id
func (c *ClaimRequest) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
