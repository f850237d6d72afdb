package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EarningsStatus is the payout state of an earnings record
type EarningsStatus string

const (
	EarningsCompleted  EarningsStatus = "completed"
	EarningsProcessing EarningsStatus = "processing"
	EarningsPaidAsLKR  EarningsStatus = "paid_as_lkr"
	EarningsPaidAsHSC  EarningsStatus = "paid_as_hsc"
)

// earningsTransitions lists every allowed status change. Anything else is rejected.
var earningsTransitions = map[EarningsStatus][]EarningsStatus{
	EarningsCompleted:  {EarningsProcessing, EarningsPaidAsHSC},
	EarningsProcessing: {EarningsPaidAsLKR},
}

// CanTransition reports whether from -> to is an allowed earnings status change
func CanTransition(from, to EarningsStatus) bool {
	for _, next := range earningsTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an error for a status change outside the table
func ValidateTransition(from, to EarningsStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("earnings status cannot move from %s to %s", from, to)
	}
	return nil
}

// EarningsRecord is HSC credited to a code owner by a referral event
type EarningsRecord struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	PromoCodeID    uint            `gorm:"not null;index" json:"promo_code_id"`
	Code           string          `gorm:"size:7;not null" json:"code"`
	EarnedAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"earned_amount"`
	Status         EarningsStatus  `gorm:"size:20;not null;index" json:"status"`
	Category       string          `gorm:"size:64;not null" json:"category"`
	Description    string          `gorm:"type:text" json:"description"`
	BuyerUserID    uint            `gorm:"index" json:"buyer_user_id"`
	ClaimRequestID *uuid.UUID      `gorm:"type:uuid;index" json:"claim_request_id,omitempty"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name for EarningsRecord model
func (EarningsRecord) TableName() string {
	return "earnings_records"
}

// BeforeCreate assigns the record id
func (e *EarningsRecord) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// EarningsSummary totals a user's earnings per status
type EarningsSummary struct {
	Completed      decimal.Decimal `json:"completed"`
	Processing     decimal.Decimal `json:"processing"`
	PaidAsLKR      decimal.Decimal `json:"paid_as_lkr"`
	PaidAsHSC      decimal.Decimal `json:"paid_as_hsc"`
	CompletedFiat  decimal.Decimal `json:"completed_fiat"`
	Currency       string          `json:"currency"`
	MinimumClaim   decimal.Decimal `json:"minimum_claim"`
	CanClaim       bool            `json:"can_claim"`
	CompletedCount int             `json:"completed_count"`
}
