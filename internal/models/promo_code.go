package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PromoCodeType is the tier a code was issued at. It never changes after issue.
type PromoCodeType string

const (
	PromoCodeSilver  PromoCodeType = "silver"
	PromoCodeGold    PromoCodeType = "gold"
	PromoCodeDiamond PromoCodeType = "diamond"
	PromoCodeFree    PromoCodeType = "free"
)

// PromoCodeStatus is the stored lifecycle status. Expiry is never stored; see State.
type PromoCodeStatus string

const (
	PromoCodeStatusActive PromoCodeStatus = "active"
	PromoCodeStatusListed PromoCodeStatus = "listed"
)

// PromoCodeState is the effective state of a code at a point in time
type PromoCodeState string

const (
	PromoCodeStateActive  PromoCodeState = "active"
	PromoCodeStateListed  PromoCodeState = "listed_for_resale"
	PromoCodeStateExpired PromoCodeState = "expired"
)

// PromoCode is a referral code owned by exactly one user.
//
// ReservedCode and OwnerSlot carry unique indexes and are set while the row is the
// live holder of its code value and of its owner's single code slot. They are
// released lazily when an expired row stands in the way of a new reservation.
type PromoCode struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Code           string          `gorm:"size:7;not null;index" json:"code"`
	ReservedCode   *string         `gorm:"size:7;uniqueIndex" json:"-"`
	OwnerID        uint            `gorm:"not null;index" json:"owner_id"`
	OwnerSlot      *uint           `gorm:"uniqueIndex" json:"-"`
	Type           PromoCodeType   `gorm:"size:20;not null;index" json:"type"`
	Status         PromoCodeStatus `gorm:"size:20;not null;index" json:"status"`
	IsActive       bool            `gorm:"not null;default:true" json:"is_active"`
	IsVerified     bool            `gorm:"not null;default:false" json:"is_verified"`
	ExpirationDate time.Time       `gorm:"not null;index" json:"expiration_date"`

	DiscountPercent int `gorm:"not null" json:"discount_percent"`
	EarningPercent  int `gorm:"not null" json:"earning_percent"`

	UsedCount      int64           `gorm:"not null;default:0" json:"used_count"`
	TotalReferrals int64           `gorm:"not null;default:0" json:"total_referrals"`
	TotalEarnings  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_earnings"`

	// Resale fields, only meaningful while Status is listed
	SellingPriceHSC    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"selling_price_hsc"`
	SellingPriceLKR    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"selling_price_lkr"`
	SellingDescription string          `gorm:"type:text" json:"selling_description"`
	SellingListedAt    *time.Time      `gorm:"index" json:"selling_listed_at,omitempty"`

	Version   int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for PromoCode model
func (PromoCode) TableName() string {
	return "promo_codes"
}

// IsExpired reports whether the code is past its expiration date at now
func (p *PromoCode) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpirationDate)
}

// State derives the effective lifecycle state at now
func (p *PromoCode) State(now time.Time) PromoCodeState {
	if p.IsExpired(now) {
		return PromoCodeStateExpired
	}
	if p.Status == PromoCodeStatusListed {
		return PromoCodeStateListed
	}
	return PromoCodeStateActive
}

// PromoCodeView is the API projection of a code with its read-time expiry flag
type PromoCodeView struct {
	PromoCode
	State     PromoCodeState `json:"state"`
	IsExpired bool           `json:"is_expired"`
}

// NewPromoCodeView evaluates expiry against now
func NewPromoCodeView(p PromoCode, now time.Time) PromoCodeView {
	return PromoCodeView{
		PromoCode: p,
		State:     p.State(now),
		IsExpired: p.IsExpired(now),
	}
}

// PromoCodeSale records a completed resale
type PromoCodeSale struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	PromoCodeID uint            `gorm:"not null;index" json:"promo_code_id"`
	Code        string          `gorm:"size:7;not null" json:"code"`
	SellerID    uint            `gorm:"not null;index" json:"seller_id"`
	BuyerID     uint            `gorm:"not null;index" json:"buyer_id"`
	PriceHSC    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"price_hsc"`
	PriceLKR    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"price_lkr"`
	SoldAt      time.Time       `gorm:"not null" json:"sold_at"`
}

// TableName specifies the table name for PromoCodeSale model
func (PromoCodeSale) TableName() string {
	return "promo_code_sales"
}
