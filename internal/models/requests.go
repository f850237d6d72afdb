package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IssuePromoCodeRequest asks for a new code, optionally with a custom suffix
type IssuePromoCodeRequest struct {
	Type   PromoCodeType `json:"type" binding:"required"`
	Suffix string        `json:"suffix,omitempty"`
}

// ListForResaleRequest puts an owned code on the marketplace
type ListForResaleRequest struct {
	PriceHSC    decimal.Decimal `json:"priceHSC"`
	Description string          `json:"description"`
}

// QuoteDiscountRequest asks what a base price becomes with a code applied
type QuoteDiscountRequest struct {
	BasePrice decimal.Decimal `json:"basePrice"`
}

// DiscountQuote is the result of applying a code's discount
type DiscountQuote struct {
	Code            string          `json:"code"`
	BasePrice       decimal.Decimal `json:"basePrice"`
	DiscountPercent int             `json:"discountPercent"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	FinalPrice      decimal.Decimal `json:"finalPrice"`
	// FinalPriceHSC is the unrounded token equivalent of FinalPrice, for display
	FinalPriceHSC decimal.Decimal `json:"finalPriceHSC"`
}

// CodeAvailability is returned by the availability check
type CodeAvailability struct {
	Code      string `json:"code"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// BuyResult is returned after a successful resale purchase
type BuyResult struct {
	PromoCode  PromoCodeView   `json:"promoCode"`
	NewBalance decimal.Decimal `json:"newBalance"`
}

// ClaimEarningsRequest names the completed records to claim as fiat
type ClaimEarningsRequest struct {
	RecordIDs []uuid.UUID `json:"recordIds" binding:"required"`
}

// ConversionResult is returned by an earnings-to-tokens conversion
type ConversionResult struct {
	ConvertedRecords int             `json:"convertedRecords"`
	ConvertedAmount  decimal.Decimal `json:"convertedAmount"`
	NewBalance       decimal.Decimal `json:"newBalance"`
}

// RecordEarningRequest is sent by the redemption collaborator when a code is used
type RecordEarningRequest struct {
	Code        string          `json:"code" binding:"required"`
	BuyerUserID uint            `json:"buyerUserId"`
	SpendHSC    decimal.Decimal `json:"spendHSC"`
	Category    string          `json:"category" binding:"required"`
	Description string          `json:"description"`
}

// UpdateExchangeRatesRequest replaces the exchange-rate configuration
type UpdateExchangeRatesRequest struct {
	HSCValue decimal.Decimal `json:"hscValue"`
	HSGValue decimal.Decimal `json:"hsgValue"`
	HSDValue decimal.Decimal `json:"hsdValue"`
}

// PayoutDetailsRequest updates the user's bank or external wallet details
type PayoutDetailsRequest struct {
	BankName      string `json:"bankName"`
	BankBranch    string `json:"bankBranch"`
	AccountNumber string `json:"accountNumber"`
	AccountHolder string `json:"accountHolder"`
	BinanceID     string `json:"binanceId"`
}

// MarketplaceQuery holds filter, sort and paging for the resale marketplace
type MarketplaceQuery struct {
	Type           PromoCodeType
	Active         *bool
	IncludeExpired bool
	Sort           string
	Page           int
	PageSize       int
}

// Marketplace sort keys
const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortEarnings  = "earnings"
	SortUsage     = "usage"
)

// Pagination is the offset paging contract of list endpoints
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPagination computes page counts for total items
func NewPagination(page, pageSize int, total int64) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// MarketplaceStats aggregates the listed set
type MarketplaceStats struct {
	Total  int64                   `json:"total"`
	Active int64                   `json:"active"`
	ByType map[PromoCodeType]int64 `json:"byType"`
}

// MarketplacePage is one page of listings with stats from the same read
type MarketplacePage struct {
	Items      []PromoCodeView  `json:"items"`
	Pagination Pagination       `json:"pagination"`
	Stats      MarketplaceStats `json:"stats"`
}
