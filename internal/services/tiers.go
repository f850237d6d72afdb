package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"holidaysri-engine/internal/config"
	"holidaysri-engine/internal/models"
)

// Tier holds the pricing and reward terms of a promo code type
type Tier struct {
	Type            models.PromoCodeType
	PriceFiat       decimal.Decimal
	DiscountPercent int
	EarningPercent  int
	Validity        time.Duration
}

// TierTable looks tiers up by type
type TierTable map[models.PromoCodeType]Tier

// NewTierTable parses the configured tiers
func NewTierTable(cfgs []config.TierConfig) (TierTable, error) {
	table := make(TierTable, len(cfgs))
	for _, c := range cfgs {
		price, err := decimal.NewFromString(c.PriceFiat)
		if err != nil {
			return nil, fmt.Errorf("tier %s: invalid price %q: %w", c.Type, c.PriceFiat, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("tier %s: price cannot be negative", c.Type)
		}
		if c.ValidityDays <= 0 {
			return nil, fmt.Errorf("tier %s: validity_days must be positive", c.Type)
		}
		table[models.PromoCodeType(c.Type)] = Tier{
			Type:            models.PromoCodeType(c.Type),
			PriceFiat:       price,
			DiscountPercent: c.DiscountPercent,
			EarningPercent:  c.EarningPercent,
			Validity:        time.Duration(c.ValidityDays) * 24 * time.Hour,
		}
	}
	return table, nil
}

// Lookup returns the tier for t or an InvalidRequest error
func (t TierTable) Lookup(typ models.PromoCodeType) (Tier, error) {
	tier, ok := t[typ]
	if !ok {
		return Tier{}, newError(KindInvalidRequest, string(typ), "unknown promo code type")
	}
	return tier, nil
}

// PriceTokens is the HSC charged for issuing a code of this tier at rate.
// Free tiers cost nothing.
func (t Tier) PriceTokens(rate decimal.Decimal) (decimal.Decimal, error) {
	if t.PriceFiat.IsZero() {
		return decimal.Zero, nil
	}
	return ToTokens(t.PriceFiat, rate)
}
