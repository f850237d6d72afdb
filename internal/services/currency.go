package services

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ToFiat converts a token amount to fiat at rate (fiat units per token)
func ToFiat(tokenAmount, rate decimal.Decimal) (decimal.Decimal, error) {
	if !tokenAmount.IsPositive() {
		return decimal.Zero, newError(KindInvalidAmount, tokenAmount.String(), "token amount must be positive")
	}
	if !rate.IsPositive() {
		return decimal.Zero, newError(KindInvalidAmount, rate.String(), "exchange rate must be positive")
	}
	return tokenAmount.Mul(rate), nil
}

// ToTokens converts a fiat spend into the whole number of tokens that covers it.
// Rounds up so the platform is never under-charged.
func ToTokens(fiatAmount, rate decimal.Decimal) (decimal.Decimal, error) {
	if !fiatAmount.IsPositive() {
		return decimal.Zero, newError(KindInvalidAmount, fiatAmount.String(), "fiat amount must be positive")
	}
	if !rate.IsPositive() {
		return decimal.Zero, newError(KindInvalidAmount, rate.String(), "exchange rate must be positive")
	}
	q, rem := fiatAmount.QuoRem(rate, 0)
	if rem.IsPositive() {
		q = q.Add(decimal.NewFromInt(1))
	}
	return q, nil
}

// TokenEquivalent is the unrounded token value of a fiat amount, for display only
func TokenEquivalent(fiatAmount, rate decimal.Decimal) (decimal.Decimal, error) {
	if !fiatAmount.IsPositive() {
		return decimal.Zero, newError(KindInvalidAmount, fiatAmount.String(), "fiat amount must be positive")
	}
	if !rate.IsPositive() {
		return decimal.Zero, newError(KindInvalidAmount, rate.String(), "exchange rate must be positive")
	}
	return fiatAmount.Div(rate), nil
}

// ApplyDiscount returns basePrice - basePrice*discountPercent/100
func ApplyDiscount(basePrice decimal.Decimal, discountPercent int) (decimal.Decimal, error) {
	if basePrice.IsNegative() {
		return decimal.Zero, newError(KindInvalidAmount, basePrice.String(), "price cannot be negative")
	}
	if discountPercent < 0 || discountPercent > 100 {
		return decimal.Zero, newError(KindInvalidAmount, decimal.NewFromInt(int64(discountPercent)).String(), "discount percent must be between 0 and 100")
	}
	discount := basePrice.Mul(decimal.NewFromInt(int64(discountPercent))).Div(hundred)
	return basePrice.Sub(discount), nil
}
