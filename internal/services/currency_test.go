package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToFiat(t *testing.T) {
	fiat, err := ToFiat(decimal.NewFromInt(500), decimal.NewFromInt(100))
	require.NoError(t, err)
	assertDecimal(t, 50000, fiat)

	_, err = ToFiat(decimal.Zero, decimal.NewFromInt(100))
	assertKind(t, err, KindInvalidAmount)

	_, err = ToFiat(decimal.NewFromInt(10), decimal.NewFromInt(-1))
	assertKind(t, err, KindInvalidAmount)
}

func TestToTokensRoundsUp(t *testing.T) {
	tests := []struct {
		fiat     string
		rate     string
		expected int64
	}{
		{"5000", "100", 50},
		{"5001", "100", 51},
		{"1", "100", 1},
		{"25000", "75", 334},
		{"0.01", "0.5", 1},
	}

	for _, tt := range tests {
		tokens, err := ToTokens(decimal.RequireFromString(tt.fiat), decimal.RequireFromString(tt.rate))
		require.NoError(t, err)
		assertDecimal(t, tt.expected, tokens)
	}
}

func TestToTokensNeverUndercharges(t *testing.T) {
	rates := []string{"1", "3", "7.5", "99.99", "100", "333"}
	for _, r := range rates {
		rate := decimal.RequireFromString(r)
		for fiat := int64(1); fiat <= 2000; fiat += 37 {
			amount := decimal.NewFromInt(fiat)
			tokens, err := ToTokens(amount, rate)
			require.NoError(t, err)

			back, err := ToFiat(tokens, rate)
			require.NoError(t, err)
			assert.True(t, back.GreaterThanOrEqual(amount), "rate %s fiat %d: %s < %s", r, fiat, back, amount)
			assert.True(t, tokens.Equal(tokens.Truncate(0)), "tokens must be whole: %s", tokens)
		}
	}
}

func TestToTokensTinyRemainderRoundsUp(t *testing.T) {
	tests := []struct {
		fiat, rate, want string
	}{
		{"1.00000000000000001", "1", "2"},
		{"300.0000000000000001", "3", "101"},
		{"300", "3", "100"},
		{"15", "7.5", "2"},
		{"0.01", "100", "1"},
	}

	for _, tt := range tests {
		fiat := decimal.RequireFromString(tt.fiat)
		rate := decimal.RequireFromString(tt.rate)
		tokens, err := ToTokens(fiat, rate)
		require.NoError(t, err)
		assert.True(t, tokens.Equal(decimal.RequireFromString(tt.want)), "%s / %s: got %s", tt.fiat, tt.rate, tokens)

		back, err := ToFiat(tokens, rate)
		require.NoError(t, err)
		assert.True(t, back.GreaterThanOrEqual(fiat), "%s / %s under-delivers: %s", tt.fiat, tt.rate, back)
	}
}

func TestToTokensRejectsNonPositive(t *testing.T) {
	_, err := ToTokens(decimal.Zero, decimal.NewFromInt(100))
	assertKind(t, err, KindInvalidAmount)

	_, err = ToTokens(decimal.NewFromInt(100), decimal.Zero)
	assertKind(t, err, KindInvalidAmount)
}

func TestTokenEquivalent(t *testing.T) {
	tokens, err := TokenEquivalent(decimal.NewFromInt(150), decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, tokens.Equal(decimal.RequireFromString("1.5")))
}

func TestApplyDiscount(t *testing.T) {
	final, err := ApplyDiscount(decimal.NewFromInt(1000), 15)
	require.NoError(t, err)
	assertDecimal(t, 850, final)

	final, err = ApplyDiscount(decimal.NewFromInt(1000), 0)
	require.NoError(t, err)
	assertDecimal(t, 1000, final)

	final, err = ApplyDiscount(decimal.NewFromInt(1000), 100)
	require.NoError(t, err)
	assertDecimal(t, 0, final)

	final, err = ApplyDiscount(decimal.Zero, 10)
	require.NoError(t, err)
	assertDecimal(t, 0, final)

	_, err = ApplyDiscount(decimal.NewFromInt(-1), 10)
	assertKind(t, err, KindInvalidAmount)

	_, err = ApplyDiscount(decimal.NewFromInt(100), 101)
	assertKind(t, err, KindInvalidAmount)

	_, err = ApplyDiscount(decimal.NewFromInt(100), -5)
	assertKind(t, err, KindInvalidAmount)
}
