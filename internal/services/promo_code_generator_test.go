package services

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holidaysri-engine/internal/config"
	"holidaysri-engine/internal/models"
	"holidaysri-engine/internal/utils"
)

func TestGenerateFormat(t *testing.T) {
	gen := NewCodeGenerator("HS")

	for i := 0; i < 500; i++ {
		code, err := gen.Generate()
		require.NoError(t, err)
		assert.Len(t, code, 7)
		assert.True(t, strings.HasPrefix(code, "HS"))
		assert.NoError(t, gen.ValidateFormat(code))
	}
}

func TestGenerateSpreadsCharacters(t *testing.T) {
	gen := NewCodeGenerator("HS")
	seen := make(map[rune]bool)
	for i := 0; i < 2000; i++ {
		code, err := gen.Generate()
		require.NoError(t, err)
		for _, r := range code[2:] {
			seen[r] = true
		}
	}
	// 10000 draws over 36 symbols should hit every one
	assert.Len(t, seen, len(utils.CodeAlphabet))
}

func TestValidateFormat(t *testing.T) {
	gen := NewCodeGenerator("HS")

	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{"valid", "HSAB12C", true},
		{"all digits", "HS00000", true},
		{"too short", "HSAB12", false},
		{"too long", "HSAB12CD", false},
		{"wrong prefix", "XXAB12C", false},
		{"lowercase", "HSab12c", false},
		{"symbol", "HSAB-2C", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gen.ValidateFormat(tt.code)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assertKind(t, err, KindInvalidFormat)
			}
		})
	}
}

func TestValidateFormatReportsConfiguredLength(t *testing.T) {
	err := NewCodeGenerator("HS").ValidateFormat("HSAB")
	assertKind(t, err, KindInvalidFormat)
	assert.Contains(t, err.Error(), "exactly 7 characters")

	err = NewCodeGenerator("HSX").ValidateFormat("HSXAB")
	assertKind(t, err, KindInvalidFormat)
	assert.Contains(t, err.Error(), "exactly 8 characters")
}

func TestFromSuffix(t *testing.T) {
	gen := NewCodeGenerator("HS")

	code, err := gen.FromSuffix(" ab12c ")
	require.NoError(t, err)
	assert.Equal(t, "HSAB12C", code)

	_, err = gen.FromSuffix("AB1")
	assertKind(t, err, KindInvalidFormat)

	_, err = gen.FromSuffix("AB!2C")
	assertKind(t, err, KindInvalidFormat)
}

func TestTierTable(t *testing.T) {
	tiers, err := NewTierTable(config.DefaultTiers())
	require.NoError(t, err)

	gold, err := tiers.Lookup(models.PromoCodeGold)
	require.NoError(t, err)
	assert.Equal(t, 10, gold.DiscountPercent)

	price, err := gold.PriceTokens(decimal.NewFromInt(100))
	require.NoError(t, err)
	assertDecimal(t, 100, price)

	free, err := tiers.Lookup(models.PromoCodeFree)
	require.NoError(t, err)
	price, err = free.PriceTokens(decimal.NewFromInt(100))
	require.NoError(t, err)
	assertDecimal(t, 0, price)

	_, err = tiers.Lookup("platinum")
	assertKind(t, err, KindInvalidRequest)

	_, err = NewTierTable([]config.TierConfig{{Type: "bad", PriceFiat: "abc", ValidityDays: 1}})
	assert.Error(t, err)
}

func BenchmarkGenerate(b *testing.B) {
	gen := NewCodeGenerator("HS")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := gen.Generate(); err != nil {
			b.Fatal(err)
		}
	}
}
