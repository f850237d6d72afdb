package services

import (
	"fmt"
	"strings"

	"holidaysri-engine/internal/utils"
)

// SuffixLength is the number of random characters after the prefix
const SuffixLength = 5

// CodeGenerator produces and format-checks promo codes of the form PREFIX + 5 chars
type CodeGenerator struct {
	prefix string
}

// NewCodeGenerator creates a generator for a two-letter prefix
func NewCodeGenerator(prefix string) *CodeGenerator {
	return &CodeGenerator{prefix: prefix}
}

// Prefix returns the fixed code prefix
func (g *CodeGenerator) Prefix() string {
	return g.prefix
}

// CodeLength is the full code length
func (g *CodeGenerator) CodeLength() int {
	return len(g.prefix) + SuffixLength
}

// Generate returns a candidate code. It is not reserved; callers must check uniqueness.
func (g *CodeGenerator) Generate() (string, error) {
	suffix, err := utils.RandomString(utils.CodeAlphabet, SuffixLength)
	if err != nil {
		return "", err
	}
	return g.prefix + suffix, nil
}

// ValidateFormat checks length, prefix and alphabet
func (g *CodeGenerator) ValidateFormat(code string) error {
	if len(code) != g.CodeLength() {
		return newError(KindInvalidFormat, code, fmt.Sprintf("code must be exactly %d characters", g.CodeLength()))
	}
	if !strings.HasPrefix(code, g.prefix) {
		return newError(KindInvalidFormat, code, "code must start with "+g.prefix)
	}
	for _, r := range code[len(g.prefix):] {
		if !strings.ContainsRune(utils.CodeAlphabet, r) {
			return newError(KindInvalidFormat, code, "code may only contain A-Z and 0-9")
		}
	}
	return nil
}

// FromSuffix builds a code from a user-chosen suffix and validates it.
// Surrounding whitespace is trimmed and letters are upper-cased first.
func (g *CodeGenerator) FromSuffix(suffix string) (string, error) {
	code := g.prefix + strings.ToUpper(strings.TrimSpace(suffix))
	if err := g.ValidateFormat(code); err != nil {
		return "", err
	}
	return code, nil
}

// Normalize upper-cases and trims a code typed by a user
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
