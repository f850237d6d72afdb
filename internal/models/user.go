package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Token identifies one of the platform currencies held in a user wallet
type Token string

const (
	TokenHSC Token = "HSC"
	TokenHSG Token = "HSG"
	TokenHSD Token = "HSD"
)

// User represents a platform account with its token wallet and payout details
type User struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Email      string          `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name       string          `gorm:"size:255" json:"name"`
	IsAdmin    bool            `gorm:"default:false" json:"is_admin"`
	HSCBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"hsc_balance"`
	HSGBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"hsg_balance"`
	HSDBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"hsd_balance"`

	// Payout details used by fiat earnings claims
	BankName      string `gorm:"size:120" json:"bank_name"`
	BankBranch    string `gorm:"size:120" json:"bank_branch"`
	AccountNumber string `gorm:"size:64" json:"account_number"`
	AccountHolder string `gorm:"size:255" json:"account_holder"`
	BinanceID     string `gorm:"size:120" json:"binance_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// HasBankDetails reports whether every bank field is filled in
func (u *User) HasBankDetails() bool {
	return strings.TrimSpace(u.BankName) != "" &&
		strings.TrimSpace(u.BankBranch) != "" &&
		strings.TrimSpace(u.AccountNumber) != "" &&
		strings.TrimSpace(u.AccountHolder) != ""
}

// PayoutMethod returns "bank", "wallet" or "" when nothing usable is on file.
// Bank details win when both are present.
func (u *User) PayoutMethod() string {
	if u.HasBankDetails() {
		return "bank"
	}
	if strings.TrimSpace(u.BinanceID) != "" {
		return "wallet"
	}
	return ""
}

// BalanceColumn maps a token to its column in the users table
func BalanceColumn(token Token) string {
	switch token {
	case TokenHSG:
		return "hsg_balance"
	case TokenHSD:
		return "hsd_balance"
	default:
		return "hsc_balance"
	}
}
