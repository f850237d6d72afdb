package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holidaysri-engine/internal/models"
)

func TestUpdatePayoutDetails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "payout@example.com", 0)

	_, err := env.users.UpdatePayoutDetails(ctx, user.ID, models.PayoutDetailsRequest{
		BankName:   "Bank of Ceylon",
		BankBranch: "Kandy",
	})
	assertKind(t, err, KindInvalidRequest)

	updated, err := env.users.UpdatePayoutDetails(ctx, user.ID, models.PayoutDetailsRequest{
		BankName:      " Bank of Ceylon ",
		BankBranch:    "Kandy",
		AccountNumber: "0011223344",
		AccountHolder: "K. Perera",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bank of Ceylon", updated.BankName)
	assert.Equal(t, "bank", updated.PayoutMethod())

	_, err = env.users.UpdatePayoutDetails(ctx, 9999, models.PayoutDetailsRequest{BinanceID: "1"})
	assertKind(t, err, KindNotFound)
}

func TestGetTransactionsPagesWalletHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "wallet@example.com", 1000)
	env.issue(t, user.ID, models.PromoCodeGold, "WALL1")

	txs, page, err := env.users.GetTransactions(ctx, user.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionIssueCharge, txs[0].Type)
	assert.True(t, txs[0].Amount.IsNegative())
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.Page)

	other := env.createUser(t, "empty@example.com", 0)
	txs, page, err = env.users.GetTransactions(ctx, other.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Equal(t, int64(0), page.Total)
}
