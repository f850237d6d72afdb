package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"holidaysri-engine/internal/models"
)

const day = 24 * time.Hour

func TestIssueChargesTierPrice(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "owner@example.com", 1000)

	view := env.issue(t, user.ID, models.PromoCodeGold, "")

	assert.True(t, strings.HasPrefix(view.Code, "HS"))
	assert.Len(t, view.Code, 7)
	assert.Equal(t, models.PromoCodeStateActive, view.State)
	assert.False(t, view.IsExpired)
	assert.Equal(t, 10, view.DiscountPercent)
	assert.Equal(t, 8, view.EarningPercent)
	assert.True(t, view.ExpirationDate.Equal(env.clock.Now().Add(365*day)))

	// gold is 10000 LKR, 100 HSC at the default rate
	assertDecimal(t, 900, env.balance(t, user.ID))

	txs, _, err := env.users.GetTransactions(context.Background(), user.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionIssueCharge, txs[0].Type)
	assertDecimal(t, -100, txs[0].Amount)
}

func TestIssueFreeTierCostsNothing(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "free@example.com", 0)

	view := env.issue(t, user.ID, models.PromoCodeFree, "")

	assert.True(t, view.ExpirationDate.Equal(env.clock.Now().Add(90*day)))
	assertDecimal(t, 0, env.balance(t, user.ID))
}

func TestIssueRejectsDuplicateSuffix(t *testing.T) {
	env := newTestEnv(t)
	first := env.createUser(t, "first@example.com", 1000)
	second := env.createUser(t, "second@example.com", 1000)

	view := env.issue(t, first.ID, models.PromoCodeSilver, "AB12C")
	assert.Equal(t, "HSAB12C", view.Code)

	_, err := env.promos.Issue(context.Background(), second.ID, models.IssuePromoCodeRequest{
		Type:   models.PromoCodeSilver,
		Suffix: "ab12c",
	})
	assertKind(t, err, KindDuplicateCode)

	// nothing charged for the failed attempt
	assertDecimal(t, 1000, env.balance(t, second.ID))
	codes, err := env.promos.GetUserCodes(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestIssueRejectsBadSuffix(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "user@example.com", 1000)

	_, err := env.promos.Issue(context.Background(), user.ID, models.IssuePromoCodeRequest{
		Type:   models.PromoCodeSilver,
		Suffix: "AB-2C",
	})
	assertKind(t, err, KindInvalidFormat)
}

func TestIssueOneLiveCodePerUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "user@example.com", 1000)
	env.issue(t, user.ID, models.PromoCodeSilver, "")

	_, err := env.promos.Issue(context.Background(), user.ID, models.IssuePromoCodeRequest{Type: models.PromoCodeGold})
	assertKind(t, err, KindAlreadyHasCode)
	assertDecimal(t, 950, env.balance(t, user.ID))
}

func TestIssueReusesExpiredCodeAndSlot(t *testing.T) {
	env := newTestEnv(t)
	first := env.createUser(t, "first@example.com", 0)
	second := env.createUser(t, "second@example.com", 0)

	env.issue(t, first.ID, models.PromoCodeFree, "AB12C")
	env.clock.Advance(91 * day)

	// the expired code value is free again
	view := env.issue(t, second.ID, models.PromoCodeFree, "AB12C")
	assert.Equal(t, "HSAB12C", view.Code)
	assert.Equal(t, second.ID, view.OwnerID)

	// and so is the first user's slot
	env.issue(t, first.ID, models.PromoCodeFree, "")

	codes, err := env.promos.GetUserCodes(context.Background(), first.ID)
	require.NoError(t, err)
	require.Len(t, codes, 2)
	states := []models.PromoCodeState{codes[0].State, codes[1].State}
	assert.Contains(t, states, models.PromoCodeStateExpired)
	assert.Contains(t, states, models.PromoCodeStateActive)
}

func TestIssueInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "poor@example.com", 10)

	_, err := env.promos.Issue(context.Background(), user.ID, models.IssuePromoCodeRequest{Type: models.PromoCodeDiamond})
	assertKind(t, err, KindInsufficientBalance)

	assertDecimal(t, 10, env.balance(t, user.ID))
	codes, err := env.promos.GetUserCodes(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestIssueUnknownTier(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "user@example.com", 1000)

	_, err := env.promos.Issue(context.Background(), user.ID, models.IssuePromoCodeRequest{Type: "platinum"})
	assertKind(t, err, KindInvalidRequest)
}

func TestIssueUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.promos.Issue(context.Background(), 42, models.IssuePromoCodeRequest{Type: models.PromoCodeFree})
	assertKind(t, err, KindNotFound)
}

func TestCheckAvailability(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "user@example.com", 0)
	env.issue(t, user.ID, models.PromoCodeFree, "AB12C")

	result, err := env.promos.CheckAvailability(context.Background(), "ab12c")
	require.NoError(t, err)
	assert.False(t, result.Available)

	result, err = env.promos.CheckAvailability(context.Background(), "HSZZ999")
	require.NoError(t, err)
	assert.True(t, result.Available)

	env.clock.Advance(91 * day)
	result, err = env.promos.CheckAvailability(context.Background(), "HSAB12C")
	require.NoError(t, err)
	assert.True(t, result.Available)

	_, err = env.promos.CheckAvailability(context.Background(), "XX12345")
	assertKind(t, err, KindInvalidFormat)
}

func TestQuoteDiscount(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "user@example.com", 1000)
	env.issue(t, user.ID, models.PromoCodeDiamond, "DIAM0")

	quote, err := env.promos.QuoteDiscount(context.Background(), "hsdiam0", decimal.NewFromInt(2000))
	require.NoError(t, err)
	assert.Equal(t, 15, quote.DiscountPercent)
	assertDecimal(t, 300, quote.DiscountAmount)
	assertDecimal(t, 1700, quote.FinalPrice)
	assertDecimal(t, 17, quote.FinalPriceHSC)

	_, err = env.promos.QuoteDiscount(context.Background(), "HSNONE0", decimal.NewFromInt(2000))
	assertKind(t, err, KindNotFound)

	env.clock.Advance(366 * day)
	_, err = env.promos.QuoteDiscount(context.Background(), "HSDIAM0", decimal.NewFromInt(2000))
	assertKind(t, err, KindExpired)
}

func TestListForResaleComputesFiatPrice(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller@example.com", 1000)
	env.issue(t, seller.ID, models.PromoCodeGold, "SELL1")

	view, err := env.promos.ListForResale(context.Background(), seller.ID, "HSSELL1", models.ListForResaleRequest{
		PriceHSC:    decimal.NewFromInt(500),
		Description: "one year gold",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PromoCodeStatusListed, view.Status)
	assert.Equal(t, models.PromoCodeStateListed, view.State)
	assertDecimal(t, 500, view.SellingPriceHSC)
	assertDecimal(t, 50000, view.SellingPriceLKR)
	require.NotNil(t, view.SellingListedAt)
}

func TestListForResaleKeepsFiatPriceWhenRateChanges(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller@example.com", 1000)
	buyer := env.createUser(t, "buyer@example.com", 1000)
	env.issue(t, seller.ID, models.PromoCodeGold, "SELL1")

	_, err := env.promos.ListForResale(context.Background(), seller.ID, "HSSELL1", models.ListForResaleRequest{
		PriceHSC: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	env.setHSCRate(t, 120)

	page, err := env.market.List(context.Background(), models.MarketplaceQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assertDecimal(t, 50000, page.Items[0].SellingPriceLKR)

	result, err := env.promos.Buy(context.Background(), buyer.ID, "HSSELL1")
	require.NoError(t, err)
	assertDecimal(t, 500, result.NewBalance)

	sales, err := env.promos.GetSales(context.Background(), buyer.ID, "HSSELL1")
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assertDecimal(t, 50000, sales[0].PriceLKR)

	// the previous owner and strangers cannot read the history
	_, err = env.promos.GetSales(context.Background(), seller.ID, "HSSELL1")
	assertKind(t, err, KindNotOwner)
	stranger := env.createUser(t, "stranger@example.com", 0)
	_, err = env.promos.GetSales(context.Background(), stranger.ID, "HSSELL1")
	assertKind(t, err, KindNotOwner)
}

func TestListForResaleErrors(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@example.com", 1000)
	other := env.createUser(t, "other@example.com", 1000)
	env.issue(t, owner.ID, models.PromoCodeSilver, "LIST1")
	ctx := context.Background()
	req := models.ListForResaleRequest{PriceHSC: decimal.NewFromInt(100)}

	_, err := env.promos.ListForResale(ctx, owner.ID, "HSLIST1", models.ListForResaleRequest{PriceHSC: decimal.Zero})
	assertKind(t, err, KindInvalidAmount)

	// token amounts are whole numbers
	_, err = env.promos.ListForResale(ctx, owner.ID, "HSLIST1", models.ListForResaleRequest{PriceHSC: decimal.RequireFromString("0.5")})
	assertKind(t, err, KindInvalidAmount)
	_, err = env.promos.ListForResale(ctx, owner.ID, "HSLIST1", models.ListForResaleRequest{PriceHSC: decimal.RequireFromString("100.25")})
	assertKind(t, err, KindInvalidAmount)

	_, err = env.promos.ListForResale(ctx, owner.ID, "HSNOPE1", req)
	assertKind(t, err, KindNotFound)

	_, err = env.promos.ListForResale(ctx, other.ID, "HSLIST1", req)
	assertKind(t, err, KindNotOwner)

	_, err = env.promos.ListForResale(ctx, owner.ID, "HSLIST1", req)
	require.NoError(t, err)

	_, err = env.promos.ListForResale(ctx, owner.ID, "HSLIST1", req)
	assertKind(t, err, KindAlreadyListed)

	env.clock.Advance(366 * day)
	_, err = env.promos.Delist(ctx, owner.ID, "HSLIST1")
	require.NoError(t, err)
	_, err = env.promos.ListForResale(ctx, owner.ID, "HSLIST1", req)
	assertKind(t, err, KindExpired)
}

func TestDelist(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@example.com", 1000)
	other := env.createUser(t, "other@example.com", 1000)
	env.issue(t, owner.ID, models.PromoCodeSilver, "DLST1")
	ctx := context.Background()

	_, err := env.promos.Delist(ctx, owner.ID, "HSDLST1")
	assertKind(t, err, KindNoLongerListed)

	_, err = env.promos.ListForResale(ctx, owner.ID, "HSDLST1", models.ListForResaleRequest{PriceHSC: decimal.NewFromInt(80)})
	require.NoError(t, err)

	_, err = env.promos.Delist(ctx, other.ID, "HSDLST1")
	assertKind(t, err, KindNotOwner)

	view, err := env.promos.Delist(ctx, owner.ID, "HSDLST1")
	require.NoError(t, err)
	assert.Equal(t, models.PromoCodeStateActive, view.State)
	assert.True(t, view.SellingPriceHSC.IsZero())
	assert.Nil(t, view.SellingListedAt)

	_, err = env.promos.Buy(ctx, other.ID, "HSDLST1")
	assertKind(t, err, KindNoLongerListed)
}

func TestBuyTransfersOwnership(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller@example.com", 1000)
	buyer := env.createUser(t, "buyer@example.com", 1000)
	env.issue(t, seller.ID, models.PromoCodeGold, "SELL1")
	ctx := context.Background()

	_, err := env.promos.ListForResale(ctx, seller.ID, "HSSELL1", models.ListForResaleRequest{PriceHSC: decimal.NewFromInt(500)})
	require.NoError(t, err)

	result, err := env.promos.Buy(ctx, buyer.ID, "HSSELL1")
	require.NoError(t, err)

	assert.Equal(t, buyer.ID, result.PromoCode.OwnerID)
	assert.Equal(t, models.PromoCodeStateActive, result.PromoCode.State)
	assertDecimal(t, 500, result.NewBalance)
	assertDecimal(t, 500, env.balance(t, buyer.ID))
	assertDecimal(t, 1400, env.balance(t, seller.ID))

	buyerCodes, err := env.promos.GetUserCodes(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, buyerCodes, 1)
	assert.Equal(t, "HSSELL1", buyerCodes[0].Code)
	assert.Equal(t, models.PromoCodeStatusActive, buyerCodes[0].Status)

	// the seller's slot is free again
	env.issue(t, seller.ID, models.PromoCodeFree, "")

	sellerTxs, _, err := env.users.GetTransactions(ctx, seller.ID, 1, 10)
	require.NoError(t, err)
	var income int
	for _, tx := range sellerTxs {
		if tx.Type == models.TransactionResaleIncome {
			income++
			assertDecimal(t, 500, tx.Amount)
		}
	}
	assert.Equal(t, 1, income)
}

func TestBuyInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller@example.com", 1000)
	buyer := env.createUser(t, "buyer@example.com", 400)
	env.issue(t, seller.ID, models.PromoCodeGold, "SELL1")
	ctx := context.Background()

	view, err := env.promos.ListForResale(ctx, seller.ID, "HSSELL1", models.ListForResaleRequest{PriceHSC: decimal.NewFromInt(500)})
	require.NoError(t, err)
	assertDecimal(t, 50000, view.SellingPriceLKR)

	_, err = env.promos.Buy(ctx, buyer.ID, "HSSELL1")
	assertKind(t, err, KindInsufficientBalance)

	assertDecimal(t, 400, env.balance(t, buyer.ID))
	assertDecimal(t, 900, env.balance(t, seller.ID))

	page, err := env.market.List(ctx, models.MarketplaceQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, seller.ID, page.Items[0].OwnerID)
}

func TestBuyConcurrentExactlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller@example.com", 1000)
	env.issue(t, seller.ID, models.PromoCodeGold, "RACE1")
	ctx := context.Background()

	_, err := env.promos.ListForResale(ctx, seller.ID, "HSRACE1", models.ListForResaleRequest{PriceHSC: decimal.NewFromInt(300)})
	require.NoError(t, err)

	const buyers = 5
	ids := make([]uint, buyers)
	for i := range ids {
		ids[i] = env.createUser(t, "buyer"+string(rune('a'+i))+"@example.com", 1000).ID
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.promos.Buy(ctx, ids[i], "HSRACE1")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assertKind(t, err, KindNoLongerListed)
	}
	assert.Equal(t, 1, winners)

	// exactly one payment moved
	assertDecimal(t, 1200, env.balance(t, seller.ID))
	paid := 0
	for _, id := range ids {
		if env.balance(t, id).Equal(decimal.NewFromInt(700)) {
			paid++
		}
	}
	assert.Equal(t, 1, paid)
}

func TestBuyRejections(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller@example.com", 1000)
	holder := env.createUser(t, "holder@example.com", 1000)
	env.issue(t, seller.ID, models.PromoCodeGold, "SELL1")
	env.issue(t, holder.ID, models.PromoCodeSilver, "HOLD1")
	ctx := context.Background()

	_, err := env.promos.ListForResale(ctx, seller.ID, "HSSELL1", models.ListForResaleRequest{PriceHSC: decimal.NewFromInt(100)})
	require.NoError(t, err)

	_, err = env.promos.Buy(ctx, seller.ID, "HSSELL1")
	assertKind(t, err, KindInvalidRequest)

	_, err = env.promos.Buy(ctx, holder.ID, "HSSELL1")
	assertKind(t, err, KindAlreadyHasCode)

	_, err = env.promos.Buy(ctx, holder.ID, "HSNONE1")
	assertKind(t, err, KindNotFound)

	env.clock.Advance(366 * day)
	_, err = env.promos.Buy(ctx, holder.ID, "HSSELL1")
	assertKind(t, err, KindExpired)
}

func TestIssueConcurrentSameSuffixOneWins(t *testing.T) {
	env := newTestEnv(t)
	cfg := testEngineConfig()
	tiers, err := NewTierTable(cfg.Tiers)
	require.NoError(t, err)

	// each service has its own lock table, as separate processes would;
	// only the reserved_code unique index is shared
	svcs := []*PromoCodeService{
		NewPromoCodeService(env.repo, env.rates, tiers, cfg, NewKeyedMutex(), zap.NewNop(), nil),
		NewPromoCodeService(env.repo, env.rates, tiers, cfg, NewKeyedMutex(), zap.NewNop(), nil),
	}
	users := make([]uint, len(svcs))
	for i, svc := range svcs {
		svc.SetClock(env.clock.Now)
		users[i] = env.createUser(t, fmt.Sprintf("racer%d@example.com", i), 1000).ID
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, len(svcs))
	for i := range svcs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svcs[i].Issue(context.Background(), users[i], models.IssuePromoCodeRequest{
				Type:   models.PromoCodeSilver,
				Suffix: "AB12C",
			})
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assertKind(t, err, KindDuplicateCode)
	}
	assert.Equal(t, 1, winners)

	var rows int64
	require.NoError(t, env.db.Model(&models.PromoCode{}).Where("code = ?", "HSAB12C").Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}
