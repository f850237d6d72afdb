package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"holidaysri-engine/internal/config"
	"holidaysri-engine/internal/database"
	"holidaysri-engine/internal/models"
	"holidaysri-engine/internal/repository"
)

// testClock is a settable time source shared by every service in a test env
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db       *gorm.DB
	repo     *repository.Repository
	clock    *testClock
	rates    *ExchangeRateService
	promos   *PromoCodeService
	earnings *EarningsService
	market   *MarketplaceService
	users    *UserService
}

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		CodePrefix:         "HS",
		Currency:           "LKR",
		MinClaimFiat:       "5000",
		DefaultHSCValue:    "100",
		DefaultHSGValue:    "100",
		DefaultHSDValue:    "100",
		GenerateAttempts:   10,
		RetryAttempts:      3,
		RetryBaseDelay:     time.Millisecond,
		MarketplacePageMax: 100,
		Tiers:              config.DefaultTiers(),
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Each test gets its own named in-memory database
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db, zap.NewNop()))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	cfg := testEngineConfig()
	log := zap.NewNop()
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	rates, err := NewExchangeRateService(repo, nil, cfg, log)
	require.NoError(t, err)
	rates.SetClock(clock.Now)

	tiers, err := NewTierTable(cfg.Tiers)
	require.NoError(t, err)

	locks := NewKeyedMutex()
	promos := NewPromoCodeService(repo, rates, tiers, cfg, locks, log, nil)
	promos.SetClock(clock.Now)

	earnings, err := NewEarningsService(repo, rates, cfg, locks, log, nil)
	require.NoError(t, err)
	earnings.SetClock(clock.Now)

	market := NewMarketplaceService(repo, cfg.MarketplacePageMax)
	market.SetClock(clock.Now)

	return &testEnv{
		db:       db,
		repo:     repo,
		clock:    clock,
		rates:    rates,
		promos:   promos,
		earnings: earnings,
		market:   market,
		users:    NewUserService(repo, log),
	}
}

func (e *testEnv) createUser(t *testing.T, email string, hsc int64) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: email, HSCBalance: decimal.NewFromInt(hsc)}
	require.NoError(t, e.repo.CreateUser(context.Background(), user))
	return user
}

func (e *testEnv) balance(t *testing.T, userID uint) decimal.Decimal {
	t.Helper()
	user, err := e.repo.GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	return user.HSCBalance
}

func (e *testEnv) issue(t *testing.T, userID uint, typ models.PromoCodeType, suffix string) *models.PromoCodeView {
	t.Helper()
	view, err := e.promos.Issue(context.Background(), userID, models.IssuePromoCodeRequest{Type: typ, Suffix: suffix})
	require.NoError(t, err)
	return view
}

func (e *testEnv) setHSCRate(t *testing.T, value int64) {
	t.Helper()
	_, err := e.rates.Update(context.Background(), 1, models.UpdateExchangeRatesRequest{
		HSCValue: decimal.NewFromInt(value),
		HSGValue: decimal.NewFromInt(100),
		HSDValue: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
}

func assertDecimal(t *testing.T, expected int64, actual decimal.Decimal) {
	t.Helper()
	if !actual.Equal(decimal.NewFromInt(expected)) {
		t.Errorf("expected %d, got %s", expected, actual.String())
	}
}

func assertKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}
