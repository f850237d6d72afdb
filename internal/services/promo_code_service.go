package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"holidaysri-engine/internal/config"
	"holidaysri-engine/internal/metrics"
	"holidaysri-engine/internal/models"
	"holidaysri-engine/internal/repository"
)

// PromoCodeService handles the promo code lifecycle: issue, resale listing and purchase
type PromoCodeService struct {
	repo      *repository.Repository
	rates     *ExchangeRateService
	tiers     TierTable
	generator *CodeGenerator
	attempts  int
	locks     *KeyedMutex
	retry     retrier
	logger    *zap.Logger
	metrics   *metrics.EngineMetrics
	now       func() time.Time
}

// NewPromoCodeService creates a new PromoCodeService
func NewPromoCodeService(
	repo *repository.Repository,
	rates *ExchangeRateService,
	tiers TierTable,
	cfg config.EngineConfig,
	locks *KeyedMutex,
	logger *zap.Logger,
	m *metrics.EngineMetrics,
) *PromoCodeService {
	attempts := cfg.GenerateAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &PromoCodeService{
		repo:      repo,
		rates:     rates,
		tiers:     tiers,
		generator: NewCodeGenerator(cfg.CodePrefix),
		attempts:  attempts,
		locks:     locks,
		retry:     newRetrier(cfg, logger, m),
		logger:    logger,
		metrics:   m,
		now:       utcNow,
	}
}

// SetClock replaces the time source
func (s *PromoCodeService) SetClock(now func() time.Time) {
	s.now = now
}

// ============================================================================
// Issue
// ============================================================================

// Issue creates a new code for userID at the requested tier. The price in HSC is
// taken from the exchange rate in force when the call starts.
func (s *PromoCodeService) Issue(ctx context.Context, userID uint, req models.IssuePromoCodeRequest) (*models.PromoCodeView, error) {
	start := time.Now()
	promo, err := s.issue(ctx, userID, req)
	observe(s.metrics, "issue", start, err)
	if err != nil {
		return nil, err
	}

	view := models.NewPromoCodeView(*promo, s.now())
	return &view, nil
}

func (s *PromoCodeService) issue(ctx context.Context, userID uint, req models.IssuePromoCodeRequest) (*models.PromoCode, error) {
	tier, err := s.tiers.Lookup(req.Type)
	if err != nil {
		return nil, err
	}

	rates, err := s.rates.Current(ctx)
	if err != nil {
		return nil, err
	}
	price, err := tier.PriceTokens(rates.HSCValue)
	if err != nil {
		return nil, err
	}

	if req.Suffix != "" {
		code, err := s.generator.FromSuffix(req.Suffix)
		if err != nil {
			return nil, err
		}
		return s.issueCode(ctx, userID, code, tier, price)
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		code, err := s.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}

		promo, err := s.issueCode(ctx, userID, code, tier, price)
		if errors.Is(err, ErrDuplicateCode) {
			s.logger.Debug("generated code already taken", zap.String("code", code), zap.Int("attempt", attempt))
			continue
		}
		return promo, err
	}

	return nil, newError(KindOperationFailed, "", "could not generate an unused code")
}

func (s *PromoCodeService) issueCode(
	ctx context.Context,
	userID uint,
	code string,
	tier Tier,
	price decimal.Decimal,
) (*models.PromoCode, error) {
	unlockUser := s.locks.Lock(userKey(userID))
	defer unlockUser()
	unlockCode := s.locks.Lock(codeKey(code))
	defer unlockCode()

	var promo *models.PromoCode
	err := s.retry.do(ctx, "issue", func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			now := s.now()

			user, err := tx.GetUserForUpdate(ctx, userID)
			if errors.Is(err, repository.ErrNotFound) {
				return newError(KindNotFound, fmt.Sprint(userID), "user not found")
			}
			if err != nil {
				return err
			}

			if err := clearOwnerSlot(ctx, tx, userID, now); err != nil {
				return err
			}
			if err := clearCodeValue(ctx, tx, code, now); err != nil {
				return err
			}

			if price.IsPositive() {
				if user.HSCBalance.LessThan(price) {
					return newError(KindInsufficientBalance, fmt.Sprint(userID), "not enough HSC to buy this promo code")
				}
				balance := user.HSCBalance.Sub(price)
				if err := tx.SetBalance(ctx, userID, models.TokenHSC, balance); err != nil {
					return err
				}
				err := tx.CreateTransaction(ctx, &models.Transaction{
					UserID:       userID,
					Type:         models.TransactionIssueCharge,
					Token:        models.TokenHSC,
					Amount:       price.Neg(),
					BalanceAfter: balance,
					Reference:    code,
					Description:  fmt.Sprintf("Purchased %s promo code %s", tier.Type, code),
				})
				if err != nil {
					return err
				}
			}

			reserved := code
			slot := userID
			candidate := &models.PromoCode{
				Code:            code,
				ReservedCode:    &reserved,
				OwnerID:         userID,
				OwnerSlot:       &slot,
				Type:            tier.Type,
				Status:          models.PromoCodeStatusActive,
				IsActive:        true,
				ExpirationDate:  now.Add(tier.Validity),
				DiscountPercent: tier.DiscountPercent,
				EarningPercent:  tier.EarningPercent,
			}
			if err := tx.CreatePromoCode(ctx, candidate); err != nil {
				if repository.IsDuplicateKey(err) {
					return newError(KindDuplicateCode, code, "promo code already exists")
				}
				return err
			}

			promo = candidate
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("promo code issued",
		zap.String("code", promo.Code),
		zap.Uint("user_id", userID),
		zap.String("type", string(promo.Type)),
		zap.String("price_hsc", price.String()),
	)
	return promo, nil
}

// clearOwnerSlot fails when the user already owns a live code and releases an
// expired one so the slot can be reused
func clearOwnerSlot(ctx context.Context, tx *repository.Repository, userID uint, now time.Time) error {
	held, err := tx.GetByOwnerSlot(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !held.IsExpired(now) {
		return newError(KindAlreadyHasCode, held.Code, "user already owns a live promo code")
	}
	return tx.ReleaseReservation(ctx, held.ID)
}

// clearCodeValue fails when a live row holds code and releases an expired holder
func clearCodeValue(ctx context.Context, tx *repository.Repository, code string, now time.Time) error {
	held, err := tx.GetLiveByCodeForUpdate(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !held.IsExpired(now) {
		return newError(KindDuplicateCode, code, "promo code already exists")
	}
	return tx.ReleaseReservation(ctx, held.ID)
}

// CheckAvailability reports whether a code, or a bare custom suffix, can be claimed right now
func (s *PromoCodeService) CheckAvailability(ctx context.Context, value string) (*models.CodeAvailability, error) {
	code := Normalize(value)
	if len(code) == SuffixLength {
		code = s.generator.Prefix() + code
	}
	if err := s.generator.ValidateFormat(code); err != nil {
		return nil, err
	}

	result := &models.CodeAvailability{Code: code, Available: true}
	held, err := s.repo.GetLiveByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	if !held.IsExpired(s.now()) {
		result.Available = false
		result.Reason = "code is already taken"
	}
	return result, nil
}

// GetUserCodes lists every code the user has owned, with expiry evaluated now
func (s *PromoCodeService) GetUserCodes(ctx context.Context, userID uint) ([]models.PromoCodeView, error) {
	codes, err := s.repo.GetUserPromoCodes(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]models.PromoCodeView, 0, len(codes))
	for _, c := range codes {
		views = append(views, models.NewPromoCodeView(c, now))
	}
	return views, nil
}

// GetSales returns the resale history of the live row holding code.
// Only the current owner may read it.
func (s *PromoCodeService) GetSales(ctx context.Context, userID uint, code string) ([]models.PromoCodeSale, error) {
	promo, err := s.lookupLive(ctx, code)
	if err != nil {
		return nil, err
	}
	if promo.OwnerID != userID {
		return nil, newError(KindNotOwner, promo.Code, "only the owner can view the sale history")
	}
	return s.repo.GetPromoCodeSales(ctx, promo.ID)
}

func (s *PromoCodeService) lookupLive(ctx context.Context, code string) (*models.PromoCode, error) {
	code = Normalize(code)
	if err := s.generator.ValidateFormat(code); err != nil {
		return nil, err
	}
	promo, err := s.repo.GetLiveByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(KindNotFound, code, "promo code not found")
	}
	if err != nil {
		return nil, err
	}
	return promo, nil
}

// QuoteDiscount applies a code's discount to a base price without changing anything
func (s *PromoCodeService) QuoteDiscount(ctx context.Context, code string, basePrice decimal.Decimal) (*models.DiscountQuote, error) {
	promo, err := s.lookupLive(ctx, code)
	if err != nil {
		return nil, err
	}
	if promo.IsExpired(s.now()) {
		return nil, newError(KindExpired, promo.Code, "promo code has expired")
	}
	if !promo.IsActive {
		return nil, newError(KindInvalidRequest, promo.Code, "promo code is disabled")
	}

	final, err := ApplyDiscount(basePrice, promo.DiscountPercent)
	if err != nil {
		return nil, err
	}
	quote := &models.DiscountQuote{
		Code:            promo.Code,
		BasePrice:       basePrice,
		DiscountPercent: promo.DiscountPercent,
		DiscountAmount:  basePrice.Sub(final),
		FinalPrice:      final,
		FinalPriceHSC:   decimal.Zero,
	}
	if final.IsPositive() {
		rates, err := s.rates.Current(ctx)
		if err != nil {
			return nil, err
		}
		if quote.FinalPriceHSC, err = TokenEquivalent(final, rates.HSCValue); err != nil {
			return nil, err
		}
	}
	return quote, nil
}

// ============================================================================
// Resale
// ============================================================================

// ListForResale puts an owned, unexpired code on the marketplace. The fiat price
// is computed once from the rate in force at listing time and never recomputed.
func (s *PromoCodeService) ListForResale(ctx context.Context, userID uint, code string, req models.ListForResaleRequest) (*models.PromoCodeView, error) {
	start := time.Now()
	promo, err := s.listForResale(ctx, userID, Normalize(code), req)
	observe(s.metrics, "list_for_resale", start, err)
	if err != nil {
		return nil, err
	}

	view := models.NewPromoCodeView(*promo, s.now())
	return &view, nil
}

func (s *PromoCodeService) listForResale(ctx context.Context, userID uint, code string, req models.ListForResaleRequest) (*models.PromoCode, error) {
	if !req.PriceHSC.IsPositive() {
		return nil, newError(KindInvalidAmount, req.PriceHSC.String(), "selling price must be positive")
	}
	if !req.PriceHSC.Equal(req.PriceHSC.Truncate(0)) {
		return nil, newError(KindInvalidAmount, req.PriceHSC.String(), "selling price must be a whole number of HSC")
	}

	rates, err := s.rates.Current(ctx)
	if err != nil {
		return nil, err
	}
	priceLKR, err := ToFiat(req.PriceHSC, rates.HSCValue)
	if err != nil {
		return nil, err
	}

	unlockUser := s.locks.Lock(userKey(userID))
	defer unlockUser()
	unlockCode := s.locks.Lock(codeKey(code))
	defer unlockCode()

	var listed *models.PromoCode
	err = s.retry.do(ctx, "list_for_resale", func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			now := s.now()

			promo, err := tx.GetLiveByCodeForUpdate(ctx, code)
			if errors.Is(err, repository.ErrNotFound) {
				return newError(KindNotFound, code, "promo code not found")
			}
			if err != nil {
				return err
			}
			if promo.OwnerID != userID {
				return newError(KindNotOwner, code, "only the owner can list this promo code")
			}
			if promo.IsExpired(now) {
				return newError(KindExpired, code, "promo code has expired")
			}
			if promo.Status == models.PromoCodeStatusListed {
				return newError(KindAlreadyListed, code, "promo code is already listed")
			}

			rows, err := tx.UpdatePromoCodeIfVersion(ctx, promo.ID, promo.Version, models.PromoCodeStatusActive, map[string]interface{}{
				"status":              models.PromoCodeStatusListed,
				"selling_price_hsc":   req.PriceHSC,
				"selling_price_lkr":   priceLKR,
				"selling_description": req.Description,
				"selling_listed_at":   now,
			})
			if err != nil {
				return err
			}
			if rows == 0 {
				return errConflict
			}

			promo.Status = models.PromoCodeStatusListed
			promo.SellingPriceHSC = req.PriceHSC
			promo.SellingPriceLKR = priceLKR
			promo.SellingDescription = req.Description
			promo.SellingListedAt = &now
			promo.Version++
			listed = promo
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("promo code listed for resale",
		zap.String("code", code),
		zap.Uint("user_id", userID),
		zap.String("price_hsc", req.PriceHSC.String()),
		zap.String("price_lkr", priceLKR.String()),
	)
	return listed, nil
}

// Delist takes a listed code off the marketplace
func (s *PromoCodeService) Delist(ctx context.Context, userID uint, code string) (*models.PromoCodeView, error) {
	start := time.Now()
	code = Normalize(code)

	unlockUser := s.locks.Lock(userKey(userID))
	defer unlockUser()
	unlockCode := s.locks.Lock(codeKey(code))
	defer unlockCode()

	var delisted *models.PromoCode
	err := s.retry.do(ctx, "delist", func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			promo, err := tx.GetLiveByCodeForUpdate(ctx, code)
			if errors.Is(err, repository.ErrNotFound) {
				return newError(KindNotFound, code, "promo code not found")
			}
			if err != nil {
				return err
			}
			if promo.OwnerID != userID {
				return newError(KindNotOwner, code, "only the owner can delist this promo code")
			}
			if promo.Status != models.PromoCodeStatusListed {
				return newError(KindNoLongerListed, code, "promo code is not listed")
			}

			rows, err := tx.UpdatePromoCodeIfVersion(ctx, promo.ID, promo.Version, models.PromoCodeStatusListed, clearedListing())
			if err != nil {
				return err
			}
			if rows == 0 {
				return errConflict
			}

			resetListing(promo)
			promo.Version++
			delisted = promo
			return nil
		})
	})
	observe(s.metrics, "delist", start, err)
	if err != nil {
		return nil, err
	}

	view := models.NewPromoCodeView(*delisted, s.now())
	return &view, nil
}

func clearedListing() map[string]interface{} {
	return map[string]interface{}{
		"status":              models.PromoCodeStatusActive,
		"selling_price_hsc":   decimal.Zero,
		"selling_price_lkr":   decimal.Zero,
		"selling_description": "",
		"selling_listed_at":   nil,
	}
}

func resetListing(promo *models.PromoCode) {
	promo.Status = models.PromoCodeStatusActive
	promo.SellingPriceHSC = decimal.Zero
	promo.SellingPriceLKR = decimal.Zero
	promo.SellingDescription = ""
	promo.SellingListedAt = nil
}

// Buy transfers a listed code to buyerID. Payment, ownership change and the sale
// record commit together or not at all; of two concurrent buyers exactly one wins
// and the other gets NO_LONGER_LISTED.
func (s *PromoCodeService) Buy(ctx context.Context, buyerID uint, code string) (*models.BuyResult, error) {
	start := time.Now()
	result, err := s.buy(ctx, buyerID, Normalize(code))
	observe(s.metrics, "buy", start, err)
	return result, err
}

func (s *PromoCodeService) buy(ctx context.Context, buyerID uint, code string) (*models.BuyResult, error) {
	unlockUser := s.locks.Lock(userKey(buyerID))
	defer unlockUser()
	unlockCode := s.locks.Lock(codeKey(code))
	defer unlockCode()

	var result *models.BuyResult
	var sale *models.PromoCodeSale
	err := s.retry.do(ctx, "buy", func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			now := s.now()

			promo, err := tx.GetLiveByCodeForUpdate(ctx, code)
			if errors.Is(err, repository.ErrNotFound) {
				return newError(KindNotFound, code, "promo code not found")
			}
			if err != nil {
				return err
			}
			if promo.Status != models.PromoCodeStatusListed {
				return newError(KindNoLongerListed, code, "promo code is no longer listed")
			}
			if promo.IsExpired(now) {
				return newError(KindExpired, code, "promo code has expired")
			}
			if promo.OwnerID == buyerID {
				return newError(KindInvalidRequest, code, "cannot buy your own promo code")
			}

			if err := clearOwnerSlot(ctx, tx, buyerID, now); err != nil {
				return err
			}

			buyer, err := tx.GetUserForUpdate(ctx, buyerID)
			if errors.Is(err, repository.ErrNotFound) {
				return newError(KindNotFound, fmt.Sprint(buyerID), "user not found")
			}
			if err != nil {
				return err
			}
			seller, err := tx.GetUserForUpdate(ctx, promo.OwnerID)
			if err != nil {
				return err
			}

			price := promo.SellingPriceHSC
			if buyer.HSCBalance.LessThan(price) {
				return newError(KindInsufficientBalance, fmt.Sprint(buyerID), "not enough HSC to buy this promo code")
			}

			buyerBalance := buyer.HSCBalance.Sub(price)
			sellerBalance := seller.HSCBalance.Add(price)
			if err := tx.SetBalance(ctx, buyer.ID, models.TokenHSC, buyerBalance); err != nil {
				return err
			}
			if err := tx.SetBalance(ctx, seller.ID, models.TokenHSC, sellerBalance); err != nil {
				return err
			}
			err = tx.CreateTransaction(ctx, &models.Transaction{
				UserID:       buyer.ID,
				Type:         models.TransactionResalePurchase,
				Token:        models.TokenHSC,
				Amount:       price.Neg(),
				BalanceAfter: buyerBalance,
				Reference:    code,
				Description:  "Bought promo code " + code,
			})
			if err != nil {
				return err
			}
			err = tx.CreateTransaction(ctx, &models.Transaction{
				UserID:       seller.ID,
				Type:         models.TransactionResaleIncome,
				Token:        models.TokenHSC,
				Amount:       price,
				BalanceAfter: sellerBalance,
				Reference:    code,
				Description:  "Sold promo code " + code,
			})
			if err != nil {
				return err
			}

			updates := clearedListing()
			updates["owner_id"] = buyer.ID
			updates["owner_slot"] = buyer.ID
			rows, err := tx.UpdatePromoCodeIfVersion(ctx, promo.ID, promo.Version, models.PromoCodeStatusListed, updates)
			if err != nil {
				return err
			}
			if rows == 0 {
				return errConflict
			}

			sale = &models.PromoCodeSale{
				PromoCodeID: promo.ID,
				Code:        promo.Code,
				SellerID:    seller.ID,
				BuyerID:     buyer.ID,
				PriceHSC:    price,
				PriceLKR:    promo.SellingPriceLKR,
				SoldAt:      now,
			}
			if err := tx.CreateSale(ctx, sale); err != nil {
				return err
			}

			slot := buyer.ID
			promo.OwnerID = buyer.ID
			promo.OwnerSlot = &slot
			resetListing(promo)
			promo.Version++
			result = &models.BuyResult{
				PromoCode:  models.NewPromoCodeView(*promo, now),
				NewBalance: buyerBalance,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("promo code sold",
		zap.String("code", code),
		zap.Uint("seller_id", sale.SellerID),
		zap.Uint("buyer_id", sale.BuyerID),
		zap.String("price_hsc", sale.PriceHSC.String()),
	)
	return result, nil
}
