package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"holidaysri-engine/internal/config"
	"holidaysri-engine/internal/metrics"
	"holidaysri-engine/internal/models"
	"holidaysri-engine/internal/repository"
)

// EarningsService records referral earnings and pays them out as fiat claims or HSC
type EarningsService struct {
	repo         *repository.Repository
	rates        *ExchangeRateService
	minClaimFiat decimal.Decimal
	locks        *KeyedMutex
	retry        retrier
	logger       *zap.Logger
	metrics      *metrics.EngineMetrics
	now          func() time.Time
}

// NewEarningsService creates a new EarningsService
func NewEarningsService(
	repo *repository.Repository,
	rates *ExchangeRateService,
	cfg config.EngineConfig,
	locks *KeyedMutex,
	logger *zap.Logger,
	m *metrics.EngineMetrics,
) (*EarningsService, error) {
	minClaim, err := decimal.NewFromString(cfg.MinClaimFiat)
	if err != nil {
		return nil, fmt.Errorf("min_claim_fiat: invalid amount %q: %w", cfg.MinClaimFiat, err)
	}

	return &EarningsService{
		repo:         repo,
		rates:        rates,
		minClaimFiat: minClaim,
		locks:        locks,
		retry:        newRetrier(cfg, logger, m),
		logger:       logger,
		metrics:      m,
		now:          utcNow,
	}, nil
}

// SetClock replaces the time source
func (s *EarningsService) SetClock(now func() time.Time) {
	s.now = now
}

// RecordEarning credits the owner of a code with a share of a referred purchase.
// The new record starts out completed and the code's usage counters move with it.
func (s *EarningsService) RecordEarning(ctx context.Context, req models.RecordEarningRequest) (*models.EarningsRecord, error) {
	start := time.Now()
	record, err := s.recordEarning(ctx, req)
	observe(s.metrics, "record_earning", start, err)
	return record, err
}

func (s *EarningsService) recordEarning(ctx context.Context, req models.RecordEarningRequest) (*models.EarningsRecord, error) {
	if !req.SpendHSC.IsPositive() {
		return nil, newError(KindInvalidAmount, req.SpendHSC.String(), "spend must be positive")
	}
	code := Normalize(req.Code)

	unlock := s.locks.Lock(codeKey(code))
	defer unlock()

	var record *models.EarningsRecord
	err := s.retry.do(ctx, "record_earning", func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			promo, err := tx.GetLiveByCodeForUpdate(ctx, code)
			if errors.Is(err, repository.ErrNotFound) {
				return newError(KindNotFound, code, "promo code not found")
			}
			if err != nil {
				return err
			}
			if promo.IsExpired(s.now()) {
				return newError(KindExpired, code, "promo code has expired")
			}
			if !promo.IsActive {
				return newError(KindInvalidRequest, code, "promo code is disabled")
			}
			if req.BuyerUserID != 0 && req.BuyerUserID == promo.OwnerID {
				return newError(KindInvalidRequest, code, "owners cannot earn from their own code")
			}

			earned := req.SpendHSC.Mul(decimal.NewFromInt(int64(promo.EarningPercent))).Div(hundred)
			if !earned.IsPositive() {
				return newError(KindInvalidAmount, earned.String(), "earning must be positive")
			}

			candidate := &models.EarningsRecord{
				UserID:       promo.OwnerID,
				PromoCodeID:  promo.ID,
				Code:         promo.Code,
				EarnedAmount: earned,
				Status:       models.EarningsCompleted,
				Category:     req.Category,
				Description:  req.Description,
				BuyerUserID:  req.BuyerUserID,
			}
			if err := tx.CreateEarningsRecord(ctx, candidate); err != nil {
				return err
			}

			rows, err := tx.UpdatePromoCodeIfVersion(ctx, promo.ID, promo.Version, promo.Status, map[string]interface{}{
				"used_count":      promo.UsedCount + 1,
				"total_referrals": promo.TotalReferrals + 1,
				"total_earnings":  promo.TotalEarnings.Add(earned),
			})
			if err != nil {
				return err
			}
			if rows == 0 {
				return errConflict
			}

			record = candidate
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("earning recorded",
		zap.String("code", code),
		zap.Uint("user_id", record.UserID),
		zap.String("earned", record.EarnedAmount.String()),
		zap.String("category", record.Category),
	)
	return record, nil
}

// ListEarnings returns one page of a user's records, optionally in one status
func (s *EarningsService) ListEarnings(
	ctx context.Context,
	userID uint,
	status models.EarningsStatus,
	page int,
	pageSize int,
) ([]models.EarningsRecord, models.Pagination, error) {
	switch status {
	case "", models.EarningsCompleted, models.EarningsProcessing, models.EarningsPaidAsLKR, models.EarningsPaidAsHSC:
	default:
		return nil, models.Pagination{}, newError(KindInvalidRequest, string(status), "unknown earnings status")
	}

	page, pageSize = normalizePage(page, pageSize, maxEarningsPage)
	records, total, err := s.repo.GetUserEarnings(ctx, userID, status, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return records, models.NewPagination(page, pageSize, total), nil
}

const (
	defaultPageSize = 12
	maxEarningsPage = 100
)

// normalizePage clamps paging input: page starts at 1 and size falls back to the
// default when missing and is capped at limit
func normalizePage(page, pageSize, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if limit > 0 && pageSize > limit {
		pageSize = limit
	}
	return page, pageSize
}

// Summary totals a user's earnings per status and says whether a claim is possible now
func (s *EarningsService) Summary(ctx context.Context, userID uint) (*models.EarningsSummary, error) {
	rates, err := s.rates.Current(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.GetAllUserEarnings(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &models.EarningsSummary{
		Completed:     decimal.Zero,
		Processing:    decimal.Zero,
		PaidAsLKR:     decimal.Zero,
		PaidAsHSC:     decimal.Zero,
		CompletedFiat: decimal.Zero,
		Currency:      rates.Currency,
		MinimumClaim:  s.minClaimFiat,
	}
	for _, r := range records {
		switch r.Status {
		case models.EarningsCompleted:
			summary.Completed = summary.Completed.Add(r.EarnedAmount)
			summary.CompletedCount++
		case models.EarningsProcessing:
			summary.Processing = summary.Processing.Add(r.EarnedAmount)
		case models.EarningsPaidAsLKR:
			summary.PaidAsLKR = summary.PaidAsLKR.Add(r.EarnedAmount)
		case models.EarningsPaidAsHSC:
			summary.PaidAsHSC = summary.PaidAsHSC.Add(r.EarnedAmount)
		}
	}
	if summary.Completed.IsPositive() {
		summary.CompletedFiat = summary.Completed.Mul(rates.HSCValue)
		summary.CanClaim = summary.CompletedFiat.GreaterThanOrEqual(s.minClaimFiat)
	}
	return summary, nil
}

// Claim bundles completed records into one fiat claim request. The fiat total is
// frozen at the rate read when the call starts. Nothing changes when any record is
// unclaimable or the total is below the minimum.
func (s *EarningsService) Claim(ctx context.Context, userID uint, req models.ClaimEarningsRequest) (*models.ClaimRequest, error) {
	start := time.Now()
	claim, err := s.claim(ctx, userID, req.RecordIDs)
	observe(s.metrics, "claim", start, err)
	if err != nil {
		return nil, err
	}

	fiat, _ := claim.TotalLKRAmount.Float64()
	s.metrics.Claimed(fiat)
	return claim, nil
}

func (s *EarningsService) claim(ctx context.Context, userID uint, recordIDs []uuid.UUID) (*models.ClaimRequest, error) {
	ids := dedupeIDs(recordIDs)

	rates, err := s.rates.Current(ctx)
	if err != nil {
		return nil, err
	}
	rate := rates.HSCValue

	unlock := s.locks.Lock(userKey(userID))
	defer unlock()

	var claim *models.ClaimRequest
	err = s.retry.do(ctx, "claim", func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			user, err := tx.GetUserForUpdate(ctx, userID)
			if errors.Is(err, repository.ErrNotFound) {
				return newError(KindNotFound, fmt.Sprint(userID), "user not found")
			}
			if err != nil {
				return err
			}
			method := user.PayoutMethod()
			if method == "" {
				return newError(KindPayoutMethodMissing, fmt.Sprint(userID), "add bank or wallet details before claiming")
			}
			if len(ids) == 0 {
				return newError(KindInvalidRequest, "", "no earnings records selected")
			}

			records, err := tx.GetUserEarningsByIDsForUpdate(ctx, userID, ids)
			if err != nil {
				return err
			}
			byID := make(map[uuid.UUID]models.EarningsRecord, len(records))
			for _, r := range records {
				byID[r.ID] = r
			}

			total := decimal.Zero
			for _, id := range ids {
				r, ok := byID[id]
				if !ok {
					return newError(KindInvalidRecord, id.String(), "earnings record not found")
				}
				if r.Status != models.EarningsCompleted {
					return newError(KindInvalidRecord, id.String(), "earnings record is not claimable")
				}
				total = total.Add(r.EarnedAmount)
			}

			fiat := total.Mul(rate)
			if !total.IsPositive() || fiat.LessThan(s.minClaimFiat) {
				return newError(KindBelowMinimum, fiat.String(),
					fmt.Sprintf("claims must total at least %s %s", s.minClaimFiat.String(), rates.Currency))
			}

			claimID := uuid.New()
			candidate := &models.ClaimRequest{
				ID:             claimID,
				Reference:      claimReference(claimID),
				UserID:         userID,
				TotalHSCAmount: total,
				TotalLKRAmount: fiat,
				ExchangeRate:   rate,
				Currency:       rates.Currency,
				PayoutMethod:   method,
				Status:         models.ClaimStatusPending,
				RecordCount:    len(ids),
				CreatedAt:      s.now(),
			}
			if err := tx.CreateClaimRequest(ctx, candidate); err != nil {
				return err
			}

			rows, err := tx.TransitionEarnings(ctx, ids, models.EarningsCompleted, models.EarningsProcessing, &claimID)
			if err != nil {
				return err
			}
			if rows != int64(len(ids)) {
				return errConflict
			}

			candidate.Records = make([]models.EarningsRecord, 0, len(ids))
			for _, id := range ids {
				r := byID[id]
				r.Status = models.EarningsProcessing
				r.ClaimRequestID = &claimID
				candidate.Records = append(candidate.Records, r)
			}
			claim = candidate
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("earnings claim created",
		zap.String("reference", claim.Reference),
		zap.Uint("user_id", userID),
		zap.Int("records", claim.RecordCount),
		zap.String("total_hsc", claim.TotalHSCAmount.String()),
		zap.String("total_fiat", claim.TotalLKRAmount.String()),
	)
	return claim, nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// claimReference is the short human-facing id printed on payout slips
func claimReference(id uuid.UUID) string {
	return "CLM-" + base58.Encode(id[:])
}

// ConvertToTokens moves every completed record to paid_as_hsc and credits the
// sum to the user's HSC balance. Calling it again with nothing completed is a no-op.
func (s *EarningsService) ConvertToTokens(ctx context.Context, userID uint) (*models.ConversionResult, error) {
	start := time.Now()
	result, err := s.convertToTokens(ctx, userID)
	observe(s.metrics, "convert", start, err)
	return result, err
}

func (s *EarningsService) convertToTokens(ctx context.Context, userID uint) (*models.ConversionResult, error) {
	unlock := s.locks.Lock(userKey(userID))
	defer unlock()

	var result *models.ConversionResult
	err := s.retry.do(ctx, "convert", func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			user, err := tx.GetUserForUpdate(ctx, userID)
			if errors.Is(err, repository.ErrNotFound) {
				return newError(KindNotFound, fmt.Sprint(userID), "user not found")
			}
			if err != nil {
				return err
			}

			records, err := tx.GetUserEarningsByStatus(ctx, userID, models.EarningsCompleted)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				result = &models.ConversionResult{ConvertedAmount: decimal.Zero, NewBalance: user.HSCBalance}
				return nil
			}

			total := decimal.Zero
			ids := make([]uuid.UUID, 0, len(records))
			for _, r := range records {
				total = total.Add(r.EarnedAmount)
				ids = append(ids, r.ID)
			}

			rows, err := tx.TransitionEarnings(ctx, ids, models.EarningsCompleted, models.EarningsPaidAsHSC, nil)
			if err != nil {
				return err
			}
			if rows != int64(len(ids)) {
				return errConflict
			}

			balance := user.HSCBalance.Add(total)
			if err := tx.SetBalance(ctx, userID, models.TokenHSC, balance); err != nil {
				return err
			}
			err = tx.CreateTransaction(ctx, &models.Transaction{
				UserID:       userID,
				Type:         models.TransactionEarningsConversion,
				Token:        models.TokenHSC,
				Amount:       total,
				BalanceAfter: balance,
				Reference:    "earnings",
				Description:  fmt.Sprintf("Converted %d earnings records to HSC", len(ids)),
			})
			if err != nil {
				return err
			}

			result = &models.ConversionResult{
				ConvertedRecords: len(ids),
				ConvertedAmount:  total,
				NewBalance:       balance,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if result.ConvertedRecords > 0 {
		s.logger.Info("earnings converted to HSC",
			zap.Uint("user_id", userID),
			zap.Int("records", result.ConvertedRecords),
			zap.String("amount", result.ConvertedAmount.String()),
		)
	}
	return result, nil
}

// FulfillClaim marks a pending claim paid once the fiat transfer has been made.
// Its records move from processing to paid_as_lkr.
func (s *EarningsService) FulfillClaim(ctx context.Context, adminID uint, claimID uuid.UUID) (*models.ClaimRequest, error) {
	start := time.Now()
	var claim *models.ClaimRequest
	err := s.retry.do(ctx, "fulfill_claim", func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			found, err := tx.GetClaimRequestForUpdate(ctx, claimID)
			if errors.Is(err, repository.ErrNotFound) {
				return newError(KindNotFound, claimID.String(), "claim request not found")
			}
			if err != nil {
				return err
			}
			if found.Status != models.ClaimStatusPending {
				return newError(KindInvalidRequest, found.Reference, "claim request is already paid")
			}

			if _, err := tx.TransitionClaimEarnings(ctx, claimID, models.EarningsProcessing, models.EarningsPaidAsLKR); err != nil {
				return err
			}

			paidAt := s.now()
			rows, err := tx.MarkClaimPaid(ctx, claimID, paidAt)
			if err != nil {
				return err
			}
			if rows == 0 {
				return errConflict
			}

			found.Status = models.ClaimStatusPaid
			found.PaidAt = &paidAt
			claim = found
			return nil
		})
	})
	observe(s.metrics, "fulfill_claim", start, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("claim request paid",
		zap.String("reference", claim.Reference),
		zap.Uint("admin_id", adminID),
		zap.Uint("user_id", claim.UserID),
	)
	return claim, nil
}

// ListClaims returns a user's claim requests with their records
func (s *EarningsService) ListClaims(ctx context.Context, userID uint) ([]models.ClaimRequest, error) {
	return s.repo.GetUserClaimRequests(ctx, userID)
}
