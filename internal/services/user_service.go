package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"holidaysri-engine/internal/models"
	"holidaysri-engine/internal/repository"
)

// UserService handles user-related business logic
type UserService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo *repository.Repository, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(KindNotFound, fmt.Sprint(userID), "user not found")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// IsAdmin reports whether the stored user has the admin flag. Unknown users are not admins.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// UpdatePayoutDetails stores bank and wallet details used by fiat claims.
// Bank details are all or nothing.
func (s *UserService) UpdatePayoutDetails(ctx context.Context, userID uint, req models.PayoutDetailsRequest) (*models.User, error) {
	req.BankName = strings.TrimSpace(req.BankName)
	req.BankBranch = strings.TrimSpace(req.BankBranch)
	req.AccountNumber = strings.TrimSpace(req.AccountNumber)
	req.AccountHolder = strings.TrimSpace(req.AccountHolder)
	req.BinanceID = strings.TrimSpace(req.BinanceID)

	bank := []string{req.BankName, req.BankBranch, req.AccountNumber, req.AccountHolder}
	filled := 0
	for _, field := range bank {
		if field != "" {
			filled++
		}
	}
	if filled != 0 && filled != len(bank) {
		return nil, newError(KindInvalidRequest, "", "bank name, branch, account number and holder are required together")
	}

	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePayoutDetails(ctx, userID, req); err != nil {
		return nil, fmt.Errorf("failed to update payout details: %w", err)
	}

	s.logger.Info("payout details updated", zap.Uint("user_id", userID))
	return s.GetUserByID(ctx, userID)
}

// GetTransactions returns one page of the user's wallet history
func (s *UserService) GetTransactions(ctx context.Context, userID uint, page, pageSize int) ([]models.Transaction, models.Pagination, error) {
	page, pageSize = normalizePage(page, pageSize, maxEarningsPage)
	txs, total, err := s.repo.GetUserTransactions(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return txs, models.NewPagination(page, pageSize, total), nil
}
