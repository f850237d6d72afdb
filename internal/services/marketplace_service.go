package services

import (
	"context"
	"time"

	"holidaysri-engine/internal/models"
	"holidaysri-engine/internal/repository"
)

// MarketplaceService serves the resale marketplace listing
type MarketplaceService struct {
	repo    *repository.Repository
	maxPage int
	now     func() time.Time
}

// NewMarketplaceService creates a new MarketplaceService
func NewMarketplaceService(repo *repository.Repository, maxPage int) *MarketplaceService {
	return &MarketplaceService{repo: repo, maxPage: maxPage, now: utcNow}
}

// SetClock replaces the time source
func (s *MarketplaceService) SetClock(now func() time.Time) {
	s.now = now
}

// List returns one page of listed codes with stats. Expired listings are hidden
// unless asked for, and page and stats come from one snapshot at the same instant.
func (s *MarketplaceService) List(ctx context.Context, q models.MarketplaceQuery) (*models.MarketplacePage, error) {
	if q.Sort == "" {
		q.Sort = models.SortNewest
	}
	if !repository.IsMarketplaceSort(q.Sort) {
		return nil, newError(KindInvalidRequest, q.Sort, "unknown sort order")
	}
	q.Page, q.PageSize = normalizePage(q.Page, q.PageSize, s.maxPage)

	now := s.now()
	page := &models.MarketplacePage{}
	err := s.repo.ReadSnapshot(ctx, func(tx *repository.Repository) error {
		codes, total, err := tx.ListMarketplace(ctx, q, now)
		if err != nil {
			return err
		}
		stats, err := tx.MarketplaceStats(ctx, q.IncludeExpired, now)
		if err != nil {
			return err
		}

		page.Items = make([]models.PromoCodeView, 0, len(codes))
		for _, c := range codes {
			page.Items = append(page.Items, models.NewPromoCodeView(c, now))
		}
		page.Pagination = models.NewPagination(q.Page, q.PageSize, total)
		page.Stats = stats
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}
