package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Summary is the aggregated dashboard payload.
type Summary struct {
	Entities  EntityCounts     `json:"entities"`
	Orders    OrderCounts      `json:"orders"`
	Monthly   MonthlyTotals    `json:"monthly"`
	LowStock  []LowStockItem   `json:"low_stock"`
	Movements []RecentMovement `json:"recent_movements"`
}

// Service assembles dashboard read models, cached per scope.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	now   func() time.Time
}

func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// Summary fans the component queries out concurrently and caches the
// assembled result.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var summary Summary
	err := s.cache.FetchJSON(ctx, ScopeDashboard, []string{"summary"}, &summary, func(ctx context.Context) (any, error) {
		return s.loadSummary(ctx)
	})
	return summary, err
}

func (s *Service) loadSummary(ctx context.Context) (Summary, error) {
	var summary Summary
	monthStart := s.monthStart()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary.Entities, err = s.repo.EntityCounts(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		summary.Orders, err = s.repo.OrderCounts(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		summary.Monthly, err = s.repo.MonthlyTotals(ctx, monthStart)
		return err
	})
	g.Go(func() error {
		var err error
		summary.LowStock, err = s.repo.LowStock(ctx, 20)
		return err
	})
	g.Go(func() error {
		var err error
		summary.Movements, err = s.repo.RecentMovements(ctx, 10)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// LowStock returns the full low stock listing, uncapped for reports.
func (s *Service) LowStock(ctx context.Context, limit int) ([]LowStockItem, error) {
	var items []LowStockItem
	err := s.cache.FetchJSON(ctx, ScopeInventory, []string{"lowstock"}, &items, func(ctx context.Context) (any, error) {
		return s.repo.LowStock(ctx, limit)
	})
	return items, err
}

// Warm precomputes the summary so the first dashboard hit after an
// invalidation is served from cache.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.Summary(ctx)
	return err
}

func (s *Service) monthStart() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
