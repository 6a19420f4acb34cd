package products

import (
	"context"
	"fmt"
	"strings"

	mdshared "github.com/tradewind-erp/tradewind-erp/internal/masterdata/shared"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("products: invalid id: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if err := validate(product); err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, product)
}

func (s *Service) Update(ctx context.Context, id int64, product Product) error {
	if id <= 0 {
		return fmt.Errorf("products: invalid id: %w", shared.ErrValidation)
	}
	if err := validate(product); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, product)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("products: invalid id: %w", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

func validate(p Product) error {
	if strings.TrimSpace(p.SKU) == "" {
		return fmt.Errorf("products: sku is required: %w", shared.ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("products: name is required: %w", shared.ErrValidation)
	}
	if p.CostPrice.IsNegative() || p.SellPrice.IsNegative() {
		return fmt.Errorf("products: prices must not be negative: %w", shared.ErrValidation)
	}
	if p.MinStock < 0 {
		return fmt.Errorf("products: min stock must not be negative: %w", shared.ErrValidation)
	}
	return nil
}
