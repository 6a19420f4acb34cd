package company

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// Service exposes company settings operations.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns the company settings, creating the default row on first read.
func (s *Service) Get(ctx context.Context) (Company, error) {
	c, err := s.repo.First(ctx)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Company{}, err
	}
	return s.repo.Create(ctx, Company{
		Name:    DefaultName,
		NameTH:  DefaultNameTH,
		VATRate: DefaultVATRate,
	})
}

// VATRate returns the current VAT percentage. Callers fetch it once per
// operation so one transaction never sees two rates.
func (s *Service) VATRate(ctx context.Context) (decimal.Decimal, error) {
	c, err := s.Get(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return c.VATRate, nil
}

// UpdateInput carries editable settings fields.
type UpdateInput struct {
	Name      string          `json:"name"`
	NameTH    string          `json:"name_th"`
	Address   string          `json:"address"`
	AddressTH string          `json:"address_th"`
	TaxID     string          `json:"tax_id"`
	Phone     string          `json:"phone"`
	Email     string          `json:"email"`
	VATRate   decimal.Decimal `json:"vat_rate"`
}

// Update saves settings. The company must already exist.
func (s *Service) Update(ctx context.Context, input UpdateInput) (Company, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Company{}, fmt.Errorf("company: name required: %w", shared.ErrValidation)
	}
	if input.VATRate.IsNegative() {
		return Company{}, fmt.Errorf("company: vat rate must not be negative: %w", shared.ErrValidation)
	}
	current, err := s.repo.First(ctx)
	if err != nil {
		return Company{}, err
	}
	current.Name = input.Name
	current.NameTH = input.NameTH
	current.Address = input.Address
	current.AddressTH = input.AddressTH
	current.TaxID = input.TaxID
	current.Phone = input.Phone
	current.Email = input.Email
	current.VATRate = input.VATRate
	if err := s.repo.Update(ctx, current); err != nil {
		return Company{}, err
	}
	return current, nil
}
