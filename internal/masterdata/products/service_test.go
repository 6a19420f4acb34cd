package products

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	mdshared "github.com/tradewind-erp/tradewind-erp/internal/masterdata/shared"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

type memoryRepo struct {
	products map[int64]Product
	bySKU    map[string]int64
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: map[int64]Product{}, bySKU: map[string]int64{}, nextID: 1}
}

func (m *memoryRepo) List(ctx context.Context, filters mdshared.ListFilters) ([]Product, int, error) {
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, fmt.Errorf("products: id %d: %w", id, shared.ErrNotFound)
	}
	return p, nil
}

func (m *memoryRepo) Create(ctx context.Context, product Product) (Product, error) {
	if _, taken := m.bySKU[product.SKU]; taken {
		return Product{}, fmt.Errorf("products: create: %w", shared.ErrDuplicate)
	}
	product.ID = m.nextID
	m.nextID++
	m.products[product.ID] = product
	m.bySKU[product.SKU] = product.ID
	return product, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, product Product) error {
	current, ok := m.products[id]
	if !ok {
		return fmt.Errorf("products: id %d: %w", id, shared.ErrNotFound)
	}
	if other, taken := m.bySKU[product.SKU]; taken && other != id {
		return fmt.Errorf("products: update: %w", shared.ErrDuplicate)
	}
	delete(m.bySKU, current.SKU)
	product.ID = id
	m.products[id] = product
	m.bySKU[product.SKU] = id
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	p, ok := m.products[id]
	if !ok {
		return fmt.Errorf("products: id %d: %w", id, shared.ErrNotFound)
	}
	delete(m.products, id)
	delete(m.bySKU, p.SKU)
	return nil
}

func TestCreateRejectsDuplicateSKU(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Product{SKU: "P-001", Name: "สินค้า A", IsActive: true})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), Product{SKU: "P-001", Name: "Other"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Product{SKU: " ", Name: "X"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Product{SKU: "P-002", Name: " "})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Product{
		SKU: "P-003", Name: "X", SellPrice: decimal.NewFromInt(-1),
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Product{SKU: "P-004", Name: "X", MinStock: -1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateAndGet(t *testing.T) {
	svc := NewService(newMemoryRepo())

	p, err := svc.Create(context.Background(), Product{
		SKU: "P-010", Name: "ปากกา", SellPrice: decimal.NewFromInt(25), MinStock: 10, IsActive: true,
	})
	require.NoError(t, err)

	p.SellPrice = decimal.NewFromInt(30)
	require.NoError(t, svc.Update(context.Background(), p.ID, p))

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, got.SellPrice.Equal(decimal.NewFromInt(30)))

	_, err = svc.Get(context.Background(), 999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
