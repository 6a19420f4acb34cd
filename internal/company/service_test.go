package company

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

type memoryRepo struct {
	company *Company
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1}
}

func (m *memoryRepo) First(ctx context.Context) (Company, error) {
	if m.company == nil {
		return Company{}, fmt.Errorf("company: settings: %w", shared.ErrNotFound)
	}
	return *m.company, nil
}

func (m *memoryRepo) Create(ctx context.Context, c Company) (Company, error) {
	c.ID = m.nextID
	m.nextID++
	m.company = &c
	return c, nil
}

func (m *memoryRepo) Update(ctx context.Context, c Company) error {
	if m.company == nil || m.company.ID != c.ID {
		return fmt.Errorf("company: settings: %w", shared.ErrNotFound)
	}
	m.company = &c
	return nil
}

func TestGetCreatesDefaultOnFirstRead(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	c, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, DefaultName, c.Name)
	require.Equal(t, DefaultNameTH, c.NameTH)
	require.True(t, c.VATRate.Equal(decimal.NewFromInt(7)))

	again, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, c.ID, again.ID)
	require.Equal(t, int64(2), repo.nextID, "default row created once")
}

func TestUpdateSettings(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	_, err := svc.Get(context.Background())
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), UpdateInput{
		Name:    "Tradewind Co., Ltd.",
		NameTH:  "บริษัท เทรดวินด์ จำกัด",
		TaxID:   "0105558000000",
		VATRate: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.Equal(t, "Tradewind Co., Ltd.", updated.Name)
	require.True(t, updated.VATRate.Equal(decimal.NewFromInt(10)))

	rate, err := svc.VATRate(context.Background())
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.NewFromInt(10)))
}

func TestUpdateValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	_, err := svc.Get(context.Background())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), UpdateInput{Name: "  "})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Update(context.Background(), UpdateInput{
		Name:    "X",
		VATRate: decimal.NewFromInt(-1),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}
