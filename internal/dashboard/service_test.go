package dashboard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	loads atomic.Int64
}

func (r *stubRepo) EntityCounts(ctx context.Context) (EntityCounts, error) {
	r.loads.Add(1)
	return EntityCounts{Products: 12, Customers: 4, Suppliers: 3}, nil
}

func (r *stubRepo) OrderCounts(ctx context.Context) (OrderCounts, error) {
	return OrderCounts{OpenPurchaseOrders: 2, OpenSalesOrders: 5, UnpaidInvoices: 1}, nil
}

func (r *stubRepo) MonthlyTotals(ctx context.Context, since time.Time) (MonthlyTotals, error) {
	return MonthlyTotals{
		Purchases: decimal.NewFromInt(1500),
		Sales:     decimal.NewFromInt(4200),
	}, nil
}

func (r *stubRepo) LowStock(ctx context.Context, limit int) ([]LowStockItem, error) {
	return []LowStockItem{
		{ProductID: 1, SKU: "P-001", Name: "ปากกา", Warehouse: "Main", Quantity: 2, MinStock: 10},
	}, nil
}

func (r *stubRepo) RecentMovements(ctx context.Context, limit int) ([]RecentMovement, error) {
	return []RecentMovement{
		{ID: 9, SKU: "P-001", Product: "ปากกา", Warehouse: "Main", Type: "OUT", Quantity: 3, Reference: "SO26-00001", CreatedAt: time.Now()},
	}, nil
}

func TestSummaryAggregatesAndCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &stubRepo{}
	svc := NewService(repo, NewCache(client, time.Minute, nil))

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(12), summary.Entities.Products)
	require.Equal(t, int64(5), summary.Orders.OpenSalesOrders)
	require.True(t, summary.Monthly.Sales.Equal(decimal.NewFromInt(4200)))
	require.Len(t, summary.LowStock, 1)
	require.Len(t, summary.Movements, 1)

	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), repo.loads.Load(), "second summary served from cache")
}

func TestSummaryRecomputesAfterInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &stubRepo{}
	cache := NewCache(client, time.Minute, nil)
	svc := NewService(repo, cache)

	_, err := svc.Summary(context.Background())
	require.NoError(t, err)
	cache.Invalidate(context.Background(), ScopeDashboard)
	_, err = svc.Summary(context.Background())
	require.NoError(t, err)

	require.Equal(t, int64(2), repo.loads.Load())
}

func TestWarmPopulatesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &stubRepo{}
	svc := NewService(repo, NewCache(client, time.Minute, nil))

	require.NoError(t, svc.Warm(context.Background()))
	_, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), repo.loads.Load())
}

func TestExportLowStockProducesWorkbook(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, NewCache(nil, 0, nil))

	payload, filename, err := svc.ExportLowStock(context.Background(), "th")
	require.NoError(t, err)
	require.NotEmpty(t, payload)
	require.Regexp(t, `^low-stock-[0-9a-f-]{36}\.xlsx$`, filename)

	other, otherName, err := svc.ExportLowStock(context.Background(), "en")
	require.NoError(t, err)
	require.NotEmpty(t, other)
	require.NotEqual(t, filename, otherName, "filenames are unique per export")
}
