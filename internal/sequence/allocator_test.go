package sequence

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// fakeDB replays the allocator's upsert against an in-memory counter so the
// increment and year-reset behaviour can be exercised without a database.
type fakeDB struct {
	lastNumber int64
	year       int
	exists     bool
}

type fakeRow struct {
	n int64
}

func (r fakeRow) Scan(dest ...any) error {
	*(dest[0].(*int64)) = r.n
	return nil
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	year := args[1].(int)
	switch {
	case !db.exists:
		db.exists = true
		db.lastNumber, db.year = 1, year
	case db.year == year:
		db.lastNumber++
	default:
		db.lastNumber, db.year = 1, year
	}
	return fakeRow{n: db.lastNumber}
}

func fixedClock(year int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.March, 15, 12, 0, 0, 0, time.UTC)
	}
}

func TestNextAllocatesSequentially(t *testing.T) {
	db := &fakeDB{}
	alloc := NewAllocatorAt(fixedClock(2026))
	ctx := context.Background()

	first, err := alloc.Next(ctx, db, PrefixPurchaseOrder)
	require.NoError(t, err)
	require.Equal(t, "PO26-00001", first)

	second, err := alloc.Next(ctx, db, PrefixPurchaseOrder)
	require.NoError(t, err)
	require.Equal(t, "PO26-00002", second)
}

func TestNextResetsOnYearRollover(t *testing.T) {
	db := &fakeDB{}
	ctx := context.Background()

	alloc := NewAllocatorAt(fixedClock(2026))
	for i := 0; i < 40; i++ {
		_, err := alloc.Next(ctx, db, PrefixInvoice)
		require.NoError(t, err)
	}

	alloc = NewAllocatorAt(fixedClock(2027))
	number, err := alloc.Next(ctx, db, PrefixInvoice)
	require.NoError(t, err)
	require.Equal(t, "INV27-00001", number)
}

// lockedDB serializes the upsert the way the row lock does, so concurrent
// callers can race the allocator itself.
type lockedDB struct {
	mu sync.Mutex
	db fakeDB
}

func (l *lockedDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.QueryRow(ctx, sql, args...)
}

func TestNextUniqueUnderConcurrentCallers(t *testing.T) {
	const callers = 64
	db := &lockedDB{}
	alloc := NewAllocatorAt(fixedClock(2026))

	type result struct {
		n   string
		err error
	}
	results := make(chan result, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := alloc.Next(context.Background(), db, PrefixSalesOrder)
			results <- result{n: n, err: err}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool, callers)
	for res := range results {
		require.NoError(t, res.err)
		require.False(t, seen[res.n], "number %s issued twice", res.n)
		seen[res.n] = true
	}
	require.Len(t, seen, callers)
	require.True(t, seen[Format(PrefixSalesOrder, 2026, 1)])
	require.True(t, seen[Format(PrefixSalesOrder, 2026, callers)])
}

func TestNextRejectsMalformedPrefix(t *testing.T) {
	db := &fakeDB{}
	alloc := NewAllocator()

	for _, prefix := range []string{"", "p", "PURCH", "P1"} {
		_, err := alloc.Next(context.Background(), db, prefix)
		require.ErrorIs(t, err, shared.ErrValidation)
	}
}

func TestFormatMatchesExternalContract(t *testing.T) {
	contract := regexp.MustCompile(`^[A-Z]{2,3}\d{2}-\d{5}$`)

	require.Equal(t, "INV26-00001", Format(PrefixInvoice, 2026, 1))
	require.Equal(t, "SO99-12345", Format(PrefixSalesOrder, 1999, 12345))
	for _, n := range []string{Format("PO", 2026, 7), Format("INV", 2030, 99999)} {
		require.Regexp(t, contract, n)
	}
}
