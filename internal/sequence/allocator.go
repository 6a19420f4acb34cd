// Package sequence issues year-scoped sequential document numbers.
package sequence

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// Document number prefixes used across the system.
const (
	PrefixPurchaseOrder = "PO"
	PrefixSalesOrder    = "SO"
	PrefixInvoice       = "INV"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx. Allocation must run on
// the transaction that persists the owning document, so a failed creation
// rolls the counter back with it.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var prefixPattern = regexp.MustCompile(`^[A-Z]{2,3}$`)

// The CASE keeps one row per prefix: increment within the stored year,
// reset to 1 when the year advances. The upsert takes a row lock, so two
// concurrent callers for the same prefix never receive the same number.
const nextNumberSQL = `
INSERT INTO document_sequences (prefix, last_number, year)
VALUES ($1, 1, $2)
ON CONFLICT (prefix) DO UPDATE SET
    last_number = CASE WHEN document_sequences.year = EXCLUDED.year
                       THEN document_sequences.last_number + 1
                       ELSE 1 END,
    year = EXCLUDED.year
RETURNING last_number`

// Allocator issues unique document numbers per prefix.
type Allocator struct {
	now func() time.Time
}

// NewAllocator constructs an Allocator using the wall clock.
func NewAllocator() *Allocator {
	return &Allocator{now: time.Now}
}

// NewAllocatorAt constructs an Allocator with an injected clock.
func NewAllocatorAt(now func() time.Time) *Allocator {
	if now == nil {
		now = time.Now
	}
	return &Allocator{now: now}
}

// Next allocates the next number for prefix, formatted {PREFIX}{YY}-{NNNNN},
// e.g. PO26-00001.
func (a *Allocator) Next(ctx context.Context, db DBTX, prefix string) (string, error) {
	if !prefixPattern.MatchString(prefix) {
		return "", fmt.Errorf("sequence: prefix %q: %w", prefix, shared.ErrValidation)
	}
	year := a.now().Year()
	var n int64
	if err := db.QueryRow(ctx, nextNumberSQL, prefix, year).Scan(&n); err != nil {
		return "", fmt.Errorf("sequence: next %s: %w", prefix, err)
	}
	return Format(prefix, year, n), nil
}

// Format renders a document number from its parts.
func Format(prefix string, year int, n int64) string {
	return fmt.Sprintf("%s%02d-%05d", prefix, year%100, n)
}
