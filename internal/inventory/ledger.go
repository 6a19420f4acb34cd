package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TxLedger applies stock effects inside a caller-owned transaction.
// Orders pass their own tx through here so a failed receipt or delivery
// rolls back stock together with the status change.
type TxLedger interface {
	// Apply upserts the inventory level and appends one movement row.
	// It returns the resulting on-hand quantity.
	Apply(ctx context.Context, input MovementInput) (int64, error)
}

type pgTxLedger struct {
	tx pgx.Tx
}

// NewTxLedger wraps a transaction as a ledger.
func NewTxLedger(tx pgx.Tx) TxLedger {
	return pgTxLedger{tx: tx}
}

const upsertLevelSQL = `
INSERT INTO inventories (product_id, warehouse_id, quantity, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (product_id, warehouse_id) DO UPDATE SET
    quantity = inventories.quantity + EXCLUDED.quantity,
    updated_at = NOW()
RETURNING quantity`

const insertMovementSQL = `
INSERT INTO stock_movements (product_id, warehouse_id, type, quantity, note, reference, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())`

func (l pgTxLedger) Apply(ctx context.Context, input MovementInput) (int64, error) {
	delta, err := input.Delta()
	if err != nil {
		return 0, err
	}

	var onHand int64
	err = l.tx.QueryRow(ctx, upsertLevelSQL, input.ProductID, input.WarehouseID, delta).Scan(&onHand)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return 0, fmt.Errorf("%w: product %d warehouse %d", ErrUnknownReference, input.ProductID, input.WarehouseID)
		}
		return 0, fmt.Errorf("inventory: upsert level: %w", err)
	}

	_, err = l.tx.Exec(ctx, insertMovementSQL,
		input.ProductID, input.WarehouseID, input.Type, input.Magnitude(), input.Note, input.Reference)
	if err != nil {
		return 0, fmt.Errorf("inventory: insert movement: %w", err)
	}
	return onHand, nil
}
