package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradewind-erp/tradewind-erp/internal/platform/db"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// LevelFilters narrows the on-hand listing.
type LevelFilters struct {
	WarehouseID int64
	ProductID   int64
	LowStock    bool
	Query       shared.ListQuery
}

// MovementFilters narrows the movement listing.
type MovementFilters struct {
	WarehouseID int64
	ProductID   int64
	Type        MovementType
	Query       shared.ListQuery
}

// RepositoryPort is the read side plus transactional entry point.
type RepositoryPort interface {
	WithLedger(ctx context.Context, fn func(ctx context.Context, ledger TxLedger) error) error
	Levels(ctx context.Context, filters LevelFilters) ([]Level, int64, error)
	Movements(ctx context.Context, filters MovementFilters) ([]Movement, int64, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithLedger(ctx context.Context, fn func(ctx context.Context, ledger TxLedger) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxLedger(tx))
	})
}

const levelSelect = `
SELECT i.id, i.product_id, p.sku, p.name, i.warehouse_id, w.name,
       i.quantity, p.min_stock, i.updated_at
FROM inventories i
JOIN products p ON p.id = i.product_id
JOIN warehouses w ON w.id = i.warehouse_id`

func (r *Repository) Levels(ctx context.Context, filters LevelFilters) ([]Level, int64, error) {
	where, args := levelWhere(filters)

	var total int64
	countSQL := `SELECT COUNT(*) FROM inventories i JOIN products p ON p.id = i.product_id` + where
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("inventory: count levels: %w", err)
	}

	query := levelSelect + where +
		fmt.Sprintf(" ORDER BY p.sku, i.warehouse_id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filters.Query.Limit(), filters.Query.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("inventory: list levels: %w", err)
	}
	defer rows.Close()

	levels := make([]Level, 0)
	for rows.Next() {
		var l Level
		if err := rows.Scan(&l.ID, &l.ProductID, &l.ProductSKU, &l.ProductName,
			&l.WarehouseID, &l.WarehouseName, &l.Quantity, &l.MinStock, &l.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("inventory: scan level: %w", err)
		}
		levels = append(levels, l)
	}
	return levels, total, rows.Err()
}

func levelWhere(filters LevelFilters) (string, []any) {
	conds := make([]string, 0, 3)
	args := make([]any, 0, 2)
	if filters.WarehouseID > 0 {
		args = append(args, filters.WarehouseID)
		conds = append(conds, fmt.Sprintf("i.warehouse_id = $%d", len(args)))
	}
	if filters.ProductID > 0 {
		args = append(args, filters.ProductID)
		conds = append(conds, fmt.Sprintf("i.product_id = $%d", len(args)))
	}
	if filters.LowStock {
		conds = append(conds, "i.quantity <= p.min_stock")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const movementSelect = `
SELECT m.id, m.product_id, p.sku, p.name, m.warehouse_id, w.name,
       m.type, m.quantity, m.note, m.reference, m.created_at
FROM stock_movements m
JOIN products p ON p.id = m.product_id
JOIN warehouses w ON w.id = m.warehouse_id`

func (r *Repository) Movements(ctx context.Context, filters MovementFilters) ([]Movement, int64, error) {
	where, args := movementWhere(filters)

	var total int64
	countSQL := `SELECT COUNT(*) FROM stock_movements m` + where
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("inventory: count movements: %w", err)
	}

	query := movementSelect + where +
		fmt.Sprintf(" ORDER BY m.created_at DESC, m.id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filters.Query.Limit(), filters.Query.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("inventory: list movements: %w", err)
	}
	defer rows.Close()

	movements := make([]Movement, 0)
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ProductSKU, &m.ProductName,
			&m.WarehouseID, &m.WarehouseName, &m.Type, &m.Quantity, &m.Note, &m.Reference, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("inventory: scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, total, rows.Err()
}

func movementWhere(filters MovementFilters) (string, []any) {
	conds := make([]string, 0, 3)
	args := make([]any, 0, 3)
	if filters.WarehouseID > 0 {
		args = append(args, filters.WarehouseID)
		conds = append(conds, fmt.Sprintf("m.warehouse_id = $%d", len(args)))
	}
	if filters.ProductID > 0 {
		args = append(args, filters.ProductID)
		conds = append(conds, fmt.Sprintf("m.product_id = $%d", len(args)))
	}
	if filters.Type != "" {
		args = append(args, filters.Type)
		conds = append(conds, fmt.Sprintf("m.type = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
