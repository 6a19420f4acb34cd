package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	mdshared "github.com/tradewind-erp/tradewind-erp/internal/masterdata/shared"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

const selectProduct = `
SELECT p.id, p.sku, p.name, p.description, p.category_id, COALESCE(c.name, ''),
       p.unit_id, COALESCE(u.name, ''), p.cost_price::text, p.sell_price::text,
       p.min_stock, p.is_active
FROM products p
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN units u ON u.id = p.unit_id`

type Repository interface {
	List(ctx context.Context, filters mdshared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Product, int, error) {
	conds := []string{}
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		conds = append(conds, fmt.Sprintf("(p.name ILIKE $%d OR p.sku ILIKE $%d)", len(args), len(args)))
	}
	if filters.CategoryID != nil {
		args = append(args, *filters.CategoryID)
		conds = append(conds, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		conds = append(conds, fmt.Sprintf("p.is_active = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("products: count: %w", err)
	}

	query := selectProduct + where +
		fmt.Sprintf(" ORDER BY p.sku LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filters.Query.Limit(), filters.Query.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("products: list: %w", err)
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	rows, err := r.pool.Query(ctx, selectProduct+` WHERE p.id = $1`, id)
	if err != nil {
		return Product{}, fmt.Errorf("products: get: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Product{}, fmt.Errorf("products: get: %w", err)
		}
		return Product{}, fmt.Errorf("products: id %d: %w", id, shared.ErrNotFound)
	}
	return scan(rows)
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `
INSERT INTO products (sku, name, description, category_id, unit_id, cost_price, sell_price, min_stock, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`,
		product.SKU, product.Name, product.Description, product.CategoryID, product.UnitID,
		product.CostPrice.String(), product.SellPrice.String(), product.MinStock, product.IsActive).
		Scan(&product.ID)
	if err != nil {
		return Product{}, wrapPgError("products: create", err)
	}
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE products
SET sku = $2, name = $3, description = $4, category_id = $5, unit_id = $6,
    cost_price = $7, sell_price = $8, min_stock = $9, is_active = $10
WHERE id = $1`,
		id, product.SKU, product.Name, product.Description, product.CategoryID, product.UnitID,
		product.CostPrice.String(), product.SellPrice.String(), product.MinStock, product.IsActive)
	if err != nil {
		return wrapPgError("products: update", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("products: id %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return wrapPgError("products: delete", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("products: id %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func scan(rows pgx.Rows) (Product, error) {
	var (
		p                    Product
		costPrice, sellPrice string
	)
	err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.CategoryID, &p.CategoryName,
		&p.UnitID, &p.UnitName, &costPrice, &sellPrice, &p.MinStock, &p.IsActive)
	if err != nil {
		return Product{}, fmt.Errorf("products: scan: %w", err)
	}
	if p.CostPrice, err = decimal.NewFromString(costPrice); err != nil {
		return Product{}, fmt.Errorf("products: parse cost price: %w", err)
	}
	if p.SellPrice, err = decimal.NewFromString(sellPrice); err != nil {
		return Product{}, fmt.Errorf("products: parse sell price: %w", err)
	}
	return p, nil
}

func wrapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, shared.ErrDuplicate)
		case "23503":
			return fmt.Errorf("%s: unknown or referenced entity: %w", op, shared.ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
