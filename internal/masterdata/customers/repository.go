package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/tradewind-erp/tradewind-erp/internal/masterdata/shared"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

const columns = `id, code, name, contact, phone, email, address, tax_id`

type Repository interface {
	List(ctx context.Context, filters mdshared.ListFilters) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, customer Customer) (Customer, error)
	Update(ctx context.Context, id int64, customer Customer) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Customer, int, error) {
	where := ""
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where = ` WHERE (name ILIKE $1 OR code ILIKE $1 OR tax_id ILIKE $1)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("customers: count: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM customers%s ORDER BY code LIMIT $%d OFFSET $%d`,
		columns, where, len(args)+1, len(args)+2)
	args = append(args, filters.Query.Limit(), filters.Query.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("customers: list: %w", err)
	}
	defer rows.Close()

	out := make([]Customer, 0)
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM customers WHERE id = $1`, columns), id)
	if err != nil {
		return Customer{}, fmt.Errorf("customers: get: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Customer{}, fmt.Errorf("customers: get: %w", err)
		}
		return Customer{}, fmt.Errorf("customers: id %d: %w", id, shared.ErrNotFound)
	}
	return scan(rows)
}

func (r *repository) Create(ctx context.Context, customer Customer) (Customer, error) {
	err := r.pool.QueryRow(ctx, `
INSERT INTO customers (code, name, contact, phone, email, address, tax_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`,
		customer.Code, customer.Name, customer.Contact, customer.Phone,
		customer.Email, customer.Address, customer.TaxID).Scan(&customer.ID)
	if err != nil {
		return Customer{}, wrapPgError("customers: create", err)
	}
	return customer, nil
}

func (r *repository) Update(ctx context.Context, id int64, customer Customer) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE customers
SET code = $2, name = $3, contact = $4, phone = $5, email = $6, address = $7, tax_id = $8
WHERE id = $1`,
		id, customer.Code, customer.Name, customer.Contact, customer.Phone,
		customer.Email, customer.Address, customer.TaxID)
	if err != nil {
		return wrapPgError("customers: update", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customers: id %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return wrapPgError("customers: delete", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customers: id %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func scan(rows pgx.Rows) (Customer, error) {
	var c Customer
	if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Contact, &c.Phone, &c.Email, &c.Address, &c.TaxID); err != nil {
		return Customer{}, fmt.Errorf("customers: scan: %w", err)
	}
	return c, nil
}

func wrapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, shared.ErrDuplicate)
		case "23503":
			return fmt.Errorf("%s: in use: %w", op, shared.ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
