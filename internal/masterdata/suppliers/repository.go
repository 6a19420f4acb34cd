package suppliers

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
	List(ctx context.Context, filters mdshared.ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, id int64, supplier Supplier) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Supplier, int, error) {
	where := ""
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where = ` WHERE (name ILIKE $1 OR code ILIKE $1 OR tax_id ILIKE $1)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("suppliers: count: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM suppliers%s ORDER BY code LIMIT $%d OFFSET $%d`,
		columns, where, len(args)+1, len(args)+2)
	args = append(args, filters.Query.Limit(), filters.Query.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("suppliers: list: %w", err)
	}
	defer rows.Close()

	out := make([]Supplier, 0)
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM suppliers WHERE id = $1`, columns), id)
	if err != nil {
		return Supplier{}, fmt.Errorf("suppliers: get: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Supplier{}, fmt.Errorf("suppliers: get: %w", err)
		}
		return Supplier{}, fmt.Errorf("suppliers: id %d: %w", id, shared.ErrNotFound)
	}
	return scan(rows)
}

func (r *repository) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	err := r.pool.QueryRow(ctx, `
INSERT INTO suppliers (code, name, contact, phone, email, address, tax_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`,
		supplier.Code, supplier.Name, supplier.Contact, supplier.Phone,
		supplier.Email, supplier.Address, supplier.TaxID).Scan(&supplier.ID)
	if err != nil {
		return Supplier{}, wrapPgError("suppliers: create", err)
	}
	return supplier, nil
}

func (r *repository) Update(ctx context.Context, id int64, supplier Supplier) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE suppliers
SET code = $2, name = $3, contact = $4, phone = $5, email = $6, address = $7, tax_id = $8
WHERE id = $1`,
		id, supplier.Code, supplier.Name, supplier.Contact, supplier.Phone,
		supplier.Email, supplier.Address, supplier.TaxID)
	if err != nil {
		return wrapPgError("suppliers: update", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("suppliers: id %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return wrapPgError("suppliers: delete", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("suppliers: id %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func scan(rows pgx.Rows) (Supplier, error) {
	var s Supplier
	if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Contact, &s.Phone, &s.Email, &s.Address, &s.TaxID); err != nil {
		return Supplier{}, fmt.Errorf("suppliers: scan: %w", err)
	}
	return s, nil
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
