package company

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists the company settings row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	First(ctx context.Context) (Company, error)
	Create(ctx context.Context, c Company) (Company, error)
	Update(ctx context.Context, c Company) error
}

// First returns the singleton row, or ErrNotFound when absent.
func (r *Repository) First(ctx context.Context) (Company, error) {
	var (
		c       Company
		rateStr string
	)
	err := r.pool.QueryRow(ctx, `SELECT id, name, name_th, address, address_th, tax_id, phone, email, vat_rate::text, created_at, updated_at FROM companies ORDER BY id LIMIT 1`).
		Scan(&c.ID, &c.Name, &c.NameTH, &c.Address, &c.AddressTH, &c.TaxID, &c.Phone, &c.Email, &rateStr, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, ErrNotFound
		}
		return Company{}, err
	}
	c.VATRate, err = decimal.NewFromString(rateStr)
	if err != nil {
		return Company{}, err
	}
	return c, nil
}

// Create inserts the settings row.
func (r *Repository) Create(ctx context.Context, c Company) (Company, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx, `INSERT INTO companies (name, name_th, address, address_th, tax_id, phone, email, vat_rate, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING id`,
		c.Name, c.NameTH, c.Address, c.AddressTH, c.TaxID, c.Phone, c.Email, c.VATRate.String(), now).Scan(&c.ID)
	if err != nil {
		return Company{}, err
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return c, nil
}

// Update saves the settings row.
func (r *Repository) Update(ctx context.Context, c Company) error {
	_, err := r.pool.Exec(ctx, `UPDATE companies SET name=$1, name_th=$2, address=$3, address_th=$4, tax_id=$5, phone=$6, email=$7, vat_rate=$8, updated_at=NOW() WHERE id=$9`,
		c.Name, c.NameTH, c.Address, c.AddressTH, c.TaxID, c.Phone, c.Email, c.VATRate.String(), c.ID)
	return err
}
