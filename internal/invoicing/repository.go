package invoicing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind-erp/internal/platform/db"
	"github.com/tradewind-erp/tradewind-erp/internal/sequence"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// TxRepository is the write surface inside one transaction.
type TxRepository interface {
	Get(ctx context.Context, id int64) (Invoice, error)
	Insert(ctx context.Context, inv *Invoice) error
	SetStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
	NextNumber(ctx context.Context, prefix string) (string, error)
	// SourceOrders loads the customer's delivered, not yet invoiced
	// sales orders, optionally narrowed to specific ids.
	SourceOrders(ctx context.Context, customerID int64, orderIDs []int64) ([]SourceOrder, error)
	LinkSalesOrder(ctx context.Context, salesOrderID, invoiceID int64) error
}

// RepositoryPort is what the service depends on.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error
	Get(ctx context.Context, id int64) (Invoice, error)
	List(ctx context.Context, filters ListFilters) ([]Invoice, int64, error)
}

type Repository struct {
	pool  *pgxpool.Pool
	alloc *sequence.Allocator
}

func NewRepository(pool *pgxpool.Pool, alloc *sequence.Allocator) *Repository {
	return &Repository{pool: pool, alloc: alloc}
}

func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, alloc: r.alloc})
	})
}

func (r *Repository) Get(ctx context.Context, id int64) (Invoice, error) {
	return getInvoice(ctx, r.pool, id, false)
}

const listSelect = `
SELECT v.id, v.number, v.customer_id, c.name, v.status, v.issue_date, v.due_date,
       v.subtotal::text, v.vat_amount::text, v.total::text, v.note,
       v.created_at, v.updated_at
FROM invoices v
JOIN customers c ON c.id = v.customer_id`

func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Invoice, int64, error) {
	conds := make([]string, 0, 3)
	args := make([]any, 0, 3)
	if filters.Status != "" {
		args = append(args, filters.Status)
		conds = append(conds, fmt.Sprintf("v.status = $%d", len(args)))
	}
	if filters.CustomerID > 0 {
		args = append(args, filters.CustomerID)
		conds = append(conds, fmt.Sprintf("v.customer_id = $%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		conds = append(conds, fmt.Sprintf("(v.number ILIKE $%d OR c.name ILIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	countSQL := `SELECT COUNT(*) FROM invoices v JOIN customers c ON c.id = v.customer_id` + where
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("invoicing: count invoices: %w", err)
	}

	query := listSelect + where +
		fmt.Sprintf(" ORDER BY v.issue_date DESC, v.id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filters.Query.Limit(), filters.Query.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("invoicing: list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

type txRepo struct {
	tx    pgx.Tx
	alloc *sequence.Allocator
}

func (r *txRepo) Get(ctx context.Context, id int64) (Invoice, error) {
	return getInvoice(ctx, r.tx, id, true)
}

func (r *txRepo) Insert(ctx context.Context, inv *Invoice) error {
	return InsertTx(ctx, r.tx, inv)
}

func (r *txRepo) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE invoices SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("invoicing: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.tx.Exec(ctx, `UPDATE sales_orders SET invoice_id = NULL WHERE invoice_id = $1`, id); err != nil {
		return fmt.Errorf("invoicing: unlink sales orders: %w", err)
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, id); err != nil {
		return fmt.Errorf("invoicing: delete items: %w", err)
	}
	tag, err := r.tx.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("invoicing: delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepo) NextNumber(ctx context.Context, prefix string) (string, error) {
	return r.alloc.Next(ctx, r.tx, prefix)
}

func (r *txRepo) SourceOrders(ctx context.Context, customerID int64, orderIDs []int64) ([]SourceOrder, error) {
	query := `
SELECT o.id, o.number, o.customer_id, i.product_id, i.quantity, i.unit_price::text, i.total::text
FROM sales_orders o
JOIN sales_order_items i ON i.sales_order_id = o.id
WHERE o.customer_id = $1 AND o.status = 'DELIVERED' AND o.invoice_id IS NULL`
	args := []any{customerID}
	if len(orderIDs) > 0 {
		args = append(args, orderIDs)
		query += fmt.Sprintf(" AND o.id = ANY($%d)", len(args))
	}
	query += " ORDER BY o.id, i.id FOR UPDATE OF o"

	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("invoicing: load source orders: %w", err)
	}
	defer rows.Close()

	orders := make([]SourceOrder, 0)
	for rows.Next() {
		var (
			id, customer     int64
			number           string
			line             SourceLine
			unitPrice, total string
		)
		if err := rows.Scan(&id, &number, &customer, &line.ProductID, &line.Quantity, &unitPrice, &total); err != nil {
			return nil, fmt.Errorf("invoicing: scan source order: %w", err)
		}
		if line.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("invoicing: parse unit price: %w", err)
		}
		if line.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("invoicing: parse line total: %w", err)
		}
		if len(orders) == 0 || orders[len(orders)-1].ID != id {
			orders = append(orders, SourceOrder{ID: id, Number: number, CustomerID: customer})
		}
		last := &orders[len(orders)-1]
		last.Lines = append(last.Lines, line)
	}
	return orders, rows.Err()
}

func (r *txRepo) LinkSalesOrder(ctx context.Context, salesOrderID, invoiceID int64) error {
	return LinkSalesOrderTx(ctx, r.tx, salesOrderID, invoiceID)
}

// InsertTx writes the invoice header and lines on the given transaction.
// Sales order delivery uses it to create the invoice atomically with the
// stock movements.
func InsertTx(ctx context.Context, tx pgx.Tx, inv *Invoice) error {
	err := tx.QueryRow(ctx, `
INSERT INTO invoices (number, customer_id, status, issue_date, due_date, subtotal, vat_amount, total, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
RETURNING id, created_at, updated_at`,
		inv.Number, inv.CustomerID, inv.Status, inv.IssueDate, inv.DueDate,
		inv.Subtotal.String(), inv.VATAmount.String(), inv.Total.String(), inv.Note).
		Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return fmt.Errorf("invoicing: insert invoice: %w", shared.ErrDuplicate)
			case "23503":
				return fmt.Errorf("invoicing: insert invoice: unknown reference: %w", shared.ErrConflict)
			}
		}
		return fmt.Errorf("invoicing: insert invoice: %w", err)
	}
	for i := range inv.Items {
		item := &inv.Items[i]
		err := tx.QueryRow(ctx, `
INSERT INTO invoice_items (invoice_id, product_id, quantity, unit_price, total)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`,
			inv.ID, item.ProductID, item.Quantity, item.UnitPrice.String(), item.Total.String()).
			Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("invoicing: insert item: %w", err)
		}
	}
	return nil
}

// LinkSalesOrderTx marks a sales order as billed by the invoice.
func LinkSalesOrderTx(ctx context.Context, tx pgx.Tx, salesOrderID, invoiceID int64) error {
	tag, err := tx.Exec(ctx,
		`UPDATE sales_orders SET invoice_id = $2 WHERE id = $1 AND invoice_id IS NULL`, salesOrderID, invoiceID)
	if err != nil {
		return fmt.Errorf("invoicing: link sales order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoicing: sales order %d already invoiced: %w", salesOrderID, shared.ErrConflict)
	}
	return nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getInvoice(ctx context.Context, q queryer, id int64, forUpdate bool) (Invoice, error) {
	query := listSelect + ` WHERE v.id = $1`
	if forUpdate {
		query += ` FOR UPDATE OF v`
	}

	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoicing: get invoice: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Invoice{}, fmt.Errorf("invoicing: get invoice: %w", err)
		}
		return Invoice{}, ErrNotFound
	}
	inv, err := scanInvoice(rows)
	rows.Close()
	if err != nil {
		return Invoice{}, err
	}

	if err := loadDetails(ctx, q, &inv); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func loadDetails(ctx context.Context, q queryer, inv *Invoice) error {
	rows, err := q.Query(ctx, `
SELECT i.id, i.product_id, p.sku, p.name, i.quantity, i.unit_price::text, i.total::text
FROM invoice_items i
JOIN products p ON p.id = i.product_id
WHERE i.invoice_id = $1
ORDER BY i.id`, inv.ID)
	if err != nil {
		return fmt.Errorf("invoicing: load items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			item             Item
			unitPrice, total string
		)
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductSKU, &item.ProductName,
			&item.Quantity, &unitPrice, &total); err != nil {
			return fmt.Errorf("invoicing: scan item: %w", err)
		}
		if item.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return fmt.Errorf("invoicing: parse unit price: %w", err)
		}
		if item.Total, err = decimal.NewFromString(total); err != nil {
			return fmt.Errorf("invoicing: parse line total: %w", err)
		}
		inv.Items = append(inv.Items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	srcRows, err := q.Query(ctx,
		`SELECT number FROM sales_orders WHERE invoice_id = $1 ORDER BY id`, inv.ID)
	if err != nil {
		return fmt.Errorf("invoicing: load sources: %w", err)
	}
	defer srcRows.Close()
	for srcRows.Next() {
		var number string
		if err := srcRows.Scan(&number); err != nil {
			return fmt.Errorf("invoicing: scan source: %w", err)
		}
		inv.SourceNumbers = append(inv.SourceNumbers, number)
	}
	return srcRows.Err()
}

func scanInvoice(rows pgx.Rows) (Invoice, error) {
	var (
		inv                        Invoice
		subtotal, vatAmount, total string
	)
	err := rows.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.CustomerName, &inv.Status, &inv.IssueDate, &inv.DueDate,
		&subtotal, &vatAmount, &total, &inv.Note, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoicing: scan invoice: %w", err)
	}
	if inv.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return Invoice{}, fmt.Errorf("invoicing: parse subtotal: %w", err)
	}
	if inv.VATAmount, err = decimal.NewFromString(vatAmount); err != nil {
		return Invoice{}, fmt.Errorf("invoicing: parse vat: %w", err)
	}
	if inv.Total, err = decimal.NewFromString(total); err != nil {
		return Invoice{}, fmt.Errorf("invoicing: parse total: %w", err)
	}
	return inv, nil
}
