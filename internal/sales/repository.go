package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind-erp/internal/inventory"
	"github.com/tradewind-erp/tradewind-erp/internal/invoicing"
	"github.com/tradewind-erp/tradewind-erp/internal/platform/db"
	"github.com/tradewind-erp/tradewind-erp/internal/sequence"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// TxRepository is the write surface inside one transaction. Delivery
// needs the ledger, the number allocator and the invoice writer on the
// same tx so the status change, the stock effects and the invoice land
// together.
type TxRepository interface {
	Get(ctx context.Context, id int64) (SalesOrder, error)
	Insert(ctx context.Context, order *SalesOrder) error
	Update(ctx context.Context, order *SalesOrder) error
	SetStatus(ctx context.Context, id int64, status Status) error
	MarkDelivered(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	NextNumber(ctx context.Context, prefix string) (string, error)
	Ledger() inventory.TxLedger
	InsertInvoice(ctx context.Context, inv *invoicing.Invoice) error
	LinkInvoice(ctx context.Context, salesOrderID, invoiceID int64) error
}

// RepositoryPort is what the service depends on.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo TxRepository) error) error
	Get(ctx context.Context, id int64) (SalesOrder, error)
	List(ctx context.Context, filters ListFilters) ([]SalesOrder, int64, error)
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

func (r *Repository) Get(ctx context.Context, id int64) (SalesOrder, error) {
	return getOrder(ctx, r.pool, id, false)
}

const listSelect = `
SELECT o.id, o.number, o.customer_id, c.name, o.status, o.order_date, o.due_date,
       o.subtotal::text, o.vat_amount::text, o.total::text, o.note,
       o.invoice_id, v.number,
       o.created_at, o.updated_at
FROM sales_orders o
JOIN customers c ON c.id = o.customer_id
LEFT JOIN invoices v ON v.id = o.invoice_id`

func (r *Repository) List(ctx context.Context, filters ListFilters) ([]SalesOrder, int64, error) {
	conds := make([]string, 0, 3)
	args := make([]any, 0, 3)
	if filters.Status != "" {
		args = append(args, filters.Status)
		conds = append(conds, fmt.Sprintf("o.status = $%d", len(args)))
	}
	if filters.CustomerID > 0 {
		args = append(args, filters.CustomerID)
		conds = append(conds, fmt.Sprintf("o.customer_id = $%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		conds = append(conds, fmt.Sprintf("(o.number ILIKE $%d OR c.name ILIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	countSQL := `SELECT COUNT(*) FROM sales_orders o JOIN customers c ON c.id = o.customer_id` + where
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sales: count orders: %w", err)
	}

	query := listSelect + where +
		fmt.Sprintf(" ORDER BY o.order_date DESC, o.id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filters.Query.Limit(), filters.Query.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sales: list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]SalesOrder, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

type txRepo struct {
	tx    pgx.Tx
	alloc *sequence.Allocator
}

func (r *txRepo) Get(ctx context.Context, id int64) (SalesOrder, error) {
	return getOrder(ctx, r.tx, id, true)
}

func (r *txRepo) Insert(ctx context.Context, order *SalesOrder) error {
	err := r.tx.QueryRow(ctx, `
INSERT INTO sales_orders (number, customer_id, status, order_date, due_date, subtotal, vat_amount, total, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
RETURNING id, created_at, updated_at`,
		order.Number, order.CustomerID, order.Status, order.OrderDate, order.DueDate,
		order.Subtotal.String(), order.VATAmount.String(), order.Total.String(), order.Note).
		Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return wrapPgError("sales: insert order", err)
	}
	return r.insertItems(ctx, order)
}

func (r *txRepo) Update(ctx context.Context, order *SalesOrder) error {
	tag, err := r.tx.Exec(ctx, `
UPDATE sales_orders
SET customer_id = $2, order_date = $3, due_date = $4, subtotal = $5, vat_amount = $6, total = $7, note = $8, updated_at = NOW()
WHERE id = $1`,
		order.ID, order.CustomerID, order.OrderDate, order.DueDate,
		order.Subtotal.String(), order.VATAmount.String(), order.Total.String(), order.Note)
	if err != nil {
		return wrapPgError("sales: update order", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM sales_order_items WHERE sales_order_id = $1`, order.ID); err != nil {
		return fmt.Errorf("sales: clear items: %w", err)
	}
	return r.insertItems(ctx, order)
}

func (r *txRepo) insertItems(ctx context.Context, order *SalesOrder) error {
	for i := range order.Items {
		item := &order.Items[i]
		err := r.tx.QueryRow(ctx, `
INSERT INTO sales_order_items (sales_order_id, product_id, quantity, unit_price, total)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`,
			order.ID, item.ProductID, item.Quantity, item.UnitPrice.String(), item.Total.String()).
			Scan(&item.ID)
		if err != nil {
			return wrapPgError("sales: insert item", err)
		}
	}
	return nil
}

func (r *txRepo) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE sales_orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("sales: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepo) MarkDelivered(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE sales_order_items SET delivered_qty = quantity WHERE sales_order_id = $1`, id)
	if err != nil {
		return fmt.Errorf("sales: mark delivered: %w", err)
	}
	return nil
}

func (r *txRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM sales_order_items WHERE sales_order_id = $1`, id); err != nil {
		return fmt.Errorf("sales: delete items: %w", err)
	}
	tag, err := r.tx.Exec(ctx, `DELETE FROM sales_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("sales: delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepo) NextNumber(ctx context.Context, prefix string) (string, error) {
	return r.alloc.Next(ctx, r.tx, prefix)
}

func (r *txRepo) Ledger() inventory.TxLedger {
	return inventory.NewTxLedger(r.tx)
}

func (r *txRepo) InsertInvoice(ctx context.Context, inv *invoicing.Invoice) error {
	return invoicing.InsertTx(ctx, r.tx, inv)
}

func (r *txRepo) LinkInvoice(ctx context.Context, salesOrderID, invoiceID int64) error {
	return invoicing.LinkSalesOrderTx(ctx, r.tx, salesOrderID, invoiceID)
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getOrder(ctx context.Context, q queryer, id int64, forUpdate bool) (SalesOrder, error) {
	query := listSelect + ` WHERE o.id = $1`
	if forUpdate {
		query += ` FOR UPDATE OF o`
	}

	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return SalesOrder{}, fmt.Errorf("sales: get order: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return SalesOrder{}, fmt.Errorf("sales: get order: %w", err)
		}
		return SalesOrder{}, ErrNotFound
	}
	order, err := scanOrder(rows)
	rows.Close()
	if err != nil {
		return SalesOrder{}, err
	}

	items, err := loadItems(ctx, q, order.ID)
	if err != nil {
		return SalesOrder{}, err
	}
	order.Items = items
	return order, nil
}

func loadItems(ctx context.Context, q queryer, orderID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `
SELECT i.id, i.product_id, p.sku, p.name, i.quantity, i.delivered_qty, i.unit_price::text, i.total::text
FROM sales_order_items i
JOIN products p ON p.id = i.product_id
WHERE i.sales_order_id = $1
ORDER BY i.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("sales: load items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var (
			item             Item
			unitPrice, total string
		)
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductSKU, &item.ProductName,
			&item.Quantity, &item.DeliveredQty, &unitPrice, &total); err != nil {
			return nil, fmt.Errorf("sales: scan item: %w", err)
		}
		if item.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("sales: parse unit price: %w", err)
		}
		if item.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("sales: parse line total: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanOrder(rows pgx.Rows) (SalesOrder, error) {
	var (
		o                          SalesOrder
		subtotal, vatAmount, total string
		invoiceNumber              *string
	)
	err := rows.Scan(&o.ID, &o.Number, &o.CustomerID, &o.CustomerName, &o.Status, &o.OrderDate, &o.DueDate,
		&subtotal, &vatAmount, &total, &o.Note, &o.InvoiceID, &invoiceNumber, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return SalesOrder{}, fmt.Errorf("sales: scan order: %w", err)
	}
	if invoiceNumber != nil {
		o.InvoiceNumber = *invoiceNumber
	}
	if o.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return SalesOrder{}, fmt.Errorf("sales: parse subtotal: %w", err)
	}
	if o.VATAmount, err = decimal.NewFromString(vatAmount); err != nil {
		return SalesOrder{}, fmt.Errorf("sales: parse vat: %w", err)
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return SalesOrder{}, fmt.Errorf("sales: parse total: %w", err)
	}
	return o, nil
}

func wrapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, shared.ErrDuplicate)
		case "23503":
			return fmt.Errorf("%s: unknown reference: %w", op, shared.ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
