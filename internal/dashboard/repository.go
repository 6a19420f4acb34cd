package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// EntityCounts are the master data headcounts shown on the dashboard.
type EntityCounts struct {
	Products  int64 `json:"products"`
	Customers int64 `json:"customers"`
	Suppliers int64 `json:"suppliers"`
}

// OrderCounts are open documents awaiting action.
type OrderCounts struct {
	OpenPurchaseOrders int64 `json:"open_purchase_orders"`
	OpenSalesOrders    int64 `json:"open_sales_orders"`
	UnpaidInvoices     int64 `json:"unpaid_invoices"`
}

// MonthlyTotals are document totals since the start of the month.
type MonthlyTotals struct {
	Purchases decimal.Decimal `json:"purchases"`
	Sales     decimal.Decimal `json:"sales"`
}

// LowStockItem is a product at or under its minimum stock level.
type LowStockItem struct {
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Warehouse string `json:"warehouse"`
	Quantity  int64  `json:"quantity"`
	MinStock  int64  `json:"min_stock"`
}

// RecentMovement is a stock movement row for the dashboard feed.
type RecentMovement struct {
	ID        int64     `json:"id"`
	SKU       string    `json:"sku"`
	Product   string    `json:"product"`
	Warehouse string    `json:"warehouse"`
	Type      string    `json:"type"`
	Quantity  int64     `json:"quantity"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

// RepositoryPort supplies the dashboard read models.
type RepositoryPort interface {
	EntityCounts(ctx context.Context) (EntityCounts, error)
	OrderCounts(ctx context.Context) (OrderCounts, error)
	MonthlyTotals(ctx context.Context, since time.Time) (MonthlyTotals, error)
	LowStock(ctx context.Context, limit int) ([]LowStockItem, error)
	RecentMovements(ctx context.Context, limit int) ([]RecentMovement, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) EntityCounts(ctx context.Context) (EntityCounts, error) {
	var c EntityCounts
	err := r.pool.QueryRow(ctx, `
SELECT (SELECT COUNT(*) FROM products WHERE is_active),
       (SELECT COUNT(*) FROM customers),
       (SELECT COUNT(*) FROM suppliers)`).
		Scan(&c.Products, &c.Customers, &c.Suppliers)
	if err != nil {
		return EntityCounts{}, fmt.Errorf("dashboard: entity counts: %w", err)
	}
	return c, nil
}

func (r *Repository) OrderCounts(ctx context.Context) (OrderCounts, error) {
	var c OrderCounts
	err := r.pool.QueryRow(ctx, `
SELECT (SELECT COUNT(*) FROM purchase_orders WHERE status IN ('DRAFT', 'CONFIRMED')),
       (SELECT COUNT(*) FROM sales_orders WHERE status IN ('DRAFT', 'CONFIRMED')),
       (SELECT COUNT(*) FROM invoices WHERE status = 'ISSUED')`).
		Scan(&c.OpenPurchaseOrders, &c.OpenSalesOrders, &c.UnpaidInvoices)
	if err != nil {
		return OrderCounts{}, fmt.Errorf("dashboard: order counts: %w", err)
	}
	return c, nil
}

func (r *Repository) MonthlyTotals(ctx context.Context, since time.Time) (MonthlyTotals, error) {
	var purchases, sales string
	err := r.pool.QueryRow(ctx, `
SELECT (SELECT COALESCE(SUM(total), 0)::text FROM purchase_orders WHERE status = 'RECEIVED' AND order_date >= $1),
       (SELECT COALESCE(SUM(total), 0)::text FROM sales_orders WHERE status = 'DELIVERED' AND order_date >= $1)`,
		since).Scan(&purchases, &sales)
	if err != nil {
		return MonthlyTotals{}, fmt.Errorf("dashboard: monthly totals: %w", err)
	}

	var t MonthlyTotals
	if t.Purchases, err = decimal.NewFromString(purchases); err != nil {
		return MonthlyTotals{}, fmt.Errorf("dashboard: parse purchases: %w", err)
	}
	if t.Sales, err = decimal.NewFromString(sales); err != nil {
		return MonthlyTotals{}, fmt.Errorf("dashboard: parse sales: %w", err)
	}
	return t, nil
}

func (r *Repository) LowStock(ctx context.Context, limit int) ([]LowStockItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT p.id, p.sku, p.name, w.name, i.quantity, p.min_stock
FROM inventories i
JOIN products p ON p.id = i.product_id
JOIN warehouses w ON w.id = i.warehouse_id
WHERE p.is_active AND i.quantity <= p.min_stock
ORDER BY i.quantity - p.min_stock, p.sku
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard: low stock: %w", err)
	}
	defer rows.Close()

	items := make([]LowStockItem, 0)
	for rows.Next() {
		var item LowStockItem
		if err := rows.Scan(&item.ProductID, &item.SKU, &item.Name, &item.Warehouse,
			&item.Quantity, &item.MinStock); err != nil {
			return nil, fmt.Errorf("dashboard: scan low stock: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) RecentMovements(ctx context.Context, limit int) ([]RecentMovement, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
SELECT m.id, p.sku, p.name, w.name, m.type, m.quantity, m.reference, m.created_at
FROM stock_movements m
JOIN products p ON p.id = m.product_id
JOIN warehouses w ON w.id = m.warehouse_id
ORDER BY m.created_at DESC, m.id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard: recent movements: %w", err)
	}
	defer rows.Close()

	movements := make([]RecentMovement, 0)
	for rows.Next() {
		var m RecentMovement
		if err := rows.Scan(&m.ID, &m.SKU, &m.Product, &m.Warehouse,
			&m.Type, &m.Quantity, &m.Reference, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("dashboard: scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
