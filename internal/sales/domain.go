package sales

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// Status is the lifecycle state of a sales order.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusDraft:     {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

// ParseStatus validates a wire value.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusDraft, StatusConfirmed, StatusDelivered, StatusCancelled:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("sales: unknown status %q: %w", raw, shared.ErrValidation)
	}
}

// CanTransitionTo reports whether next is a legal successor.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var (
	ErrNotFound = fmt.Errorf("sales: order not found: %w", shared.ErrNotFound)
	ErrNotDraft = fmt.Errorf("sales: order is not editable: %w", shared.ErrConflict)
)

// SalesOrder aggregates header and lines. InvoiceID is set once the
// order has been billed.
type SalesOrder struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	CustomerID    int64           `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	Status        Status          `json:"status"`
	OrderDate     time.Time       `json:"order_date"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	VATAmount     decimal.Decimal `json:"vat_amount"`
	Total         decimal.Decimal `json:"total"`
	Note          string          `json:"note"`
	InvoiceID     *int64          `json:"invoice_id,omitempty"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	Items         []Item          `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Item is one ordered line. DeliveredQty stays zero until delivery.
type Item struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"product_id"`
	ProductSKU   string          `json:"product_sku"`
	ProductName  string          `json:"product_name"`
	Quantity     int64           `json:"quantity"`
	DeliveredQty int64           `json:"delivered_qty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Total        decimal.Decimal `json:"total"`
}
