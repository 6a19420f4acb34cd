package purchasing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// Status is the lifecycle state of a purchase order.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
	StatusReceived  Status = "RECEIVED"
	StatusCancelled Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusDraft:     {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusReceived, StatusCancelled},
	StatusReceived:  {},
	StatusCancelled: {},
}

// ParseStatus validates a wire value.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusDraft, StatusConfirmed, StatusReceived, StatusCancelled:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("purchasing: unknown status %q: %w", raw, shared.ErrValidation)
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
	ErrNotFound = fmt.Errorf("purchasing: order not found: %w", shared.ErrNotFound)
	ErrNotDraft = fmt.Errorf("purchasing: order is not editable: %w", shared.ErrConflict)
)

// PurchaseOrder aggregates header and lines.
type PurchaseOrder struct {
	ID           int64           `json:"id"`
	Number       string          `json:"number"`
	SupplierID   int64           `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	Status       Status          `json:"status"`
	OrderDate    time.Time       `json:"order_date"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	VATAmount    decimal.Decimal `json:"vat_amount"`
	Total        decimal.Decimal `json:"total"`
	Note         string          `json:"note"`
	Items        []Item          `json:"items"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Item is one ordered line. ReceivedQty stays zero until the order is
// received; a future partial-receipt path would fill it per delivery.
type Item struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductSKU  string          `json:"product_sku"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	ReceivedQty int64           `json:"received_qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}
