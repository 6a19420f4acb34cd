package invoicing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind-erp/internal/pricing"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// Status is the lifecycle state of an invoice.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusIssued    Status = "ISSUED"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusDraft:     {StatusIssued, StatusCancelled},
	StatusIssued:    {StatusPaid},
	StatusPaid:      {},
	StatusCancelled: {},
}

// ParseStatus validates a wire value.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusDraft, StatusIssued, StatusPaid, StatusCancelled:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("invoicing: unknown status %q: %w", raw, shared.ErrValidation)
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
	ErrNotFound = fmt.Errorf("invoicing: invoice not found: %w", shared.ErrNotFound)
	ErrNotDraft = fmt.Errorf("invoicing: invoice is not editable: %w", shared.ErrConflict)
	ErrNoSource = fmt.Errorf("invoicing: no billable sales orders: %w", shared.ErrValidation)
)

// Invoice aggregates header and lines.
type Invoice struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	CustomerID    int64           `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	Status        Status          `json:"status"`
	IssueDate     time.Time       `json:"issue_date"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	VATAmount     decimal.Decimal `json:"vat_amount"`
	Total         decimal.Decimal `json:"total"`
	Note          string          `json:"note"`
	SourceNumbers []string        `json:"source_numbers,omitempty"`
	Items         []Item          `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Item is one billed line.
type Item struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductSKU  string          `json:"product_sku"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// SourceLine is one sales order line to bill.
type SourceLine struct {
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// SourceOrder is a delivered sales order to bill from.
type SourceOrder struct {
	ID         int64
	Number     string
	CustomerID int64
	Lines      []SourceLine
}

// Build assembles a draft invoice from delivered sales orders. Lines are
// copied as billed, never merged, so the invoice mirrors what each order
// shipped. Totals reuse the stored line totals and apply VAT once.
func Build(orders []SourceOrder, vatRate decimal.Decimal, issueDate time.Time, dueDate *time.Time, note string) (Invoice, error) {
	if len(orders) == 0 {
		return Invoice{}, ErrNoSource
	}
	customerID := orders[0].CustomerID
	inv := Invoice{
		CustomerID: customerID,
		Status:     StatusDraft,
		IssueDate:  issueDate,
		DueDate:    dueDate,
		Note:       note,
	}
	lineTotals := make([]decimal.Decimal, 0)
	for _, order := range orders {
		if order.CustomerID != customerID {
			return Invoice{}, fmt.Errorf("invoicing: order %s belongs to another customer: %w", order.Number, shared.ErrValidation)
		}
		inv.SourceNumbers = append(inv.SourceNumbers, order.Number)
		for _, line := range order.Lines {
			inv.Items = append(inv.Items, Item{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Total:     line.Total,
			})
			lineTotals = append(lineTotals, line.Total)
		}
	}
	if len(inv.Items) == 0 {
		return Invoice{}, ErrNoSource
	}

	totals := pricing.FromLineTotals(lineTotals, vatRate)
	inv.Subtotal = totals.Subtotal
	inv.VATAmount = totals.VATAmount
	inv.Total = totals.Total
	return inv, nil
}
