package invoicing

import (
	"time"

	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// CreateInput bills delivered, not yet invoiced sales orders of one
// customer. Leaving SalesOrderIDs empty bills all of them.
type CreateInput struct {
	CustomerID    int64      `json:"customer_id" validate:"required,gt=0"`
	SalesOrderIDs []int64    `json:"sales_order_ids" validate:"dive,gt=0"`
	DueDate       *time.Time `json:"due_date"`
	Note          string     `json:"note" validate:"max=500"`
}

// TransitionInput requests a status change.
type TransitionInput struct {
	Status string `json:"status" validate:"required"`
}

// ListFilters narrows the invoice listing.
type ListFilters struct {
	Status     Status
	CustomerID int64
	Search     string
	Query      shared.ListQuery
}
