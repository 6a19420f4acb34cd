package purchasing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// ItemInput is one requested line.
type ItemInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int64           `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
}

// CreateInput creates a draft order.
type CreateInput struct {
	SupplierID int64       `json:"supplier_id" validate:"required,gt=0"`
	OrderDate  time.Time   `json:"order_date"`
	DueDate    *time.Time  `json:"due_date"`
	Note       string      `json:"note" validate:"max=500"`
	Items      []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateInput replaces a draft order's header and lines.
type UpdateInput struct {
	SupplierID int64       `json:"supplier_id" validate:"required,gt=0"`
	OrderDate  time.Time   `json:"order_date"`
	DueDate    *time.Time  `json:"due_date"`
	Note       string      `json:"note" validate:"max=500"`
	Items      []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// TransitionInput requests a status change.
type TransitionInput struct {
	Status string `json:"status" validate:"required"`
}

// ListFilters narrows the order listing.
type ListFilters struct {
	Status     Status
	SupplierID int64
	Search     string
	Query      shared.ListQuery
}
