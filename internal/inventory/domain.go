package inventory

import (
	"fmt"
	"time"

	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	MovementIn     MovementType = "IN"
	MovementOut    MovementType = "OUT"
	MovementAdjust MovementType = "ADJUST"
)

var (
	ErrNotFound         = fmt.Errorf("inventory: not found: %w", shared.ErrNotFound)
	ErrInvalidQuantity  = fmt.Errorf("inventory: quantity must not be zero: %w", shared.ErrValidation)
	ErrUnknownMovement  = fmt.Errorf("inventory: unknown movement type: %w", shared.ErrValidation)
	ErrUnknownReference = fmt.Errorf("inventory: unknown product or warehouse: %w", shared.ErrConflict)
)

// ParseMovementType validates a wire value.
func ParseMovementType(raw string) (MovementType, error) {
	switch MovementType(raw) {
	case MovementIn, MovementOut, MovementAdjust:
		return MovementType(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMovement, raw)
	}
}

// Level is the on-hand quantity of one product in one warehouse.
type Level struct {
	ID            int64     `json:"id"`
	ProductID     int64     `json:"product_id"`
	ProductSKU    string    `json:"product_sku"`
	ProductName   string    `json:"product_name"`
	WarehouseID   int64     `json:"warehouse_id"`
	WarehouseName string    `json:"warehouse_name"`
	Quantity      int64     `json:"quantity"`
	MinStock      int64     `json:"min_stock"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Movement is one immutable row of the stock audit trail. Quantity is
// the unsigned magnitude; Type carries the direction.
type Movement struct {
	ID            int64        `json:"id"`
	ProductID     int64        `json:"product_id"`
	ProductSKU    string       `json:"product_sku"`
	ProductName   string       `json:"product_name"`
	WarehouseID   int64        `json:"warehouse_id"`
	WarehouseName string       `json:"warehouse_name"`
	Type          MovementType `json:"type"`
	Quantity      int64        `json:"quantity"`
	Note          string       `json:"note"`
	Reference     string       `json:"reference"`
	CreatedAt     time.Time    `json:"created_at"`
}

// MovementInput describes one stock effect to apply. For IN and OUT the
// quantity is a positive magnitude; for ADJUST it is the signed delta.
type MovementInput struct {
	ProductID   int64
	WarehouseID int64
	Type        MovementType
	Quantity    int64
	Note        string
	Reference   string
}

// Delta returns the signed change applied to on-hand stock.
func (in MovementInput) Delta() (int64, error) {
	switch in.Type {
	case MovementIn:
		if in.Quantity <= 0 {
			return 0, ErrInvalidQuantity
		}
		return in.Quantity, nil
	case MovementOut:
		if in.Quantity <= 0 {
			return 0, ErrInvalidQuantity
		}
		return -in.Quantity, nil
	case MovementAdjust:
		if in.Quantity == 0 {
			return 0, ErrInvalidQuantity
		}
		return in.Quantity, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMovement, in.Type)
	}
}

// Magnitude returns the unsigned quantity recorded on the movement row.
func (in MovementInput) Magnitude() int64 {
	if in.Quantity < 0 {
		return -in.Quantity
	}
	return in.Quantity
}
