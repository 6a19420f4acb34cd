package products

import "github.com/shopspring/decimal"

// Product represents a sellable item.
type Product struct {
	ID           int64           `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	CategoryID   *int64          `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name,omitempty"`
	UnitID       *int64          `json:"unit_id,omitempty"`
	UnitName     string          `json:"unit_name,omitempty"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellPrice    decimal.Decimal `json:"sell_price"`
	MinStock     int64           `json:"min_stock"`
	IsActive     bool            `json:"is_active"`
}
