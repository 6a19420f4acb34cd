// Package company manages the singleton company settings record.
package company

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// Company is the singleton settings row. It is created lazily with a
// default 7% VAT rate when first read.
type Company struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	NameTH    string          `json:"name_th"`
	Address   string          `json:"address"`
	AddressTH string          `json:"address_th"`
	TaxID     string          `json:"tax_id"`
	Phone     string          `json:"phone"`
	Email     string          `json:"email"`
	VATRate   decimal.Decimal `json:"vat_rate"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Defaults applied when no company row exists yet.
const (
	DefaultName   = "My Company"
	DefaultNameTH = "บริษัทของฉัน"
)

// DefaultVATRate is the VAT percentage used until settings are saved.
var DefaultVATRate = decimal.NewFromInt(7)

// ErrNotFound indicates the company row is missing where lazy creation
// does not apply (update of a never-initialised company).
var ErrNotFound = fmt.Errorf("company: %w", shared.ErrNotFound)
