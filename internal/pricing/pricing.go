// Package pricing computes document totals. All amounts are decimals;
// VAT and grand total are rounded half-up to two decimals exactly once,
// when totals are produced for persistence.
package pricing

import "github.com/shopspring/decimal"

// Line is one order line for totals purposes.
type Line struct {
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Totals holds the computed amounts of a document.
type Totals struct {
	Subtotal  decimal.Decimal
	VATAmount decimal.Decimal
	Total     decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// LineTotal returns quantity x unit price for a single line.
func LineTotal(quantity int64, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity)).Round(2)
}

// Calculate computes subtotal, VAT and grand total for a set of lines at
// the given VAT rate percentage.
func Calculate(lines []Line, vatRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(LineTotal(line.Quantity, line.UnitPrice))
	}
	return fromSubtotal(subtotal, vatRate)
}

// FromLineTotals computes totals from already-priced line totals. The
// invoice generator uses this path: invoice lines carry the stored totals
// of their source sales order lines.
func FromLineTotals(lineTotals []decimal.Decimal, vatRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, t := range lineTotals {
		subtotal = subtotal.Add(t)
	}
	return fromSubtotal(subtotal, vatRate)
}

func fromSubtotal(subtotal, vatRate decimal.Decimal) Totals {
	vat := subtotal.Mul(vatRate).Div(hundred).Round(2)
	return Totals{
		Subtotal:  subtotal,
		VATAmount: vat,
		Total:     subtotal.Add(vat),
	}
}
