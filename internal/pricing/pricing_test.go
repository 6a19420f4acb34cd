package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculateWorkedExample(t *testing.T) {
	// Items [(qty=2, price=100), (qty=1, price=50)] at 7% VAT.
	totals := Calculate([]Line{
		{Quantity: 2, UnitPrice: dec("100")},
		{Quantity: 1, UnitPrice: dec("50")},
	}, dec("7"))

	require.True(t, totals.Subtotal.Equal(dec("250")), "subtotal = %s", totals.Subtotal)
	require.True(t, totals.VATAmount.Equal(dec("17.5")), "vat = %s", totals.VATAmount)
	require.True(t, totals.Total.Equal(dec("267.5")), "total = %s", totals.Total)
}

func TestTotalsIdentity(t *testing.T) {
	cases := []struct {
		lines []Line
		rate  string
	}{
		{[]Line{{Quantity: 3, UnitPrice: dec("19.99")}}, "7"},
		{[]Line{{Quantity: 1, UnitPrice: dec("0.01")}, {Quantity: 999, UnitPrice: dec("123.45")}}, "10"},
		{[]Line{{Quantity: 7, UnitPrice: dec("42")}}, "0"},
	}
	for _, tc := range cases {
		totals := Calculate(tc.lines, dec(tc.rate))

		expectedSubtotal := decimal.Zero
		for _, l := range tc.lines {
			expectedSubtotal = expectedSubtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)).Round(2))
		}
		require.True(t, totals.Subtotal.Equal(expectedSubtotal))
		require.True(t, totals.Total.Equal(totals.Subtotal.Add(totals.VATAmount)))
	}
}

func TestVATRoundsHalfUpToTwoDecimals(t *testing.T) {
	// 33.33 * 7% = 2.3331 -> 2.33; 0.55 * 10% = 0.055 -> 0.06.
	totals := Calculate([]Line{{Quantity: 1, UnitPrice: dec("33.33")}}, dec("7"))
	require.True(t, totals.VATAmount.Equal(dec("2.33")), "vat = %s", totals.VATAmount)

	totals = Calculate([]Line{{Quantity: 1, UnitPrice: dec("0.55")}}, dec("10"))
	require.True(t, totals.VATAmount.Equal(dec("0.06")), "vat = %s", totals.VATAmount)
}

func TestFromLineTotalsSumsStoredTotals(t *testing.T) {
	totals := FromLineTotals([]decimal.Decimal{dec("1000"), dec("250.50")}, dec("7"))
	require.True(t, totals.Subtotal.Equal(dec("1250.50")))
	require.True(t, totals.VATAmount.Equal(dec("87.54")), "vat = %s", totals.VATAmount)
	require.True(t, totals.Total.Equal(dec("1338.04")))
}

func TestEmptyLines(t *testing.T) {
	totals := Calculate(nil, dec("7"))
	require.True(t, totals.Subtotal.IsZero())
	require.True(t, totals.VATAmount.IsZero())
	require.True(t, totals.Total.IsZero())
}
