package domain

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Column bounds of offer_items: qty DECIMAL(12,3), price and line_total DECIMAL(15,2)
var (
	MaxItemQty    = decimal.RequireFromString("999999999.999")
	MaxItemAmount = decimal.RequireFromString("9999999999999.99")
)

var (
	// ErrQtyOutOfRange is returned when a quantity does not fit the qty column
	ErrQtyOutOfRange = errors.New("quantity is out of range")

	// ErrPriceOutOfRange is returned when a price does not fit the price column
	ErrPriceOutOfRange = errors.New("price is out of range")

	// ErrLineTotalOutOfRange is returned when qty * price does not fit the line_total column
	ErrLineTotalOutOfRange = errors.New("line total is out of range")
)

// Totals are the computed amounts of an offer
type Totals struct {
	Subtotal float64
	VAT      float64
	Total    float64
}

// LineTotal returns qty * price rounded to cents
func LineTotal(qty, price float64) float64 {
	return toDecimal(qty).Mul(toDecimal(price)).Round(2).InexactFloat64()
}

// CheckItemAmounts reports whether qty, price and their line total fit the
// item columns. Values are compared after rounding to the column scale.
func CheckItemAmounts(qty, price float64) error {
	if !isFinite(qty) || toDecimal(qty).Round(3).Abs().GreaterThan(MaxItemQty) {
		return ErrQtyOutOfRange
	}
	if !isFinite(price) || toDecimal(price).Round(2).Abs().GreaterThan(MaxItemAmount) {
		return ErrPriceOutOfRange
	}
	line := toDecimal(qty).Mul(toDecimal(price)).Round(2)
	if line.Abs().GreaterThan(MaxItemAmount) {
		return ErrLineTotalOutOfRange
	}
	return nil
}

// ComputeTotals sums line totals and applies a flat VAT percentage
func ComputeTotals(items []OfferItem, vatRate float64) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(toDecimal(item.LineTotal))
	}
	return TotalsFromSubtotal(subtotal.InexactFloat64(), vatRate)
}

// TotalsFromSubtotal applies a flat VAT percentage to a precomputed subtotal
func TotalsFromSubtotal(subtotal, vatRate float64) Totals {
	sub := toDecimal(subtotal).Round(2)
	vat := sub.Mul(toDecimal(vatRate)).Div(hundred).Round(2)
	return Totals{
		Subtotal: sub.InexactFloat64(),
		VAT:      vat.InexactFloat64(),
		Total:    sub.Add(vat).InexactFloat64(),
	}
}

// ParseAmount leniently parses a user supplied number. Both "," and "."
// are accepted as the decimal separator. Empty, unparseable or
// non-finite input yields fallback.
func ParseAmount(raw string, fallback float64) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fallback
	}
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fallback
	}
	f := d.InexactFloat64()
	if !isFinite(f) {
		return fallback
	}
	return f
}

// toDecimal converts f, treating NaN and infinities as zero.
// decimal.NewFromFloat panics on them.
func toDecimal(f float64) decimal.Decimal {
	if !isFinite(f) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
