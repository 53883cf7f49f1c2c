// Package render turns market and portfolio data into display strings and
// markdown documents.
package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const NA = "N/A"

// maxCents is the largest amount go-money can hold.
var maxCents = decimal.NewFromInt(math.MaxInt64)

// Currency formats v as US dollars with thousands separators and two decimals.
func Currency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NA
	}
	d := decimal.NewFromFloat(v).Round(2)
	if cents := d.Shift(2); cents.Abs().LessThanOrEqual(maxCents) {
		return money.New(cents.IntPart(), money.USD).Display()
	}
	if d.IsNegative() {
		return "-$" + grouped(d.Neg(), 2, 2)
	}
	return "$" + grouped(d, 2, 2)
}

// LargeNumber abbreviates market caps and volumes: T/B/M with two decimals,
// whole dollars from a thousand up, and up to six decimals below that.
func LargeNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NA
	}
	abs := math.Abs(v)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("$%.2f T", v/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("$%.2f B", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.2f M", v/1e6)
	case abs >= 1e3:
		return "$" + grouped(decimal.NewFromFloat(v), 0, 0)
	default:
		return "$" + grouped(decimal.NewFromFloat(v), 2, 6)
	}
}

// Change renders a 24h percentage change.
func Change(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// ChangeClass is "positive" for v >= 0 and "negative" otherwise.
func ChangeClass(v float64) string {
	if v >= 0 {
		return "positive"
	}
	return "negative"
}

// Price shows N/A for unknown (zero) prices.
func Price(v float64) string {
	if v <= 0 {
		return NA
	}
	return Currency(v)
}

// Quantity renders holdings amounts with grouping and up to three decimals.
func Quantity(v float64) string {
	return grouped(decimal.NewFromFloat(v), 0, 3)
}

// grouped prints d with comma separators and between minFrac and maxFrac
// fraction digits.
func grouped(d decimal.Decimal, minFrac, maxFrac int32) string {
	d = d.Round(maxFrac)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	s := d.String()
	intPart, frac, _ := strings.Cut(s, ".")
	for int32(len(frac)) < minFrac {
		frac += "0"
	}

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
