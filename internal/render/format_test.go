package render

import (
	"math"
	"testing"
)

func TestCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{1234.5, "$1,234.50"},
		{1e6, "$1,000,000.00"},
		{0.1 + 0.2, "$0.30"},
		{-12.3, "-$12.30"},
		{math.NaN(), "N/A"},
		{9e16, "$90,000,000,000,000,000.00"},
		{1e17, "$100,000,000,000,000,000.00"},
		{-1e17, "-$100,000,000,000,000,000.00"},
		{1e20, "$100,000,000,000,000,000,000.00"},
	}
	for _, tt := range tests {
		if got := Currency(tt.in); got != tt.want {
			t.Errorf("Currency(%v) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestLargeNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5e12, "$1.50 T"},
		{2.5e9, "$2.50 B"},
		{3e6, "$3.00 M"},
		{12345.6, "$12,346"},
		{1000, "$1,000"},
		{999.5, "$999.50"},
		{5, "$5.00"},
		{0.00012345, "$0.000123"},
		{math.Inf(1), "N/A"},
	}
	for _, tt := range tests {
		if got := LargeNumber(tt.in); got != tt.want {
			t.Errorf("LargeNumber(%v) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestChange(t *testing.T) {
	if got := Change(-1.234); got != "-1.23%" {
		t.Errorf("Change(-1.234) = %q", got)
	}
	if got := Change(5); got != "5.00%" {
		t.Errorf("Change(5) = %q", got)
	}
	if ChangeClass(0) != "positive" || ChangeClass(-0.01) != "negative" {
		t.Errorf("ChangeClass boundaries wrong")
	}
}

func TestPriceAndQuantity(t *testing.T) {
	if got := Price(0); got != "N/A" {
		t.Errorf("Price(0) = %q; want N/A", got)
	}
	if got := Price(42); got != "$42.00" {
		t.Errorf("Price(42) = %q", got)
	}
	if got := Quantity(1234.5678); got != "1,234.568" {
		t.Errorf("Quantity(1234.5678) = %q", got)
	}
	if got := Quantity(2); got != "2" {
		t.Errorf("Quantity(2) = %q", got)
	}
}
