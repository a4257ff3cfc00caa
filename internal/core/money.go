// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Parsing goes through shopspring/decimal
// so that no float rounding leaks into stored totals.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxCents bounds parsed amounts so that totals cannot overflow int64.
var maxCents = decimal.NewFromInt(1<<53 - 1)

// ParseDecimalToCents converts a strictly positive decimal string to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Values are
// rounded half away from zero to two places.
//
// Examples:
//   ParseDecimalToCents("12.34") -> 1234, nil
//   ParseDecimalToCents("12,345") -> 1235, nil
//   ParseDecimalToCents("0") -> 0, ErrInvalidAmount
func ParseDecimalToCents(s string) (int64, error) {
	cents, err := parseCents(s)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseNonNegativeCents is like ParseDecimalToCents but accepts zero.
func ParseNonNegativeCents(s string) (int64, error) {
	cents, err := parseCents(s)
	if err != nil {
		return 0, err
	}
	if cents < 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseSignedCents accepts any sign; used for delta adjustments.
func ParseSignedCents(s string) (int64, error) {
	return parseCents(s)
}

func parseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return decimalToCents(d)
}

func decimalToCents(d decimal.Decimal) (int64, error) {
	c := d.Round(2).Shift(2)
	if c.Abs().GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	return c.IntPart(), nil
}

// ParseLenientPrice parses a receipt price the way a loose numeric prefix
// reader would: every character outside [0-9.-] is dropped, then the longest
// leading "-?digits(.digits)?" run is taken. ok is false when no digit
// survives.
//
//   "$12.99"   -> 1299, true
//   "1,234.50" -> 123450, true
//   "1.2.3"    -> 120, true
//   "N/A"      -> 0, false
func ParseLenientPrice(raw string) (int64, bool) {
	stripped := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, raw)

	prefix := numericPrefix(stripped)
	if prefix == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(prefix)
	if err != nil {
		return 0, false
	}
	cents, err := decimalToCents(d)
	if err != nil {
		return 0, false
	}
	return cents, true
}

// numericPrefix returns the longest prefix of s of the form -?D*(.D*)? that
// contains at least one digit, normalised so decimal can parse it.
func numericPrefix(s string) string {
	i := 0
	neg := false
	if i < len(s) && s[i] == '-' {
		neg = true
		i++
	}
	intStart := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	intPart := s[intStart:i]

	fracPart := ""
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		fracPart = s[i+1 : j]
	}

	if intPart == "" && fracPart == "" {
		return ""
	}
	if intPart == "" {
		intPart = "0"
	}
	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimals, e.g. "12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Units returns the amount as a float64 for display and JSON payloads.
// Use cents for arithmetic.
func (m Money) Units() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}
