// Package core provides money parsing and handling utilities.
//
// Amounts are Kuwaiti Dinar held as decimals. The dinar divides into 1000 fils,
// so parsed amounts keep at most three decimal places.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// FilsPlaces is the number of decimal places kept for KD amounts.
const FilsPlaces = 3

// ParseAmount converts a decimal string to a non-negative amount.
//
// It accepts both dot (12.345) and comma (12,345) decimal separators and
// performs half-up rounding to three decimal places. An empty string is zero,
// since both sides of a transaction default to 0.
//
// Examples:
//
//	ParseAmount("12.5")    -> 12.5, nil
//	ParseAmount("12,5")    -> 12.5, nil
//	ParseAmount("1.2345")  -> 1.235, nil (rounds up)
//	ParseAmount("-3")      -> 0, ErrNegativeAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrNegativeAmount
	}
	s = strings.TrimPrefix(s, "+")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(FilsPlaces), nil
}

// FormatKD formats an amount for display, e.g. "KD 12.50" or "-KD 3.00".
func FormatKD(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-KD " + d.Neg().StringFixed(2)
	}
	return "KD " + d.StringFixed(2)
}
