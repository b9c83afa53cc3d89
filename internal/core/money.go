// Amount parsing and formatting helpers.
//
// All ledger arithmetic uses exact decimals (shopspring/decimal); floats
// only appear at presentation boundaries.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when an amount string cannot be parsed.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount parses a decimal amount string. It accepts both dot
// (12.34) and comma (12,34) decimal separators.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("-20.00") -> -20, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with two decimal places for display.
// Internal arithmetic never goes through this; it is a boundary helper.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
