// Package core provides money parsing and handling utilities.
//
// Amounts are carried as exact decimals so that sums never drift; rounding
// to currency precision happens once, when a figure leaves the system.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the display precision of amounts.
const CurrencyPlaces = 2

// ParseAmount converts a decimal string to an exact amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and keeps
// every fractional digit. Signs, exponents, thousands separators and
// non-finite values are rejected. Zero is accepted; callers creating new
// expenses require a positive amount.
//
// Examples:
//
//	ParseAmount("12.34")   -> 12.34, nil
//	ParseAmount("12,34")   -> 12.34, nil
//	ParseAmount("100.005") -> 100.005, nil
//	ParseAmount("abc")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if hasDot && fracPart == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(intPart + "." + fracPart + "0")
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// RoundCurrency rounds half away from zero to currency precision.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// CurrencyFloat rounds d and returns it as a float64 for display.
func CurrencyFloat(d decimal.Decimal) float64 {
	return RoundCurrency(d).InexactFloat64()
}
