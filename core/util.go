package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// money goes over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// RoundMoney rounds an amount to currency units (2 decimal places, half away from zero).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
