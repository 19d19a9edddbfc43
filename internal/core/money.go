// Package core provides the transaction model and the pure functions that
// turn a statement batch into reports.
//
// This file contains the decimal helpers used for sums and rounding. Amounts
// travel as float64 in records and payloads; every sum, division and rounding
// step goes through shopspring/decimal so that -150.0 + -197.7 stays -347.7.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Round2 rounds half away from zero to two decimal places. Ties are decided
// on the decimal value, so 0.125 and 2.675 both round up even though their
// nearest binary floats would round down under round-half-even.
func Round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// SumAmounts returns the exact decimal sum of the batch amounts.
func SumAmounts(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(decimal.NewFromFloat(t.Amount))
	}
	return total
}

// FormatJSONNumber renders f the way a float literal is written in the
// dashboard payloads: always with a fractional part ("0.0", "12.0", "105.3").
// The text matches a Python float repr for magnitudes in [1e-4, 1e16); beyond
// that range Python switches to exponent form ("1e+16") while this keeps the
// plain digits.
func FormatJSONNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
