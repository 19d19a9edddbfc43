package core

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// TopN is the number of records returned by TopTransactions.
const TopN = 5

// CardSummaries groups the batch by card number, in order of first
// appearance. Cashback is total_spent/100 and keeps its sign, so spending
// cards report negative cashback.
func CardSummaries(txs []Transaction) []CardSummary {
	totals := map[string]decimal.Decimal{}
	order := make([]string, 0)
	for _, t := range txs {
		if _, seen := totals[t.CardNumber]; !seen {
			order = append(order, t.CardNumber)
			totals[t.CardNumber] = decimal.Zero
		}
		totals[t.CardNumber] = totals[t.CardNumber].Add(decimal.NewFromFloat(t.Amount))
	}

	hundred := decimal.NewFromInt(100)
	out := make([]CardSummary, 0, len(order))
	for _, card := range order {
		total := totals[card]
		out = append(out, CardSummary{
			LastDigits: lastDigits(card),
			TotalSpent: Round2(total),
			Cashback:   Round2(total.Div(hundred)),
		})
	}
	return out
}

// lastDigits drops the mask character of "*7197".
func lastDigits(card string) string {
	r := []rune(card)
	if len(r) == 0 {
		return ""
	}
	return string(r[1:])
}

// TopTransactions returns the TopN records with the largest absolute amount,
// ascending by magnitude. Equal magnitudes keep their input order.
func TopTransactions(txs []Transaction) []Transaction {
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Amount) < math.Abs(sorted[j].Amount)
	})
	if len(sorted) > TopN {
		sorted = sorted[len(sorted)-TopN:]
	}
	return sorted
}

// RoundUp rounds amount away from zero to the next multiple of limit.
// Zero stays zero.
func RoundUp(limit int, amount float64) (float64, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	a := decimal.NewFromFloat(amount)
	l := decimal.NewFromInt(int64(limit))
	switch a.Sign() {
	case -1:
		return a.Div(l).Floor().Mul(l).InexactFloat64(), nil
	case 1:
		return a.Div(l).Ceil().Mul(l).InexactFloat64(), nil
	default:
		return 0, nil
	}
}

// RoundUpSavings sums |RoundUp(limit, a)| - |a| over the batch, rounded to
// two decimals.
func RoundUpSavings(limit int, txs []Transaction) (float64, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	total := decimal.Zero
	for _, t := range txs {
		rounded, err := RoundUp(limit, t.Amount)
		if err != nil {
			return 0, err
		}
		diff := decimal.NewFromFloat(rounded).Abs().Sub(decimal.NewFromFloat(t.Amount).Abs())
		total = total.Add(diff)
	}
	return Round2(total), nil
}
