package core

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestCardSummaries(t *testing.T) {
	in := []Transaction{
		{OperationDate: "28.03.2018 09:24:15", CardNumber: "*7197", Amount: -150.0},
		{OperationDate: "28.03.2018 08:23:56", CardNumber: "*7197", Amount: -197.7},
	}
	got := CardSummaries(in)
	want := []CardSummary{{LastDigits: "7197", TotalSpent: -347.7, Cashback: -3.48}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

// Cashback mirrors the sign of total_spent: a spending card gets negative
// cashback. This matches the statement exports the dashboard was built on.
func TestCardSummariesCashbackKeepsSign(t *testing.T) {
	got := CardSummaries([]Transaction{
		{CardNumber: "*1111", Amount: -1000},
		{CardNumber: "*2222", Amount: 500},
	})
	if got[0].Cashback != -10 {
		t.Fatalf("expected negative cashback for spending card, got %v", got[0].Cashback)
	}
	if got[1].Cashback != 5 {
		t.Fatalf("expected positive cashback for income card, got %v", got[1].Cashback)
	}
}

func TestCardSummariesGroupsByFirstAppearance(t *testing.T) {
	got := CardSummaries([]Transaction{
		{CardNumber: "*5091", Amount: -10},
		{CardNumber: "*4556", Amount: -20},
		{CardNumber: "*5091", Amount: -30.555},
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(got))
	}
	if got[0].LastDigits != "5091" || got[0].TotalSpent != -40.56 || got[0].Cashback != -0.41 {
		t.Fatalf("unexpected first card: %+v", got[0])
	}
	if got[1].LastDigits != "4556" || got[1].TotalSpent != -20 {
		t.Fatalf("unexpected second card: %+v", got[1])
	}
	if len(CardSummaries(nil)) != 0 {
		t.Fatalf("expected no cards for empty batch")
	}
}

func amounts(txs []Transaction) []float64 {
	out := make([]float64, len(txs))
	for i, t := range txs {
		out[i] = t.Amount
	}
	return out
}

func TestTopTransactions(t *testing.T) {
	var in []Transaction
	for _, a := range []float64{1, 9, 4, 31, 11, -17, -100, 5} {
		in = append(in, Transaction{Amount: a})
	}
	got := amounts(TopTransactions(in))
	want := []float64{9, 11, -17, 31, -100}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if !reflect.DeepEqual(amounts(in), []float64{1, 9, 4, 31, 11, -17, -100, 5}) {
		t.Fatalf("input mutated")
	}
}

func TestTopTransactionsShortBatch(t *testing.T) {
	in := []Transaction{{Amount: -3}, {Amount: 1}, {Amount: 2}}
	got := amounts(TopTransactions(in))
	if !reflect.DeepEqual(got, []float64{1, 2, -3}) {
		t.Fatalf("unexpected order: %v", got)
	}
	if len(TopTransactions(nil)) != 0 {
		t.Fatalf("expected empty result")
	}
}

func TestTopTransactionsTiesKeepInputOrder(t *testing.T) {
	in := []Transaction{
		{Amount: 10, CardNumber: "a"},
		{Amount: -10, CardNumber: "b"},
		{Amount: 10, CardNumber: "c"},
		{Amount: 1, CardNumber: "d"},
		{Amount: 10, CardNumber: "e"},
		{Amount: 10, CardNumber: "f"},
	}
	got := TopTransactions(in)
	var cards []string
	for _, g := range got {
		cards = append(cards, g.CardNumber)
	}
	if !reflect.DeepEqual(cards, []string{"a", "b", "c", "e", "f"}) {
		t.Fatalf("unexpected tie order: %v", cards)
	}
}

func TestRoundUpExamples(t *testing.T) {
	cases := []struct {
		limit  int
		amount float64
		want   float64
	}{
		{100, -97, -100},
		{50, 173.4, 200},
		{10, 236.75, 240},
		{100, -100, -100},
		{100, 100, 100},
		{10, -0.5, -10},
		{100, 0, 0},
	}
	for _, tc := range cases {
		got, err := RoundUp(tc.limit, tc.amount)
		if err != nil || got != tc.want {
			t.Fatalf("RoundUp(%d, %v) expected %v, got %v (err=%v)", tc.limit, tc.amount, tc.want, got, err)
		}
	}
}

func TestRoundUpProperties(t *testing.T) {
	for _, limit := range []int{1, 5, 10, 50, 100, 1000} {
		for _, a := range []float64{-12345.67, -999.99, -97, -1, -0.01, 0.01, 1, 49.5, 173.4, 236.75, 12345.67} {
			got, err := RoundUp(limit, a)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Mod(got, float64(limit)) != 0 {
				t.Fatalf("RoundUp(%d, %v)=%v is not a multiple of the limit", limit, a, got)
			}
			if a < 0 && got > a {
				t.Fatalf("RoundUp(%d, %v)=%v should be <= amount", limit, a, got)
			}
			if a > 0 && got < a {
				t.Fatalf("RoundUp(%d, %v)=%v should be >= amount", limit, a, got)
			}
		}
	}
}

func TestRoundUpInvalidLimit(t *testing.T) {
	for _, l := range []int{0, -10} {
		if _, err := RoundUp(l, 10); !errors.Is(err, ErrInvalidLimit) {
			t.Fatalf("limit %d expected ErrInvalidLimit, got %v", l, err)
		}
	}
}

func TestRoundUpSavings(t *testing.T) {
	in := []Transaction{{Amount: -97}, {Amount: 173.4}, {Amount: -236.75}, {Amount: 0}}
	got, err := RoundUpSavings(100, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 3 + 26.6 + 63.25
	if got != 92.85 {
		t.Fatalf("expected 92.85, got %v", got)
	}
	if got, _ := RoundUpSavings(100, nil); got != 0 {
		t.Fatalf("expected 0 for empty batch, got %v", got)
	}
}
