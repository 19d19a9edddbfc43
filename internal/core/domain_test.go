package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseOperationDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"28.03.2018 09:24:15", time.Date(2018, 3, 28, 9, 24, 15, 0, time.UTC), true},
		{" 01.10.2021 00:00:00 ", time.Date(2021, 10, 1, 0, 0, 0, 0, time.UTC), true},
		{"2021-10-01 00:00:00", time.Time{}, false},
		{"32.01.2021 10:00:00", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tc := range cases {
		got, err := ParseOperationDate(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(tc.want) {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestTransactionFromRow(t *testing.T) {
	tx, err := TransactionFromRow(map[string]any{
		ColOperationDate: "28.03.2018 09:24:15",
		ColCardNumber:    "*7197",
		ColAmount:        "-1 150,50",
		ColCategory:      "Связь",
		ColDescription:   "МТС",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Amount != -1150.50 || tx.CardNumber != "*7197" || tx.Category != "Связь" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if tx.Columns[ColDescription] != "МТС" {
		t.Fatalf("expected extra column kept, got %v", tx.Columns)
	}
	if _, ok := tx.Columns[ColAmount]; ok {
		t.Fatalf("typed columns must not be duplicated in Columns")
	}
}

func TestTransactionFromRowNullCategory(t *testing.T) {
	for _, v := range []any{nil, "", "nan", "  "} {
		tx, err := TransactionFromRow(map[string]any{ColAmount: 1.0, ColCategory: v})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tx.HasCategory() {
			t.Fatalf("category %v should be treated as null", v)
		}
	}
}

func TestTransactionFromRowBadAmount(t *testing.T) {
	for _, v := range []any{"abc", "", "NaN", nil} {
		_, err := TransactionFromRow(map[string]any{ColAmount: v})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %v expected ErrInvalidAmount, got %v", v, err)
		}
	}
}

func TestTransactionJSONKeepsSourceColumns(t *testing.T) {
	tx := Transaction{
		OperationDate: "01.10.2021 12:00:00",
		Amount:        -152,
		CardNumber:    "*4556",
		Columns:       map[string]any{ColDescription: "Бургер"},
	}
	b, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"Описание":"Бургер"`, `"Категория":null`, `"Сумма операции":-152`, `"Номер карты":"*4556"`} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected %s in %s", want, s)
		}
	}

	var back Transaction
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Amount != tx.Amount || back.OperationDate != tx.OperationDate || back.HasCategory() {
		t.Fatalf("unexpected round trip: %+v", back)
	}
}

func TestTransactionJSONKeepsHTMLCharacters(t *testing.T) {
	tx := Transaction{
		OperationDate: "01.10.2021 12:00:00",
		Amount:        -42,
		Category:      "A&B",
		CardNumber:    "*7197",
		Columns:       map[string]any{"Описание": "M&M's <shop>"},
	}

	raw, err := tx.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]Transaction{tx}); err != nil {
		t.Fatalf("encode: %v", err)
	}

	for _, out := range []string{string(raw), buf.String()} {
		if !strings.Contains(out, `"A&B"`) || !strings.Contains(out, `"M&M's <shop>"`) {
			t.Fatalf("html characters were escaped: %s", out)
		}
	}
	if strings.HasSuffix(string(raw), "\n") {
		t.Fatal("record json must not end with a newline")
	}
}
