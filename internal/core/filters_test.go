package core

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func tx(date string, amount float64, category string) Transaction {
	return Transaction{OperationDate: date, Amount: amount, Category: category, CardNumber: "*7197"}
}

func dates(txs []Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.OperationDate
	}
	return out
}

func TestDateWindow(t *testing.T) {
	from, to := DateWindow(time.Date(2021, 10, 25, 15, 30, 0, 0, time.UTC))
	if want := time.Date(2021, 8, 2, 0, 0, 0, 0, time.UTC); !from.Equal(want) {
		t.Fatalf("from: expected %v, got %v", want, from)
	}
	if want := time.Date(2021, 10, 25, 23, 59, 59, 0, time.UTC); !to.Equal(want) {
		t.Fatalf("to: expected %v, got %v", want, to)
	}
}

func TestFilterByDateBoundsInclusive(t *testing.T) {
	ref := time.Date(2021, 10, 25, 0, 0, 0, 0, time.UTC)
	in := []Transaction{
		tx("01.08.2021 23:59:59", -1, "A"), // day before window
		tx("02.08.2021 00:00:00", -2, "A"), // first second
		tx("15.09.2021 12:00:00", -3, "A"),
		tx("25.10.2021 23:59:59", -4, "A"), // last second
		tx("26.10.2021 00:00:00", -5, "A"), // day after
	}
	got, err := FilterByDate(in, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"02.08.2021 00:00:00", "15.09.2021 12:00:00", "25.10.2021 23:59:59"}
	if !reflect.DeepEqual(dates(got), want) {
		t.Fatalf("expected %v, got %v", want, dates(got))
	}
}

func TestFilterByDateFailsOnBadDate(t *testing.T) {
	in := []Transaction{
		tx("15.10.2021 12:00:00", -1, "A"),
		tx("2021/10/15", -2, "A"),
	}
	got, err := FilterByDate(in, time.Date(2021, 10, 25, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected no partial result, got %v", got)
	}
}

func TestFilterByDateIdempotent(t *testing.T) {
	ref := time.Date(2023, 10, 15, 0, 0, 0, 0, time.UTC)
	in := []Transaction{
		tx("01.10.2023 17:53:24", -152, "Фастфуд"),
		tx("15.10.2023 17:53:24", -10385, "Фастфуд"),
		tx("17.10.2023 17:53:24", -52, "Супермаркет"),
		tx("01.06.2023 10:00:00", -1, "Фастфуд"),
	}
	once, err := FilterByDate(in, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	twice, err := FilterByDate(once, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("filter not idempotent: %v vs %v", dates(once), dates(twice))
	}
	wider, err := FilterByDate(once, ref.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(dates(once), dates(wider)) {
		t.Fatalf("wider window changed result: %v vs %v", dates(once), dates(wider))
	}
}

func TestFilterByDateDoesNotMutateInput(t *testing.T) {
	in := []Transaction{tx("01.01.2020 00:00:00", -1, "A"), tx("15.10.2021 00:00:00", -2, "B")}
	before := append([]Transaction(nil), in...)
	if _, err := FilterByDate(in, time.Date(2021, 10, 25, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(in, before) {
		t.Fatalf("input mutated")
	}
}

func TestFilterByCategory(t *testing.T) {
	in := []Transaction{
		tx("01.10.2023 17:53:24", -152, "Фастфуд"),
		tx("07.10.2023 17:53:24", -47.85, "Каршеринг"),
		tx("15.10.2023 17:53:24", -10385, "ФАСТФУД и кафе"),
		tx("17.10.2023 17:53:24", -52, ""),
	}
	got := FilterByCategory("фастфуд", in)
	if len(got) != 2 || got[0].Amount != -152 || got[1].Amount != -10385 {
		t.Fatalf("unexpected match: %+v", got)
	}
}

func TestFilterByCategoryInvalidRegexFallsBackToLiteral(t *testing.T) {
	in := []Transaction{tx("01.10.2023 17:53:24", -1, "Дом (ремонт"), tx("01.10.2023 17:53:24", -2, "Дом")}
	got := FilterByCategory("(РЕМОНТ", in)
	if len(got) != 1 || got[0].Amount != -1 {
		t.Fatalf("unexpected match: %+v", got)
	}
}

func TestDropUncategorized(t *testing.T) {
	in := []Transaction{tx("", -1, "A"), tx("", -2, ""), tx("", -3, "B")}
	got := DropUncategorized(in)
	if len(got) != 2 || got[0].Amount != -1 || got[1].Amount != -3 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestSelectMonth(t *testing.T) {
	in := []Transaction{
		tx("30.09.2021 23:59:59", -1, "A"),
		tx("01.10.2021 00:00:00", -2, "A"),
		tx("31.10.2021 23:59:59", -3, "A"),
		tx("01.11.2021 00:00:00", -4, "A"),
		tx("15.10.2020 12:00:00", -5, "A"),
	}
	got, err := SelectMonth("2021-10", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"01.10.2021 00:00:00", "31.10.2021 23:59:59"}
	if !reflect.DeepEqual(dates(got), want) {
		t.Fatalf("expected %v, got %v", want, dates(got))
	}
}

func TestSelectMonthPartitionsBatch(t *testing.T) {
	in := []Transaction{
		tx("30.09.2021 23:59:59", -1, "A"),
		tx("01.10.2021 00:00:00", -2, "A"),
		tx("31.10.2021 23:59:59", -3, "A"),
		tx("01.11.2021 00:00:00", -4, "A"),
		tx("15.10.2020 12:00:00", -5, "A"),
	}
	total := 0
	seen := map[float64]bool{}
	for _, month := range []string{"2020-10", "2021-09", "2021-10", "2021-11"} {
		part, err := SelectMonth(month, in)
		if err != nil {
			t.Fatalf("%s: %v", month, err)
		}
		for _, p := range part {
			if seen[p.Amount] {
				t.Fatalf("record %v selected by two months", p.Amount)
			}
			seen[p.Amount] = true
		}
		total += len(part)
	}
	if total != len(in) {
		t.Fatalf("partitions cover %d of %d records", total, len(in))
	}
}

func TestSelectMonthErrors(t *testing.T) {
	for _, m := range []string{"2021-13", "10-2021", "2021/10", ""} {
		if _, err := SelectMonth(m, nil); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%q expected ErrInvalidMonth, got %v", m, err)
		}
	}
	_, err := SelectMonth("2021-10", []Transaction{tx("bad", -1, "A")})
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}
