package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// WindowWeeks is the length of the rolling window used by FilterByDate.
const WindowWeeks = 12

// MonthLayout is the layout accepted by SelectMonth.
const MonthLayout = "2006-01"

// DropUncategorized returns the records whose category cell was filled.
func DropUncategorized(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.HasCategory() {
			out = append(out, t)
		}
	}
	return out
}

// DateWindow returns the inclusive bounds used by FilterByDate: the start of
// the day twelve weeks before ref and the last second of ref's day.
func DateWindow(ref time.Time) (from, to time.Time) {
	y, m, d := ref.Date()
	to = time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -7*WindowWeeks)
	return start, to
}

// FilterByDate keeps the records whose operation date falls in DateWindow(ref).
// A single unparseable date fails the whole call.
func FilterByDate(txs []Transaction, ref time.Time) ([]Transaction, error) {
	from, to := DateWindow(ref)
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		ts, err := t.OperationTime()
		if err != nil {
			return nil, err
		}
		if ts.Before(from) || ts.After(to) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// FilterByCategory keeps the records whose category contains pattern,
// ignoring case. The pattern is a regular expression; when it does not
// compile it is matched literally.
func FilterByCategory(pattern string, txs []Transaction) []Transaction {
	match := categoryMatcher(pattern)
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if !t.HasCategory() {
			continue
		}
		if match(t.Category) {
			out = append(out, t)
		}
	}
	return out
}

func categoryMatcher(pattern string) func(string) bool {
	if re, err := regexp.Compile("(?i)" + pattern); err == nil {
		return re.MatchString
	}
	lower := strings.ToLower(pattern)
	return func(s string) bool {
		return strings.Contains(strings.ToLower(s), lower)
	}
}

// ParseMonth parses a "YYYY-MM" string.
func ParseMonth(month string) (time.Time, error) {
	m, err := time.Parse(MonthLayout, strings.TrimSpace(month))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	return m, nil
}

// SelectMonth keeps the records of the given calendar month.
func SelectMonth(month string, txs []Transaction) ([]Transaction, error) {
	m, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		ts, err := t.OperationTime()
		if err != nil {
			return nil, err
		}
		if ts.Year() == m.Year() && ts.Month() == m.Month() {
			out = append(out, t)
		}
	}
	return out, nil
}
