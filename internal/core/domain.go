package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Source column names of the bank statement export.
const (
	ColOperationDate = "Дата операции"
	ColPaymentDate   = "Дата платежа"
	ColCardNumber    = "Номер карты"
	ColStatus        = "Статус"
	ColAmount        = "Сумма операции"
	ColCategory      = "Категория"
	ColDescription   = "Описание"
)

// OperationDateLayout is the layout of the operation date column.
const OperationDateLayout = "02.01.2006 15:04:05"

type (
	// Transaction is one bank statement line. OperationDate is kept as the
	// raw source text and parsed by the filters that need it.
	Transaction struct {
		OperationDate string
		Amount        float64
		Category      string // empty means the source cell was null
		CardNumber    string
		// Columns holds every other source column verbatim.
		Columns map[string]any
	}

	// CardSummary aggregates spend per card.
	CardSummary struct {
		LastDigits string  `json:"last_digits"`
		TotalSpent float64 `json:"total_spent"`
		Cashback   float64 `json:"cashback"`
	}

	CurrencyRate struct {
		Currency string  `json:"currency"`
		Rate     float64 `json:"rate"`
	}

	StockPrice struct {
		Stock string  `json:"stock"`
		Price float64 `json:"price"`
	}
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidLimit      = errors.New("invalid rounding limit")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrSettings          = errors.New("invalid user settings")
	ErrFetch             = errors.New("quote fetch failed")
)

// HasCategory reports whether the source category cell was filled.
func (t Transaction) HasCategory() bool {
	return strings.TrimSpace(t.Category) != ""
}

// OperationTime parses OperationDate.
func (t Transaction) OperationTime() (time.Time, error) {
	return ParseOperationDate(t.OperationDate)
}

// ParseOperationDate parses a "DD.MM.YYYY HH:MM:SS" timestamp in UTC.
func ParseOperationDate(s string) (time.Time, error) {
	ts, err := time.ParseInLocation(OperationDateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return ts, nil
}

// TransactionFromRow builds a Transaction from a header-keyed row. Values
// may be strings (spreadsheet cells) or JSON scalars (fixtures).
func TransactionFromRow(row map[string]any) (Transaction, error) {
	t := Transaction{Columns: make(map[string]any, len(row))}
	for k, v := range row {
		switch k {
		case ColOperationDate:
			t.OperationDate = cellString(v)
		case ColCardNumber:
			t.CardNumber = cellString(v)
		case ColCategory:
			t.Category = cellString(v)
		case ColAmount:
			amount, err := parseAmount(v)
			if err != nil {
				return Transaction{}, err
			}
			t.Amount = amount
		default:
			t.Columns[k] = v
		}
	}
	return t, nil
}

// MarshalJSON renders the record with its source column names as keys.
func (t Transaction) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Columns)+4)
	for k, v := range t.Columns {
		out[k] = v
	}
	out[ColOperationDate] = t.OperationDate
	out[ColAmount] = t.Amount
	out[ColCardNumber] = t.CardNumber
	if t.HasCategory() {
		out[ColCategory] = t.Category
	} else {
		out[ColCategory] = nil
	}
	// json.Marshal would escape <, > and & in descriptions and merchants.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	var row map[string]any
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	parsed, err := TransactionFromRow(row)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(x)
		if strings.EqualFold(s, "nan") {
			return ""
		}
		return s
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func parseAmount(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return 0, fmt.Errorf("%w: NaN", ErrInvalidAmount)
		}
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, x.String())
		}
		return f, nil
	}
	s := cellString(v)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, cellString(v))
	}
	return f, nil
}
