// Package sheets defines the transaction source port and the helpers shared
// by its adapters (excel, google, memory).
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finreport/internal/core"
)

// TransactionLoader reads one statement batch. name is a file name for the
// excel adapter, a tab name for google and a fixture key for memory.
type TransactionLoader interface {
	Load(ctx context.Context, name string) ([]core.Transaction, error)
}

// ErrSourceNotFound is returned when the named batch does not exist.
var ErrSourceNotFound = errors.New("transaction source not found")

// RowsToTransactions converts a header row followed by data rows. Short
// rows are padded with empty cells and blank rows are skipped.
func RowsToTransactions(rows [][]string) ([]core.Transaction, error) {
	if len(rows) == 0 {
		return []core.Transaction{}, nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	out := make([]core.Transaction, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		cells := make(map[string]any, len(header))
		for j, h := range header {
			if h == "" {
				continue
			}
			var v any
			if j < len(row) && strings.TrimSpace(row[j]) != "" {
				v = row[j]
			}
			cells[h] = v
		}
		tx, err := core.TransactionFromRow(cells)
		if err != nil {
			// +2: one for the header, one for 1-based numbering
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
