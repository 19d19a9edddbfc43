// Package excel loads statement batches from local .xlsx and .xls files.
package excel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"finreport/internal/core"
	"finreport/internal/log"
	ports "finreport/internal/sheets"
)

// Loader reads <dir>/<name>. Only the first worksheet is used and its first
// row is the header.
type Loader struct {
	dir    string
	logger *log.Logger
}

var _ ports.TransactionLoader = (*Loader)(nil)

func New(dir string, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Discard()
	}
	return &Loader{dir: dir, logger: logger.WithComponent(log.ComponentSheets)}
}

func (l *Loader) Load(ctx context.Context, name string) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(l.dir, name)

	var read func(string) ([][]string, error)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx":
		read = readXLSX
	case ".xls":
		read = readXLS
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, name)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ports.ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	rows, err := read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	txs, err := ports.RowsToTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	l.logger.DebugContext(ctx, "Statement loaded", log.FieldSource, path, log.FieldRecords, len(txs))
	return txs, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheet)
}

func readXLS(path string) ([][]string, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, err
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("workbook has no sheets")
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
