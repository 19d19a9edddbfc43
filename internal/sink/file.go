// Package sink holds the destinations a generated report is written to.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"finreport/internal/core"
	"finreport/internal/log"
	"finreport/internal/reports"
)

var (
	_ reports.Sink = (*File)(nil)
	_ reports.Sink = (*SQLite)(nil)
	_ reports.Sink = (*AMQP)(nil)
	_ reports.Sink = (*Multi)(nil)
)

// File overwrites a single JSON file with the latest report, whatever its
// name. The file holds the bare record array.
type File struct {
	path   string
	mu     sync.Mutex
	logger *log.Logger
}

func NewFile(path string, logger *log.Logger) *File {
	if logger == nil {
		logger = log.Discard()
	}
	return &File{path: path, logger: logger.WithComponent(log.ComponentSink)}
}

// Write replaces the target file with the indented records. The previous
// content is never merged.
func (f *File) Write(ctx context.Context, name string, records []core.Transaction) error {
	data, err := encodeRecords(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}

	f.logger.DebugContext(ctx, "report written",
		log.FieldSink, "file",
		log.FieldReport, name,
		log.FieldRecords, len(records),
		"path", f.path)
	return nil
}

// encodeRecords renders records with a four space indent and non-ASCII text
// left unescaped.
func encodeRecords(records []core.Transaction) ([]byte, error) {
	if records == nil {
		records = []core.Transaction{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
