package sink

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"finreport/internal/core"
	"finreport/internal/log"
)

// ReportStore is implemented by *storage.ReportRepository.
type ReportStore interface {
	ReplaceReport(ctx context.Context, name, runID string, records []core.Transaction) error
}

// SQLite replaces the stored rows of the report on every write.
type SQLite struct {
	store  ReportStore
	logger *log.Logger
}

func NewSQLite(store ReportStore, logger *log.Logger) *SQLite {
	if logger == nil {
		logger = log.Discard()
	}
	return &SQLite{store: store, logger: logger.WithComponent(log.ComponentSink)}
}

func (s *SQLite) Write(ctx context.Context, name string, records []core.Transaction) error {
	runID := uuid.NewString()
	if err := s.store.ReplaceReport(ctx, name, runID, records); err != nil {
		return fmt.Errorf("sqlite sink: %w", err)
	}
	s.logger.DebugContext(ctx, "report written",
		log.FieldSink, "sqlite",
		log.FieldReport, name,
		log.FieldRunID, runID,
		log.FieldRecords, len(records))
	return nil
}
