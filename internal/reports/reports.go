// Package reports assembles the category-spend and investment round-up
// reports from a statement batch.
package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finreport/internal/core"
	"finreport/internal/log"
)

// Report names passed to the sink.
const (
	CategorySpendReport = "spent_by_category"
	InvestmentReport    = "investment_bank"
)

// DateLayout is the reference date format of CategorySpend.
const DateLayout = "2006-01-02"

// Sink receives every generated category report. Implementations overwrite
// their target; no history is kept.
type Sink interface {
	Write(ctx context.Context, name string, records []core.Transaction) error
}

type Service struct {
	sink   Sink
	logger *log.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now as the source of the default reference date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds the report service. A nil sink disables writing.
func NewService(sink Sink, logger *log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Service{
		sink:   sink,
		logger: logger.WithComponent(log.ComponentReports),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReferenceDate parses a YYYY-MM-DD date; the empty string means today.
func (s *Service) ReferenceDate(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return s.now(), nil
	}
	ref, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, date)
	}
	return ref, nil
}

// CategorySpend keeps the categorized records of the twelve weeks ending on
// date whose category matches category, hands them to the sink and returns
// them.
func (s *Service) CategorySpend(ctx context.Context, txs []core.Transaction, category, date string) ([]core.Transaction, error) {
	ref, err := s.ReferenceDate(date)
	if err != nil {
		return nil, err
	}
	windowed, err := core.FilterByDate(core.DropUncategorized(txs), ref)
	if err != nil {
		return nil, err
	}
	result := core.FilterByCategory(category, windowed)

	if s.sink != nil {
		if err := s.sink.Write(ctx, CategorySpendReport, result); err != nil {
			s.logger.ErrorContext(ctx, "Report write failed",
				log.NewFields().WithReport(CategorySpendReport, len(result)).WithOperation(log.OpWrite).WithError(err).ToSlice()...)
			return nil, fmt.Errorf("write report: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "Category report built",
		log.NewFields().WithReport(CategorySpendReport, len(result)).ToSlice()...)
	return result, nil
}

// Investment returns the round-up savings of month as JSON number text
// ("0.0", "105.3").
func (s *Service) Investment(ctx context.Context, month string, txs []core.Transaction, limit int) (string, error) {
	selected, err := core.SelectMonth(month, txs)
	if err != nil {
		return "", err
	}
	savings, err := core.RoundUpSavings(limit, selected)
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "Investment report built",
		log.FieldMonth, month, log.FieldLimit, limit, log.FieldRecords, len(selected))
	return core.FormatJSONNumber(savings), nil
}
