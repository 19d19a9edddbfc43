package sink

import (
	"context"
	"errors"

	"finreport/internal/core"
	"finreport/internal/log"
	"finreport/internal/reports"
)

// Multi writes to every sink in order. A failing sink does not stop the
// others; all failures are joined.
type Multi struct {
	sinks  []reports.Sink
	logger *log.Logger
}

func NewMulti(logger *log.Logger, sinks ...reports.Sink) *Multi {
	if logger == nil {
		logger = log.Discard()
	}
	return &Multi{sinks: sinks, logger: logger.WithComponent(log.ComponentSink)}
}

// Len returns the number of wrapped sinks.
func (m *Multi) Len() int { return len(m.sinks) }

func (m *Multi) Write(ctx context.Context, name string, records []core.Transaction) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, name, records); err != nil {
			m.logger.WarnContext(ctx, "sink write failed",
				log.FieldReport, name,
				log.FieldError, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
