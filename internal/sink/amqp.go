package sink

import (
	"context"
	"fmt"

	"finreport/internal/amqp"
	"finreport/internal/core"
)

// Publisher is implemented by *amqp.Client.
type Publisher interface {
	PublishReport(ctx context.Context, msg *amqp.ReportMessage) error
}

// AMQP publishes every report as one message.
type AMQP struct {
	publisher Publisher
}

func NewAMQP(publisher Publisher) *AMQP {
	return &AMQP{publisher: publisher}
}

func (a *AMQP) Write(ctx context.Context, name string, records []core.Transaction) error {
	if err := a.publisher.PublishReport(ctx, amqp.NewReportMessage(name, records)); err != nil {
		return fmt.Errorf("amqp sink: %w", err)
	}
	return nil
}
