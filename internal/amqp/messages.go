package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"finreport/internal/core"
)

// ReportMessage carries one generated report. RunID identifies the
// invocation that produced it.
type ReportMessage struct {
	RunID     string             `json:"run_id"`
	Report    string             `json:"report"`
	Count     int                `json:"count"`
	Records   []core.Transaction `json:"records"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewReportMessage creates a message with a fresh run id.
func NewReportMessage(report string, records []core.Transaction) *ReportMessage {
	if records == nil {
		records = []core.Transaction{}
	}
	return &ReportMessage{
		RunID:     uuid.NewString(),
		Report:    report,
		Count:     len(records),
		Records:   records,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportMessageFromJSON creates a message from JSON bytes
func ReportMessageFromJSON(data []byte) (*ReportMessage, error) {
	var msg ReportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
