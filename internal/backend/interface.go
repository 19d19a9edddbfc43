// Package backend builds the transaction loader and the report sinks from
// configuration.
package backend

import (
	"context"
	"time"

	"finreport/internal/reports"
	"finreport/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// CheckFunc reports whether a dependency is usable; wired into /readyz.
type CheckFunc func(ctx context.Context) error

// LoaderResult contains the loader and its optional cleanup function.
type LoaderResult struct {
	Loader sheets.TransactionLoader
	// Cached is the caching decorator when one was installed.
	Cached  *sheets.CachedLoader
	Cleanup CleanupFunc
}

// SinkResult contains the report sink, its readiness checks and cleanup.
type SinkResult struct {
	Sink    reports.Sink
	Checks  map[string]CheckFunc
	Cleanup CleanupFunc
}

// Factory creates loaders and sinks based on configuration
type Factory interface {
	CreateLoader(ctx context.Context, config Config) (*LoaderResult, error)
	CreateSink(ctx context.Context, config Config) (*SinkResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Source SourceType

	// Excel
	DataDir string

	// Memory
	FixturesFile string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenJSON     string
	GoogleOAuthTokenFile     string

	// Loader cache; a zero TTL disables caching.
	CacheTTL  time.Duration
	CacheSize int

	Sinks        []SinkType
	ReportFile   string
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// SourceType names a transaction source.
type SourceType string

const (
	ExcelSource  SourceType = "excel"
	SheetsSource SourceType = "sheets"
	MemorySource SourceType = "memory"
)

// String implements fmt.Stringer
func (st SourceType) String() string {
	return string(st)
}

// IsValid returns true if the source type is valid
func (st SourceType) IsValid() bool {
	switch st {
	case ExcelSource, SheetsSource, MemorySource:
		return true
	default:
		return false
	}
}

// SinkType names a report sink.
type SinkType string

const (
	FileSink   SinkType = "file"
	SQLiteSink SinkType = "sqlite"
	AMQPSink   SinkType = "amqp"
)

func (st SinkType) String() string {
	return string(st)
}

func (st SinkType) IsValid() bool {
	switch st {
	case FileSink, SQLiteSink, AMQPSink:
		return true
	default:
		return false
	}
}
