package backend

import (
	"context"
	"errors"
	"fmt"

	"finreport/internal/amqp"
	"finreport/internal/cache"
	"finreport/internal/core"
	"finreport/internal/log"
	"finreport/internal/reports"
	"finreport/internal/sheets"
	"finreport/internal/sheets/excel"
	gsheet "finreport/internal/sheets/google"
	"finreport/internal/sheets/memory"
	"finreport/internal/sink"
	"finreport/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateLoader implements Factory.CreateLoader
func (f *DefaultFactory) CreateLoader(ctx context.Context, config Config) (*LoaderResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		base sheets.TransactionLoader
		err  error
	)
	switch config.Source {
	case ExcelSource:
		base = excel.New(config.DataDir, f.logger)
		f.logger.Info("Initialized excel source", "data_dir", config.DataDir)
	case SheetsSource:
		base, err = gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			DefaultSheet:    config.GoogleSheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
			OAuthClientJSON: config.GoogleOAuthClientJSON,
			OAuthClientFile: config.GoogleOAuthClientFile,
			OAuthTokenJSON:  config.GoogleOAuthTokenJSON,
			OAuthTokenFile:  config.GoogleOAuthTokenFile,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets loader: %w", err)
		}
		f.logger.Info("Initialized Google Sheets source", "sheet", config.GoogleSheetName)
	case MemorySource:
		base, err = f.createMemoryStore(config)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported transaction source: %s", config.Source)
	}

	if config.CacheTTL <= 0 {
		return &LoaderResult{Loader: base}, nil
	}

	lru := cache.NewLRUCache[[]core.Transaction](config.CacheSize, config.CacheTTL)
	manager := cache.NewManager(f.logger)
	manager.Register(lru)
	manager.StartCleanup(config.CacheTTL)

	cached := sheets.NewCachedLoader(base, lru, f.logger)
	f.logger.Info("Loader cache enabled", "ttl", config.CacheTTL.String(), "size", config.CacheSize)

	return &LoaderResult{
		Loader: cached,
		Cached: cached,
		Cleanup: func() error {
			manager.Stop()
			return nil
		},
	}, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) (*memory.Store, error) {
	if config.FixturesFile == "" {
		f.logger.Info("Initialized empty memory source")
		return memory.New(), nil
	}
	store, err := memory.NewFromFile(config.FixturesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}
	f.logger.Info("Initialized memory source", "fixtures", config.FixturesFile, "batches", len(store.Names()))
	return store, nil
}

// CreateSink implements Factory.CreateSink. With several sinks configured the
// result fans out to all of them.
func (f *DefaultFactory) CreateSink(ctx context.Context, config Config) (*SinkResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		sinks    []reports.Sink
		cleanups []CleanupFunc
		checks   = map[string]CheckFunc{}
	)
	closeAll := func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			errs = append(errs, cleanups[i]())
		}
		return errors.Join(errs...)
	}

	for _, kind := range config.Sinks {
		switch kind {
		case FileSink:
			sinks = append(sinks, sink.NewFile(config.ReportFile, f.logger))
			f.logger.Info("Initialized file sink", "path", config.ReportFile)

		case SQLiteSink:
			repo, err := storage.NewReportRepository(config.SQLiteDBPath, f.logger)
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
			}
			sinks = append(sinks, sink.NewSQLite(repo, f.logger))
			cleanups = append(cleanups, repo.Close)
			checks["sqlite"] = repo.Ping
			f.logger.Info("Initialized SQLite sink", "db_path", config.SQLiteDBPath)

		case AMQPSink:
			client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
			}
			sinks = append(sinks, sink.NewAMQP(client))
			cleanups = append(cleanups, client.Close)
			f.logger.Info("Initialized AMQP sink",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)

		default:
			closeAll()
			return nil, fmt.Errorf("unsupported report sink: %s", kind)
		}
	}

	result := &SinkResult{Checks: checks, Cleanup: closeAll}
	switch len(sinks) {
	case 0:
		// reports are returned but not written
	case 1:
		result.Sink = sinks[0]
	default:
		result.Sink = sink.NewMulti(f.logger, sinks...)
	}
	return result, nil
}
