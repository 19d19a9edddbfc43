package main

import (
	"context"
	"errors"
	"fmt"

	"finreport/internal/backend"
	"finreport/internal/config"
	"finreport/internal/core"
	"finreport/internal/log"
	"finreport/internal/quotes"
	"finreport/internal/reports"
	"finreport/internal/sheets"
	"finreport/internal/views"
)

// app holds the services shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	loader  sheets.TransactionLoader
	views   *views.Composer
	reports *reports.Service
	checks  map[string]backend.CheckFunc
	cleanup []backend.CleanupFunc
}

func newApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*app, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := backend.NewFactory(logger)

	loaded, err := factory.CreateLoader(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create loader: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, loader: loaded.Loader}
	if loaded.Cleanup != nil {
		a.cleanup = append(a.cleanup, loaded.Cleanup)
	}

	sinks, err := factory.CreateSink(ctx, bcfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create sink: %w", err)
	}
	a.cleanup = append(a.cleanup, sinks.Cleanup)
	a.checks = sinks.Checks

	quoteClient := quotes.New(quotes.Config{
		CurrencyURL:   cfg.CurrencyAPIURL,
		CurrencyKey:   cfg.APIKeyCurrency,
		StockURL:      cfg.StockAPIURL,
		StockKey:      cfg.APIKeyStock,
		Timeout:       cfg.QuoteTimeout,
		Concurrency:   cfg.QuoteConcurrency,
		StockInterval: cfg.StockRateInterval,
		CacheTTL:      cfg.QuoteCacheTTL,
	}, logger)

	a.views = views.NewComposer(views.Config{
		Loader:        a.loader,
		Quotes:        quoteClient,
		SettingsPath:  cfg.UserSettingsFile,
		DefaultSource: a.defaultSource(),
	}, logger)
	a.reports = reports.NewService(sinks.Sink, logger)
	return a, nil
}

// defaultSource is the batch read when a command names none: the operations
// file for excel, the configured tab for sheets.
func (a *app) defaultSource() string {
	if a.cfg.TransactionSource == string(backend.SheetsSource) {
		return a.cfg.GoogleSheetName
	}
	return a.cfg.OperationsFile
}

func (a *app) load(ctx context.Context, source string) ([]core.Transaction, error) {
	if source == "" {
		source = a.defaultSource()
	}
	return a.loader.Load(ctx, source)
}

// Close releases the loader cache and the sinks, last created first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		errs = append(errs, a.cleanup[i]())
	}
	a.cleanup = nil
	return errors.Join(errs...)
}
