// Package views composes the dashboard payload: a greeting, per-card
// spend, the five largest transactions and live currency and stock quotes.
package views

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"finreport/internal/core"
	"finreport/internal/log"
	"finreport/internal/settings"
	"finreport/internal/sheets"
)

// DateLayout is the timestamp format accepted by Compose.
const DateLayout = "2006-01-02 15:04:05"

// ErrView matches every *ViewError.
var ErrView = errors.New("view composition failed")

// ViewError reports a failed composition. Op names the failing step and Err
// keeps the cause for logging.
type ViewError struct {
	Op  string
	Err error
}

func (e *ViewError) Error() string {
	return fmt.Sprintf("view: %s: %v", e.Op, e.Err)
}

func (e *ViewError) Unwrap() error { return e.Err }

func (e *ViewError) Is(target error) bool { return target == ErrView }

// QuoteSource fetches market data for the watch lists.
type QuoteSource interface {
	CurrencyRates(ctx context.Context, codes []string) ([]core.CurrencyRate, error)
	StockPrices(ctx context.Context, symbols []string) ([]core.StockPrice, error)
}

type View struct {
	Greeting        string              `json:"greeting"`
	Cards           []core.CardSummary  `json:"cards"`
	TopTransactions []core.Transaction  `json:"top_transactions"`
	CurrencyRates   []core.CurrencyRate `json:"currency_rates"`
	StockPrices     []core.StockPrice   `json:"stock_prices"`
}

// JSON renders the view indented by two spaces with non-ASCII text kept
// as is.
func (v View) JSON() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

type Composer struct {
	loader        sheets.TransactionLoader
	quotes        QuoteSource
	settingsPath  string
	defaultSource string
	logger        *log.Logger
}

type Config struct {
	Loader sheets.TransactionLoader
	Quotes QuoteSource
	// SettingsPath is the user settings file, settings.Default when empty.
	SettingsPath string
	// DefaultSource is loaded by ComposeFromSource when no name is given.
	DefaultSource string
}

func NewComposer(cfg Config, logger *log.Logger) *Composer {
	if logger == nil {
		logger = log.Discard()
	}
	return &Composer{
		loader:        cfg.Loader,
		quotes:        cfg.Quotes,
		settingsPath:  cfg.SettingsPath,
		defaultSource: cfg.DefaultSource,
		logger:        logger.WithComponent(log.ComponentViews),
	}
}

// Greeting returns the Russian greeting for the time of day of t.
func Greeting(t time.Time) string {
	s := t.Hour()*3600 + t.Minute()*60 + t.Second()
	switch {
	case s >= 5*3600+1 && s <= 12*3600:
		return "Доброе утро!"
	case s >= 12*3600+1 && s <= 17*3600:
		return "Добрый день!"
	case s >= 17*3600+1 && s <= 21*3600:
		return "Добрый вечер!"
	default:
		return "Доброй ночи!"
	}
}

// ComposeFromSource loads the named batch (the default source when name is
// empty) and composes the view for it.
func (c *Composer) ComposeFromSource(ctx context.Context, date, name string) (View, error) {
	if name == "" {
		name = c.defaultSource
	}
	if c.loader == nil {
		return View{}, c.fail(ctx, "load", errors.New("no transaction source configured"))
	}
	txs, err := c.loader.Load(ctx, name)
	if err != nil {
		return View{}, c.fail(ctx, "load", err)
	}
	return c.Compose(ctx, date, txs)
}

// Compose builds the view for date ("YYYY-MM-DD HH:MM:SS"). Any failure
// returns a *ViewError and no partial view.
func (c *Composer) Compose(ctx context.Context, date string, txs []core.Transaction) (View, error) {
	ts, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return View{}, c.fail(ctx, "date", fmt.Errorf("%w: %q", core.ErrInvalidDate, date))
	}

	prefs, err := settings.Load(c.settingsPath)
	if err != nil {
		return View{}, c.fail(ctx, "settings", err)
	}
	if c.quotes == nil {
		return View{}, c.fail(ctx, "quotes", errors.New("no quote source configured"))
	}

	var (
		rates  []core.CurrencyRate
		prices []core.StockPrice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := c.quotes.CurrencyRates(gctx, prefs.Currencies)
		rates = r
		return err
	})
	g.Go(func() error {
		p, err := c.quotes.StockPrices(gctx, prefs.Stocks)
		prices = p
		return err
	})
	if err := g.Wait(); err != nil {
		return View{}, c.fail(ctx, "quotes", err)
	}

	v := View{
		Greeting:        Greeting(ts),
		Cards:           core.CardSummaries(txs),
		TopTransactions: core.TopTransactions(txs),
		CurrencyRates:   nonNil(rates),
		StockPrices:     nonNil(prices),
	}
	c.logger.InfoContext(ctx, "View composed",
		log.FieldDate, date, log.FieldRecords, len(txs), "cards", len(v.Cards))
	return v, nil
}

func (c *Composer) fail(ctx context.Context, op string, err error) error {
	c.logger.ErrorContext(ctx, "View composition failed",
		log.NewFields().WithOperation(op).WithError(err).ToSlice()...)
	return &ViewError{Op: op, Err: err}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
