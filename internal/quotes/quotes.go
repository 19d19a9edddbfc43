// Package quotes fetches currency rates (apilayer exchangerates_data) and
// stock prices (Alpha Vantage GLOBAL_QUOTE) for the dashboard view.
//
// Symbols are fetched in parallel with a bounded errgroup. A single failure
// cancels the remaining requests and fails the whole call with core.ErrFetch;
// callers never see a partial list. Requests are not retried. Quotes are
// fetched fresh on every call unless Config.CacheTTL opts into keeping
// successful quotes for a while.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"finreport/internal/core"
	"finreport/internal/log"
)

const (
	// TargetCurrency is the currency every rate is quoted in.
	TargetCurrency = "RUB"

	defaultCurrencyURL = "https://api.apilayer.com"
	defaultStockURL    = "https://www.alphavantage.co"
	defaultTimeout     = 5 * time.Second
	maxBodyBytes       = 1 << 20
)

type Config struct {
	CurrencyURL string
	CurrencyKey string
	StockURL    string
	StockKey    string
	// Timeout bounds each request.
	Timeout time.Duration
	// Concurrency bounds the number of in-flight requests per call.
	Concurrency int
	// StockInterval spaces stock requests; zero disables throttling.
	StockInterval time.Duration
	// CacheTTL keeps successful quotes; zero disables caching.
	CacheTTL time.Duration
	// HTTPClient overrides the default client. Its redirect policy is
	// replaced so that redirects are never followed.
	HTTPClient *http.Client
}

type Client struct {
	cfg          Config
	http         *http.Client
	stockLimiter *rate.Limiter
	cache        *gocache.Cache
	logger       *log.Logger
}

func New(cfg Config, logger *log.Logger) *Client {
	if cfg.CurrencyURL == "" {
		cfg.CurrencyURL = defaultCurrencyURL
	}
	if cfg.StockURL == "" {
		cfg.StockURL = defaultStockURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = log.Discard()
	}

	hc := &http.Client{}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		hc = &copied
	}
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	c := &Client{
		cfg:    cfg,
		http:   hc,
		logger: logger.WithComponent(log.ComponentQuotes),
	}
	if cfg.StockInterval > 0 {
		c.stockLimiter = rate.NewLimiter(rate.Every(cfg.StockInterval), 1)
	}
	if cfg.CacheTTL > 0 {
		c.cache = gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return c
}

func (c *Client) cached(key string) (float64, bool) {
	if c.cache == nil {
		return 0, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return 0, false
	}
	return v.(float64), true
}

func (c *Client) remember(key string, value float64) {
	if c.cache != nil {
		c.cache.Set(key, value, gocache.DefaultExpiration)
	}
}

type currencyResponse struct {
	Result json.Number `json:"result"`
}

type stockResponse struct {
	GlobalQuote struct {
		Price json.Number `json:"05. price"`
	} `json:"Global Quote"`
}

// CurrencyRates returns the RUB rate of each code, in input order.
func (c *Client) CurrencyRates(ctx context.Context, codes []string) ([]core.CurrencyRate, error) {
	return fetchAll(ctx, codes, c.cfg.Concurrency, func(ctx context.Context, code string) (core.CurrencyRate, error) {
		key := "currency:" + code
		if v, ok := c.cached(key); ok {
			return core.CurrencyRate{Currency: code, Rate: v}, nil
		}
		u, err := buildURL(c.cfg.CurrencyURL, []string{"exchangerates_data", "convert"}, url.Values{
			"to":     {TargetCurrency},
			"from":   {code},
			"amount": {"1"},
		})
		if err != nil {
			return core.CurrencyRate{}, fmt.Errorf("%w: currency %s: %v", core.ErrFetch, code, err)
		}
		header := http.Header{"apikey": {c.cfg.CurrencyKey}}

		var body currencyResponse
		if err := c.getJSON(ctx, u, header, &body); err != nil {
			c.logger.WarnContext(ctx, "Currency rate fetch failed", log.FieldSymbol, code, log.FieldError, err)
			return core.CurrencyRate{}, fmt.Errorf("%w: currency %s: %v", core.ErrFetch, code, err)
		}
		value, err := round2(body.Result)
		if err != nil {
			return core.CurrencyRate{}, fmt.Errorf("%w: currency %s: result: %v", core.ErrFetch, code, err)
		}
		c.remember(key, value)
		return core.CurrencyRate{Currency: code, Rate: value}, nil
	})
}

// StockPrices returns the latest price of each ticker, in input order.
func (c *Client) StockPrices(ctx context.Context, symbols []string) ([]core.StockPrice, error) {
	return fetchAll(ctx, symbols, c.cfg.Concurrency, func(ctx context.Context, symbol string) (core.StockPrice, error) {
		key := "stock:" + symbol
		if price, ok := c.cached(key); ok {
			return core.StockPrice{Stock: symbol, Price: price}, nil
		}
		if c.stockLimiter != nil {
			if err := c.stockLimiter.Wait(ctx); err != nil {
				return core.StockPrice{}, fmt.Errorf("%w: stock %s: %v", core.ErrFetch, symbol, err)
			}
		}
		u, err := buildURL(c.cfg.StockURL, []string{"query"}, url.Values{
			"function": {"GLOBAL_QUOTE"},
			"symbol":   {symbol},
			"apikey":   {c.cfg.StockKey},
		})
		if err != nil {
			return core.StockPrice{}, fmt.Errorf("%w: stock %s: %v", core.ErrFetch, symbol, err)
		}

		var body stockResponse
		if err := c.getJSON(ctx, u, nil, &body); err != nil {
			c.logger.WarnContext(ctx, "Stock price fetch failed", log.FieldSymbol, symbol, log.FieldError, err)
			return core.StockPrice{}, fmt.Errorf("%w: stock %s: %v", core.ErrFetch, symbol, err)
		}
		price, err := round2(body.GlobalQuote.Price)
		if err != nil {
			return core.StockPrice{}, fmt.Errorf("%w: stock %s: price: %v", core.ErrFetch, symbol, err)
		}
		c.remember(key, price)
		return core.StockPrice{Stock: symbol, Price: price}, nil
	})
}

// getJSON performs one GET bounded by the configured timeout. The error never
// contains the request URL since it may carry an API key.
func (c *Client) getJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("request: %w", ctx.Err())
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("request: %w", urlErr.Err)
		}
		return errors.New("request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func buildURL(base string, path []string, query url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u = u.JoinPath(path...)
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func round2(n json.Number) (float64, error) {
	if n == "" {
		return 0, errors.New("missing")
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return 0, err
	}
	return core.Round2(d), nil
}

// fetchAll runs fetch for every item with at most limit in flight and keeps
// results in input order.
func fetchAll[T any](ctx context.Context, items []string, limit int, fetch func(context.Context, string) (T, error)) ([]T, error) {
	out := make([]T, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			v, err := fetch(gctx, item)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
