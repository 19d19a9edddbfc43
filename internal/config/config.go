package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port              string
	RequestsPerMinute int
	// TrustedProxies are CIDRs, beyond loopback and private ranges, whose
	// forwarding headers name the client.
	TrustedProxies []string

	// Logging
	LogLevel  string
	LogFormat string

	// Transaction source
	TransactionSource string
	DataDir           string
	OperationsFile    string
	FixturesFile      string
	LoaderCacheTTL    time.Duration
	LoaderCacheSize   int

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	// OAuth user credentials, used when no service account is configured.
	// cmd/oauth-init produces the token.
	GoogleOAuthClientJSON string
	GoogleOAuthClientFile string
	GoogleOAuthTokenJSON  string
	GoogleOAuthTokenFile  string

	// Quotes
	UserSettingsFile  string
	APIKeyCurrency    string
	APIKeyStock       string
	CurrencyAPIURL    string
	StockAPIURL       string
	QuoteTimeout      time.Duration
	QuoteConcurrency  int
	StockRateInterval time.Duration
	QuoteCacheTTL     time.Duration

	// Report sinks
	ReportSinks  []string
	ReportFile   string
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		RequestsPerMinute: getEnvInt("REQUESTS_PER_MINUTE", 60),
		TrustedProxies:    getEnvList("TRUSTED_PROXIES", nil),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		TransactionSource: getEnv("TRANSACTION_SOURCE", "excel"),
		DataDir:           getEnv("DATA_DIR", "data"),
		OperationsFile:    getEnv("OPERATIONS_FILE", "operations.xls"),
		FixturesFile:      getEnv("FIXTURES_FILE", ""),
		LoaderCacheTTL:    getEnvDuration("LOADER_CACHE_TTL", 5*time.Minute),
		LoaderCacheSize:   getEnvInt("LOADER_CACHE_SIZE", 16),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Операции"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),

		UserSettingsFile:  getEnv("USER_SETTINGS_FILE", "user_settings.json"),
		APIKeyCurrency:    getEnv("API_KEY_CURRENCY", ""),
		APIKeyStock:       getEnv("API_KEY_STOCK", ""),
		CurrencyAPIURL:    getEnv("CURRENCY_API_URL", "https://api.apilayer.com"),
		StockAPIURL:       getEnv("STOCK_API_URL", "https://www.alphavantage.co"),
		QuoteTimeout:      getEnvDuration("QUOTE_TIMEOUT", 5*time.Second),
		QuoteConcurrency:  getEnvInt("QUOTE_CONCURRENCY", 4),
		StockRateInterval: getEnvDuration("STOCK_RATE_INTERVAL", 0),
		QuoteCacheTTL:     getEnvDuration("QUOTE_CACHE_TTL", 0),

		ReportSinks:  getEnvList("REPORT_SINK", []string{"file"}),
		ReportFile:   getEnv("REPORT_FILE", "log_file.json"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finreport.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finreport"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "reports"),
	}

	return cfg
}

// HasSink reports whether name is one of the configured report sinks.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.ReportSinks {
		if s == name {
			return true
		}
	}
	return false
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RequestsPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid requests per minute %d: must be at least 1", c.RequestsPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	validSources := []string{"excel", "sheets", "memory"}
	if !oneOf(validSources, c.TransactionSource) {
		errors = append(errors, fmt.Sprintf("invalid transaction source '%s': must be one of %v", c.TransactionSource, validSources))
	}

	switch c.TransactionSource {
	case "excel":
		if c.OperationsFile == "" {
			errors = append(errors, "operations file cannot be empty when using excel source")
		}
	case "memory":
		if c.FixturesFile != "" {
			if _, err := os.Stat(c.FixturesFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("fixtures file does not exist: %s", c.FixturesFile))
			}
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets source")
		}
		hasServiceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
		hasOAuthClient := c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != ""
		hasOAuthToken := c.GoogleOAuthTokenJSON != "" || c.GoogleOAuthTokenFile != ""
		switch {
		case hasServiceAccount:
			if c.GoogleServiceAccountFile != "" && c.GoogleServiceAccountJSON == "" {
				if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
					errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
				}
			}
		case hasOAuthClient || hasOAuthToken:
			if !hasOAuthClient {
				errors = append(errors, "either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided with an OAuth token")
			}
			if !hasOAuthToken {
				errors = append(errors, "either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided with an OAuth client")
			}
			if c.GoogleOAuthClientFile != "" && c.GoogleOAuthClientJSON == "" {
				if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
					errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
				}
			}
			if c.GoogleOAuthTokenFile != "" && c.GoogleOAuthTokenJSON == "" {
				if _, err := os.Stat(c.GoogleOAuthTokenFile); os.IsNotExist(err) {
					errors = append(errors, fmt.Sprintf("Google OAuth token file does not exist: %s", c.GoogleOAuthTokenFile))
				}
			}
		default:
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets source, or an OAuth client and token")
		}
	}

	if c.LoaderCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid loader cache size %d: must be at least 1", c.LoaderCacheSize))
	}
	if c.LoaderCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid loader cache ttl %v: must not be negative", c.LoaderCacheTTL))
	}

	for _, raw := range []struct{ name, value string }{
		{"currency API URL", c.CurrencyAPIURL},
		{"stock API URL", c.StockAPIURL},
	} {
		if u, err := url.Parse(raw.value); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid %s '%s'", raw.name, raw.value))
		}
	}

	if c.QuoteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid quote timeout %v: must be positive", c.QuoteTimeout))
	} else if c.QuoteTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid quote timeout %v: must be at most 1 minute", c.QuoteTimeout))
	}
	if c.QuoteConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid quote concurrency %d: must be at least 1", c.QuoteConcurrency))
	}
	if c.QuoteCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid quote cache ttl %v: must not be negative", c.QuoteCacheTTL))
	}
	if c.StockRateInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid stock rate interval %v: must not be negative", c.StockRateInterval))
	}

	validSinks := []string{"file", "sqlite", "amqp"}
	if len(c.ReportSinks) == 0 {
		errors = append(errors, "at least one report sink is required")
	}
	for _, s := range c.ReportSinks {
		if !oneOf(validSinks, s) {
			errors = append(errors, fmt.Sprintf("invalid report sink '%s': must be one of %v", s, validSinks))
		}
	}

	if c.HasSink("file") && c.ReportFile == "" {
		errors = append(errors, "report file cannot be empty when using file sink")
	}

	if c.HasSink("sqlite") {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite sink")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.HasSink("amqp") && c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required when using amqp sink")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func oneOf(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
