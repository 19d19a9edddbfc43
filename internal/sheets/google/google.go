// Package google loads statement batches from a Google Sheets spreadsheet
// using service account credentials, or OAuth user credentials when no
// service account is configured.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finreport/internal/core"
	"finreport/internal/log"
	ports "finreport/internal/sheets"
)

// Columns read from each tab. The statement export has fifteen columns.
const readColumns = "A:O"

type Config struct {
	SpreadsheetID   string
	DefaultSheet    string
	CredentialsJSON string
	CredentialsFile string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

type Loader struct {
	svc           *gsheet.Service
	spreadsheetID string
	defaultSheet  string
	logger        *log.Logger
}

var _ ports.TransactionLoader = (*Loader)(nil)

// New creates a loader authenticated with the configured service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Loader, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Discard()
	}
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.DefaultSheet, logger), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, defaultSheet string, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Discard()
	}
	return &Loader{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		defaultSheet:  defaultSheet,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	credentialsJSON, err := readSecret(cfg.CredentialsJSON, cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	if credentialsJSON != nil {
		logger.DebugContext(ctx, "Using service account credentials", "path", cfg.CredentialsFile)
		return gsheet.NewService(ctx,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	}

	ts, err := oauthTokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.DebugContext(ctx, "Using OAuth user credentials", "token_path", cfg.OAuthTokenFile)
	return gsheet.NewService(ctx, goption.WithTokenSource(ts))
}

// oauthTokenSource builds a refreshing token source from an OAuth client and
// a token saved by cmd/oauth-init.
func oauthTokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	clientJSON, err := readSecret(cfg.OAuthClientJSON, cfg.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	tokenJSON, err := readSecret(cfg.OAuthTokenJSON, cfg.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token file: %w", err)
	}
	if clientJSON == nil || tokenJSON == nil {
		return nil, errors.New("missing service account credentials")
	}

	oauthCfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("oauth client: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	return oauthCfg.TokenSource(ctx, &tok), nil
}

// readSecret prefers the inline value over the file. Both empty yields nil.
func readSecret(inline, path string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(path) != "":
		return os.ReadFile(path)
	default:
		return nil, nil
	}
}

// Load reads the tab called name, or the default tab when name is empty.
func (l *Loader) Load(ctx context.Context, name string) ([]core.Transaction, error) {
	if l.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	sheet := strings.TrimSpace(name)
	if sheet == "" {
		sheet = l.defaultSheet
	}
	rng := fmt.Sprintf("%s!%s", quoteSheet(sheet), readColumns)

	resp, err := l.svc.Spreadsheets.Values.Get(l.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusBadRequest) {
			return nil, fmt.Errorf("%w: %s: %v", ports.ErrSourceNotFound, rng, err)
		}
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = toStrings(row)
	}
	txs, err := ports.RowsToTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rng, err)
	}
	l.logger.DebugContext(ctx, "Statement loaded", log.FieldSource, rng, log.FieldRecords, len(txs))
	return txs, nil
}

// quoteSheet wraps tab names that need quoting in A1 notation.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
