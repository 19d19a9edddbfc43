package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finreport/internal/core"
	ports "finreport/internal/sheets"
)

func newTestLoader(t *testing.T, h http.HandlerFunc) *Loader {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return NewWithService(svc, "sheet-id", "Операции", nil)
}

func TestLoadReadsRange(t *testing.T) {
	var gotPath string
	l := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":          "Операции!A1:O3",
			"majorDimension": "ROWS",
			"values": [][]any{
				{core.ColOperationDate, core.ColCardNumber, core.ColAmount, core.ColCategory},
				{"01.10.2021 12:00:00", "*4556", -152, "Фастфуд"},
				{"02.10.2021 12:00:00", "*4556", "-10,5"},
			},
		})
	})

	txs, err := l.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(gotPath, "/v4/spreadsheets/sheet-id/values/") || !strings.Contains(gotPath, "Операции!A:O") {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if len(txs) != 2 || txs[0].Amount != -152 || txs[1].Amount != -10.5 || txs[1].HasCategory() {
		t.Fatalf("unexpected records: %+v", txs)
	}
}

func TestLoadNamedTabIsQuoted(t *testing.T) {
	var gotPath string
	l := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"values":[]}`))
	})
	txs, err := l.Load(context.Background(), "Октябрь 2021")
	if err != nil || len(txs) != 0 {
		t.Fatalf("unexpected result: %v %v", txs, err)
	}
	if !strings.Contains(gotPath, "'Октябрь 2021'!A:O") {
		t.Fatalf("expected quoted tab, got %q", gotPath)
	}
}

func TestLoadMissingTab(t *testing.T) {
	l := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Unable to parse range"}}`))
	})
	_, err := l.Load(context.Background(), "nope")
	if !errors.Is(err, ports.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestLoadServerError(t *testing.T) {
	l := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"denied"}}`))
	})
	_, err := l.Load(context.Background(), "")
	if err == nil || errors.Is(err, ports.ErrSourceNotFound) {
		t.Fatalf("expected plain read error, got %v", err)
	}
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	_, err := New(context.Background(), Config{SpreadsheetID: "x"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
	_, err = New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: "/nonexistent/sa.json"}, nil)
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected file error, got %v", err)
	}
}

func TestQuoteSheet(t *testing.T) {
	cases := map[string]string{
		"Операции":   "Операции",
		"Sheet 1":    "'Sheet 1'",
		"Bob's data": "'Bob''s data'",
	}
	for in, want := range cases {
		if got := quoteSheet(in); got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestOAuthTokenSource(t *testing.T) {
	client := `{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
	token := `{"access_token":"abc","token_type":"Bearer","refresh_token":"r","expiry":"2999-01-01T00:00:00Z"}`

	ts, err := oauthTokenSource(context.Background(), Config{OAuthClientJSON: client, OAuthTokenJSON: token})
	if err != nil {
		t.Fatalf("token source: %v", err)
	}
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok.AccessToken != "abc" {
		t.Fatalf("access token = %q", tok.AccessToken)
	}

	if _, err := oauthTokenSource(context.Background(), Config{OAuthClientJSON: client, OAuthTokenJSON: "{"}); err == nil {
		t.Fatal("expected error for malformed token")
	}
	if _, err := oauthTokenSource(context.Background(), Config{OAuthClientJSON: "{}", OAuthTokenJSON: token}); err == nil {
		t.Fatal("expected error for malformed client")
	}
	_, err = oauthTokenSource(context.Background(), Config{OAuthClientJSON: client, OAuthTokenFile: "/nonexistent/token.json"})
	if err == nil || !strings.Contains(err.Error(), "read oauth token file") {
		t.Fatalf("expected token file error, got %v", err)
	}
}
