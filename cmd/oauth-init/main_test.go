package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

const testClient = `{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func TestLoadClientConfig(t *testing.T) {
	cfg, err := loadClientConfig(testClient, "", "9999")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RedirectURL != "http://localhost:9999/callback" {
		t.Fatalf("redirect = %q", cfg.RedirectURL)
	}
	if len(cfg.Scopes) != 1 || !strings.HasSuffix(cfg.Scopes[0], "spreadsheets.readonly") {
		t.Fatalf("scopes = %v", cfg.Scopes)
	}

	path := filepath.Join(t.TempDir(), "client.json")
	if err := os.WriteFile(path, []byte(testClient), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadClientConfig("", path, "8085"); err != nil {
		t.Fatalf("load from file: %v", err)
	}

	if _, err := loadClientConfig("", "", "8085"); err == nil {
		t.Fatal("expected error without client")
	}
	if _, err := loadClientConfig("{}", "", "8085"); err == nil {
		t.Fatal("expected error for malformed client")
	}
}

func TestCallbackHandler(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	h := callbackHandler(codeCh, errCh)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := <-codeCh; got != "abc" {
		t.Fatalf("code = %q", got)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/callback?error=access_denied", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if err := <-errCh; err == nil || !strings.Contains(err.Error(), "access_denied") {
		t.Fatalf("err = %v", err)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/callback", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing code status = %d", rr.Code)
	}
}

func TestSaveToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets", "token.json")
	if err := saveToken(path, &oauth2.Token{AccessToken: "abc", RefreshToken: "r"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
	data, _ := os.ReadFile(path)
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil || tok.RefreshToken != "r" {
		t.Fatalf("token = %+v, err %v", tok, err)
	}
}

func TestRunWithoutClient(t *testing.T) {
	getenv := func(string) string { return "" }
	if err := run(context.Background(), getenv, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error without client credentials")
	}
}
