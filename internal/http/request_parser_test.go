package http

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"finreport/internal/core"
)

var parserNow = time.Date(2021, 10, 5, 9, 30, 15, 0, time.UTC)

func TestParseViewDate(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    string
		wantErr error
	}{
		{"default is now", url.Values{}, "2021-10-05 09:30:15", nil},
		{"explicit", url.Values{"date": {"2018-03-28 10:42:30"}}, "2018-03-28 10:42:30", nil},
		{"trimmed", url.Values{"date": {" 2018-03-28 10:42:30 "}}, "2018-03-28 10:42:30", nil},
		{"date only", url.Values{"date": {"2018-03-28"}}, "", core.ErrInvalidDate},
		{"garbage", url.Values{"date": {"now"}}, "", core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseViewDate(tt.query, parserNow)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseReportDate(t *testing.T) {
	if got, err := ParseReportDate(url.Values{}); err != nil || got != "" {
		t.Fatalf("empty date should pass through, got %q %v", got, err)
	}
	if got, err := ParseReportDate(url.Values{"date": {"2021-10-05"}}); err != nil || got != "2021-10-05" {
		t.Fatalf("unexpected %q %v", got, err)
	}
	if _, err := ParseReportDate(url.Values{"date": {"2021-02-30"}}); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "2021-10", false},
		{"2021-02", "2021-02", false},
		{"2021-13", "", true},
		{"21-02", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMonth(url.Values{"month": {tt.in}}, parserNow)
		if tt.wantErr {
			if !errors.Is(err, core.ErrInvalidMonth) {
				t.Errorf("%q: expected ErrInvalidMonth, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: got %q %v, want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", DefaultLimit, false},
		{"100", 100, false},
		{" 10 ", 10, false},
		{"0", 0, true},
		{"-50", 0, true},
		{"1.5", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLimit(url.Values{"limit": {tt.in}})
		if tt.wantErr {
			if !errors.Is(err, core.ErrInvalidLimit) {
				t.Errorf("%q: expected ErrInvalidLimit, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: got %d %v, want %d", tt.in, got, err, tt.want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	if _, err := ParseCategory(url.Values{}); !errors.Is(err, ErrMissingParam) {
		t.Fatalf("expected ErrMissingParam, got %v", err)
	}
	got, err := ParseCategory(url.Values{"category": {" Супер\x00маркеты "}})
	if err != nil || got != "Супермаркеты" {
		t.Fatalf("expected sanitized category, got %q %v", got, err)
	}
	long := make([]byte, maxParamLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := ParseCategory(url.Values{"category": {string(long)}}); err == nil {
		t.Fatal("expected error for overlong category")
	}
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "operations.xls", false},
		{"march.xlsx", "march.xlsx", false},
		{"Операции", "Операции", false},
		{"../secret.xls", "", true},
		{"a/b.xls", "", true},
		{`a\b.xls`, "", true},
	}
	for _, tt := range tests {
		got, err := ParseSource(url.Values{"source": {tt.in}}, "operations.xls")
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidSource) {
				t.Errorf("%q: expected ErrInvalidSource, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: got %q %v, want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"a\x00b\x07c", "abc"},
		{"tab\there", "tab\there"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
