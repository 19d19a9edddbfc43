// This file implements the query parameter parsing shared by the API
// handlers. Every parser error maps to 400 in errorStatus.

package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finreport/internal/core"
	"finreport/internal/reports"
	"finreport/internal/views"
)

// DefaultLimit is the rounding step used when the limit parameter is absent.
const DefaultLimit = 50

const maxParamLen = 200

var (
	// ErrMissingParam is returned for a required parameter that is empty.
	ErrMissingParam = errors.New("missing parameter")
	// ErrInvalidSource is returned for source names that could escape the
	// data directory.
	ErrInvalidSource = errors.New("invalid source name")
)

// ParseViewDate returns the "YYYY-MM-DD HH:MM:SS" timestamp of the view,
// now when absent.
func ParseViewDate(query url.Values, now time.Time) (string, error) {
	v := strings.TrimSpace(query.Get("date"))
	if v == "" {
		return now.Format(views.DateLayout), nil
	}
	if _, err := time.Parse(views.DateLayout, v); err != nil {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidDate, v)
	}
	return v, nil
}

// ParseReportDate validates an optional "YYYY-MM-DD" reference date.
func ParseReportDate(query url.Values) (string, error) {
	v := strings.TrimSpace(query.Get("date"))
	if v == "" {
		return "", nil
	}
	if _, err := time.Parse(reports.DateLayout, v); err != nil {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidDate, v)
	}
	return v, nil
}

// ParseMonth returns the "YYYY-MM" month parameter, the month of now when
// absent.
func ParseMonth(query url.Values, now time.Time) (string, error) {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return now.Format(core.MonthLayout), nil
	}
	if _, err := core.ParseMonth(v); err != nil {
		return "", err
	}
	return v, nil
}

// ParseLimit returns the positive rounding limit, DefaultLimit when absent.
func ParseLimit(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return DefaultLimit, nil
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidLimit, v)
	}
	return limit, nil
}

// ParseCategory returns the required category pattern.
func ParseCategory(query url.Values) (string, error) {
	v := sanitizeInput(query.Get("category"))
	if v == "" {
		return "", fmt.Errorf("%w: category", ErrMissingParam)
	}
	if len(v) > maxParamLen {
		return "", fmt.Errorf("%w: category longer than %d bytes", ErrMissingParam, maxParamLen)
	}
	return v, nil
}

// ParseSource returns the source parameter or def. Names are plain file or
// tab names; path separators and parent references are rejected.
func ParseSource(query url.Values, def string) (string, error) {
	v := sanitizeInput(query.Get("source"))
	if v == "" {
		return def, nil
	}
	if len(v) > maxParamLen || strings.ContainsAny(v, `/\`) || strings.Contains(v, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidSource, v)
	}
	return v, nil
}
