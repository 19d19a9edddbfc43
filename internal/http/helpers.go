package http

import (
	"errors"
	"net/http"
	"strings"

	"finreport/internal/core"
	"finreport/internal/middleware/trace"
	"finreport/internal/sheets"
	"finreport/internal/views"
)

// errorStatus maps an error to its status code and the message shown to the
// client. View failures stay opaque; their cause is only logged.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, views.ErrView):
		return http.StatusBadGateway, "view unavailable"
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidLimit),
		errors.Is(err, ErrMissingParam),
		errors.Is(err, ErrInvalidSource):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, sheets.ErrSourceNotFound):
		return http.StatusNotFound, "transaction source not found"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeError writes the JSON error for err, tagged with the request ID.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	NewJSONResponse().
		Status(status).
		JSON(ErrorBody{Error: msg, Status: status, RequestID: trace.GetRequestID(r.Context())}).
		Write(w)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
