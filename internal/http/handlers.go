package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"finreport/internal/core"
	"finreport/internal/log"
	"finreport/internal/reports"
)

const readyTimeout = 2 * time.Second

// InvestmentResponse is the body of /api/reports/investment.
type InvestmentResponse struct {
	Month   string          `json:"month"`
	Limit   int             `json:"limit"`
	Savings json.RawMessage `json:"savings"`
}

// handleViews serves the dashboard view for ?date= (now by default).
func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	date, err := ParseViewDate(query, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	source, err := ParseSource(query, s.deps.DefaultSource)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.deps.Views == nil {
		writeError(w, r, errors.New("views not configured"))
		return
	}

	view, err := s.deps.Views.ComposeFromSource(r.Context(), date, source)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := view.JSON()
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().RawJSON(body).Write(w)
}

// handleCategoryReport builds the category-spend report and returns its
// records. The configured sink receives the same records.
func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	category, err := ParseCategory(query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := ParseReportDate(query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, ok := s.load(w, r)
	if !ok {
		return
	}

	records, err := s.deps.Reports.CategorySpend(r.Context(), txs, category, date)
	if err != nil {
		s.logError(r.Context(), reports.CategorySpendReport, err)
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(records).Write(w)
}

// handleInvestmentReport returns the round-up savings of ?month= at ?limit=.
func (s *Server) handleInvestmentReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	month, err := ParseMonth(query, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := ParseLimit(query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, ok := s.load(w, r)
	if !ok {
		return
	}

	savings, err := s.deps.Reports.Investment(r.Context(), month, txs, limit)
	if err != nil {
		s.logError(r.Context(), reports.InvestmentReport, err)
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(InvestmentResponse{
		Month:   month,
		Limit:   limit,
		Savings: json.RawMessage(savings),
	}).Write(w)
}

// load reads the requested batch, writing the error response on failure.
func (s *Server) load(w http.ResponseWriter, r *http.Request) ([]core.Transaction, bool) {
	source, err := ParseSource(r.URL.Query(), s.deps.DefaultSource)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if s.deps.Loader == nil || s.deps.Reports == nil {
		writeError(w, r, errors.New("reports not configured"))
		return nil, false
	}
	txs, err := s.deps.Loader.Load(r.Context(), source)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Transaction load failed",
			log.FieldSource, source, log.FieldError, err)
		writeError(w, r, err)
		return nil, false
	}
	return txs, true
}

func (s *Server) logError(ctx context.Context, report string, err error) {
	status, _ := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(ctx).ErrorContext(ctx, "Report failed",
			log.FieldReport, report, log.FieldError, err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady runs every registered check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", "check", name, log.FieldError, err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		NewJSONResponse().
			Status(http.StatusServiceUnavailable).
			JSON(map[string]any{"status": "unavailable", "checks": failed}).
			Write(w)
		return
	}
	NewJSONResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}
