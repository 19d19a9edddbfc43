package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finreport/internal/backend"
	"finreport/internal/log"
	"finreport/internal/middleware/ratelimit"
	"finreport/internal/middleware/security"
	"finreport/internal/middleware/trace"
	"finreport/internal/reports"
	"finreport/internal/sheets"
	"finreport/internal/views"
)

// Deps are the services behind the API.
type Deps struct {
	Loader  sheets.TransactionLoader
	Views   *views.Composer
	Reports *reports.Service
	// DefaultSource is loaded when a request names no source.
	DefaultSource string
	// Checks run on /readyz.
	Checks map[string]backend.CheckFunc

	RequestsPerMinute int
	RateBurst         int
	// TrustedProxies extend the proxies whose forwarding headers are honoured.
	TrustedProxies []string
	Logger         *log.Logger
}

type Server struct {
	http.Server
	deps    Deps
	logger  *log.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	now     func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}

	clientIP := security.NewClientIPResolver()
	for _, cidr := range deps.TrustedProxies {
		if err := clientIP.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	extractClientIP := clientIP.ExtractClientIP

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		deps:   deps,
		logger: logger.WithComponent(log.ComponentHTTP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RequestsPerMinute,
			Burst:             deps.RateBurst,
		}),
		tracer: trace.NewMiddleware(logger, extractClientIP),
		now:    time.Now,
	}

	limited := s.limiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, extractClientIP(r),
			log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})

	mux := http.NewServeMux()
	mux.Handle("GET /api/views", limited(http.HandlerFunc(s.handleViews)))
	mux.Handle("GET /api/reports/category", limited(http.HandlerFunc(s.handleCategoryReport)))
	mux.Handle("GET /api/reports/investment", limited(http.HandlerFunc(s.handleInvestmentReport)))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = headers.Middleware(mux)
	handler = log.RequestIDMiddleware(trace.GetRequestID)(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)
	s.Handler = handler

	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns request and rate limit counters.
func (s *Server) Metrics() (trace.Metrics, ratelimit.Metrics) {
	return s.tracer.GetMetrics(), s.limiter.GetMetrics()
}
