// Package http exposes the committee's books as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"committee/internal/log"
	"committee/internal/metrics"
	"committee/internal/services"
)

type requestIDKey struct{}

// Server is the JSON API in front of one FinanceService.
type Server struct {
	http.Server
	books       *services.FinanceService
	metrics     *metrics.Metrics
	logger      *log.Logger
	access      *log.StructuredLogger
	rateLimiter *rateLimiter
	started     time.Time
	now         func() time.Time

	shutdownOnce sync.Once
}

type Option func(*Server)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock sets the clock used for defaulted transaction dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRateLimit sets how many mutating requests one client may send per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimiter.limit = perMinute }
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, books *services.FinanceService, opts ...Option) *Server {
	s := &Server{
		books:       books,
		logger:      log.New(log.Config{Component: log.ComponentHTTP, Handler: slog.Default().Handler()}),
		rateLimiter: newRateLimiter(60),
		started:     time.Now(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.access = log.NewStructuredLogger(s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("POST /api/transactions", s.handleRecordTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/authorization", s.handleAuthorization)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/reports/monthly", s.handleMonthlyReport)
	mux.HandleFunc("GET /api/reports/ytd", s.handleYearToDate)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleAddCategory)
	mux.HandleFunc("PUT /api/categories/budget", s.handleAdjustBudget)

	mux.HandleFunc("GET /api/events", s.handleListEvents)
	mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	mux.HandleFunc("GET /api/events/item", s.handleGetEvent)
	mux.HandleFunc("PUT /api/events/actuals", s.handleEventActuals)
	mux.HandleFunc("PUT /api/events/status", s.handleEventStatus)
	mux.HandleFunc("POST /api/events/line-items", s.handleEventLineItem)

	mux.HandleFunc("GET /api/fundraising", s.handleListInitiatives)
	mux.HandleFunc("POST /api/fundraising", s.handleCreateInitiative)
	mux.HandleFunc("GET /api/fundraising/item", s.handleGetInitiative)
	mux.HandleFunc("PUT /api/fundraising/figures", s.handleInitiativeFigures)
	mux.HandleFunc("PUT /api/fundraising/status", s.handleInitiativeStatus)
	mux.HandleFunc("GET /api/fundraising/summary", s.handleFundraisingSummary)

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/backups", s.handleListBackups)
	mux.HandleFunc("POST /api/backups", s.handleCreateBackup)
	mux.HandleFunc("POST /api/backups/restore", s.handleRestoreBackup)

	var handler http.Handler = mux
	handler = log.RequestIDMiddleware(requestIDFromRequest)(handler)
	handler = log.Middleware(s.logger)(handler)
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withRequestMeta(handler),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Shutdown stops the rate limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// withRequestMeta assigns a request ID, applies security headers and the
// rate limit on mutating requests, then logs and measures the request.
func (s *Server) withRequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID)
		setSecurityHeaders(w.Header())

		if detectSuspiciousRequest(r) {
			s.logger.WithComponent(log.ComponentSecurity).WarnContext(ctx, "Suspicious request",
				log.FieldRequestID, requestID,
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && !s.rateLimiter.allow(clientIP) {
			s.logger.WithComponent(log.ComponentRateLimit).WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			rw.Header().Set("Retry-After", "60")
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(rw)
		} else {
			next.ServeHTTP(rw, r)
		}

		elapsed := time.Since(start)
		s.metrics.ObserveHTTP(r.Method, rw.statusCode, elapsed)
		s.access.LogHTTPEnd(ctx, r, rw.statusCode, elapsed.Milliseconds(), clientIP)
	})
}

func requestIDFromRequest(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
