package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"committee/internal/services"
)

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports whether the books can be served. An unconfigured backup
// archive is reported but does not fail readiness; an unreachable one does.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]string{}

	d := s.books.Dashboard()
	checks["ledger"] = "ok"

	_, err := s.books.ListBackups(ctx, 1)
	switch {
	case err == nil:
		checks["backups"] = "ok"
	case errors.Is(err, services.ErrNoBackupStore):
		checks["backups"] = "not_configured"
	default:
		checks["backups"] = "failed: " + err.Error()
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":       status,
		"checks":       checks,
		"transactions": d.TransactionCount,
	}).Write(w)
}
