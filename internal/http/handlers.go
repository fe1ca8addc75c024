package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"saldo/internal/backend"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady checks that the backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if err := s.pingBackend(ctx); err != nil {
		checks["backend"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["backend"] = "ok"
	}

	if s.cacheSizer != nil {
		checks["dashboard_cache"] = map[string]any{"entries": s.cacheSizer.Size(), "status": "ok"}
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients(), "status": "ok"}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) pingBackend(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("backend not configured")
	}
	if p, ok := s.store.(backend.Pinger); ok {
		return p.Ping(ctx)
	}
	_, err := s.store.ListCategories(ctx)
	return err
}

// handleMetrics reports counters in plain text.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	cacheEntries := 0
	if s.cacheSizer != nil {
		cacheEntries = s.cacheSizer.Size()
	}

	fmt.Fprintf(w, "saldo_uptime_seconds %d\n", int64(time.Since(s.appMetrics.uptime).Seconds()))
	fmt.Fprintf(w, "saldo_http_requests_total %d\n", traceMetrics.TotalRequests)
	fmt.Fprintf(w, "saldo_http_server_errors_total %d\n", traceMetrics.ServerErrors)
	fmt.Fprintf(w, "saldo_http_response_time_avg_us %d\n", traceMetrics.AverageResponseTime)
	fmt.Fprintf(w, "saldo_ratelimit_active_clients %d\n", s.rateLimiter.ActiveClients())
	fmt.Fprintf(w, "saldo_dashboard_cache_entries %d\n", cacheEntries)
	fmt.Fprintf(w, "saldo_transactions_created_total %d\n", atomic.LoadInt64(&s.appMetrics.created))
	fmt.Fprintf(w, "saldo_transactions_imported_total %d\n", atomic.LoadInt64(&s.appMetrics.imported))
	fmt.Fprintf(w, "saldo_transactions_deleted_total %d\n", atomic.LoadInt64(&s.appMetrics.deleted))
}
