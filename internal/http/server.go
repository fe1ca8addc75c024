package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"saldo/internal/backend"
	applog "saldo/internal/log"
	"saldo/internal/middleware/ratelimit"
	"saldo/internal/middleware/security"
	"saldo/internal/middleware/trace"
	"saldo/internal/services"
)

// DashboardProvider is the read side the handlers render.
type DashboardProvider interface {
	Get(ctx context.Context, offset int) (services.Dashboard, error)
	GetWithPoints(ctx context.Context, offset, maxPoints int) (services.Dashboard, error)
}

// CacheSizer reports how many dashboards are cached.
type CacheSizer interface {
	Size() int
}

type Options struct {
	RateLimitPerMinute int
	TrustedProxies     []string
	Logger             *applog.Logger
	Cache              CacheSizer // optional, reported on /readyz and /metrics
	// Goals serves goal writes; nil when the backend cannot store goals.
	Goals *services.GoalService
}

type Server struct {
	http.Server
	dashboard    DashboardProvider
	transactions *services.TransactionService
	goals        *services.GoalService
	store        backend.Backend
	cacheSizer   CacheSizer

	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware
	clientIP        *security.ClientIP
	appMetrics      *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	created  int64
	deleted  int64
	imported int64
	uptime   time.Time
}

// NewServer wires routes and middleware. store serves reads that bypass the
// dashboard (transaction list, categories, readiness).
func NewServer(addr string, dashboard DashboardProvider, txs *services.TransactionService, store backend.Backend, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	clientIP := security.NewClientIP()
	for _, cidr := range opts.TrustedProxies {
		if err := clientIP.AddTrustedProxy(cidr); err != nil {
			slog.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	rlCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		dashboard:       dashboard,
		transactions:    txs,
		goals:           opts.Goals,
		store:           store,
		rateLimiter:     ratelimit.NewLimiter(rlCfg),
		traceMiddleware: trace.NewMiddleware(clientIP.Extract),
		clientIP:        clientIP,
		appMetrics:      &appMetrics{uptime: time.Now()},
		cacheSizer:      opts.Cache,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/timeline", s.handleTimeline)
	mux.HandleFunc("GET /api/segments", s.handleSegments)
	mux.HandleFunc("GET /api/insights", s.handleInsights)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /api/transactions/import", s.handleImportTransactions)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/categories", s.handleListCategories)

	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals", s.handleCreateGoal)
	mux.HandleFunc("POST /api/goals/{id}/contributions", s.handleContributeGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", s.handleDeleteGoal)

	// Outermost first: headers, tracing, request-scoped logger, write limits.
	var h http.Handler = mux
	h = s.rateLimiter.Middleware(clientIP.Extract, func(w http.ResponseWriter, r *http.Request) {
		slog.WarnContext(r.Context(), "Rate limit exceeded", "client_ip", clientIP.Extract(r), "method", r.Method, "path", r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
	})(h)
	h = applog.RequestIDMiddleware(trace.RequestIDFrom)(h)
	h = applog.Middleware(opts.Logger)(h)
	h = s.traceMiddleware.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
