package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"saldo/internal/backend"
	"saldo/internal/cache"
	"saldo/internal/cli"
	"saldo/internal/config"
	"saldo/internal/gsheets"
	apphttp "saldo/internal/http"
	applog "saldo/internal/log"
	"saldo/internal/ports"
	"saldo/internal/services"
	"saldo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	res, err := cli.OpenBackend(context.Background(), logger.WithComponent(applog.ComponentBackend).Logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	seedCategories(logger.WithComponent(applog.ComponentSheets), cfg, res.Backend)

	goalReader, _ := res.Backend.(ports.GoalReader)
	dashboard := services.NewDashboardService(services.DashboardSources{
		Transactions: res.Backend,
		Aggregates:   res.Backend,
		Categories:   res.Backend,
		Budgets:      res.Backend,
		Goals:        goalReader,
	}, services.DashboardConfig{
		FetchLimit: cfg.TransactionFetchLimit,
		MaxPoints:  cfg.TimelineMaxPoints,
		CacheSize:  cfg.DashboardCacheSize,
		CacheTTL:   cfg.DashboardCacheTTL,
	})

	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	cacheManager.Register(dashboard.Cache())
	cacheManager.StartCleanup(cfg.DashboardCacheTTL)

	// A nil *amqp.Client must not reach the service as a non-nil interface.
	var (
		publisher services.ChangePublisher
		listener  *services.ChangeListener
	)
	if res.Changes != nil {
		publisher = res.Changes
		listener = services.NewChangeListener(res.Changes, dashboard)
	}
	transactions := services.NewTransactionService(res.Backend, publisher, dashboard)

	opts := apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		Cache:              dashboard.Cache(),
	}
	if gw, ok := res.Backend.(ports.GoalWriter); ok {
		opts.Goals = services.NewGoalService(gw, dashboard, nil)
	}
	srv := apphttp.NewServer(":"+cfg.Port, dashboard, transactions, res.Backend, opts)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if listener != nil {
			if err := listener.Stop(ctx); err != nil {
				logger.Error("Change listener shutdown error", "error", err)
			}
		}
		cacheManager.Stop()
		if err := res.Close(); err != nil {
			logger.Error("Backend close error", "error", err)
		}
	})

	if listener != nil {
		if err := listener.Start(ctx); err != nil {
			logger.Error("Failed to start change listener", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("Starting saldo server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"change_feed", res.Changes != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}

// seedCategories copies categories and budgets from Google Sheets into an
// empty local store at startup. Failures are logged; the server still starts.
func seedCategories(logger *applog.Logger, cfg *config.Config, store backend.Backend) {
	if cfg.DataBackend == string(backend.SheetsBackend) || cfg.GoogleSpreadsheetID == "" {
		return
	}
	local, ok := store.(worker.CategoryStore)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	src, err := gsheets.New(ctx, gsheets.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		TransactionsSheet:  cfg.GoogleSheetName,
		CategoriesSheet:    cfg.GoogleCategoriesSheetName,
		BudgetsSheet:       cfg.GoogleBudgetsSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Warn("Category seeding skipped", "error", err)
		return
	}
	if _, _, err := worker.NewCategorySync(src, local).SyncIfEmpty(ctx); err != nil {
		logger.Warn("Category seeding failed", "error", err)
	}
}
