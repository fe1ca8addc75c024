package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"saldo/internal/analytics"
	"saldo/internal/cache"
	"saldo/internal/core"
	"saldo/internal/ports"
)

// ErrFutureOffset is returned for month offsets after the current month.
var ErrFutureOffset = errors.New("month offset must be zero or negative")

type DashboardConfig struct {
	// FetchLimit caps how many recent transactions are read per snapshot (<= 0: all).
	FetchLimit int
	MaxPoints  int
	CacheSize  int
	CacheTTL   time.Duration
	Now        func() time.Time
}

func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		FetchLimit: 1000,
		MaxPoints:  analytics.DefaultMaxPoints,
		CacheSize:  24,
		CacheTTL:   5 * time.Minute,
		Now:        time.Now,
	}
}

// Dashboard is everything the month view renders.
type Dashboard struct {
	Window          analytics.MonthWindow
	Timeline        []analytics.TimelinePoint
	IncomeSegments  []analytics.Segment
	ExpenseSegments []analytics.Segment
	Comparison      analytics.MonthOverMonth
	Insights        []analytics.Insight
	Budgets         []analytics.BudgetStatus
	Goals           []analytics.GoalStatus
	GeneratedAt     time.Time
}

type dashboardKey struct {
	offset int
	day    string
	points int
}

// DashboardService computes dashboards from a full snapshot of the backend.
// Results are cached per (offset, day) until Invalidate is called.
type DashboardService struct {
	transactions ports.TransactionReader
	aggregates   ports.AggregateReader
	categories   ports.CategoryReader
	budgets      ports.BudgetReader
	goals        ports.GoalReader
	cfg          DashboardConfig

	cache *cache.LRUCache[dashboardKey, Dashboard]
	group singleflight.Group
}

type DashboardSources struct {
	Transactions ports.TransactionReader
	Aggregates   ports.AggregateReader
	Categories   ports.CategoryReader // optional
	Budgets      ports.BudgetReader   // optional
	Goals        ports.GoalReader     // optional
}

func NewDashboardService(src DashboardSources, cfg DashboardConfig) *DashboardService {
	def := DefaultDashboardConfig()
	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = def.MaxPoints
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	return &DashboardService{
		transactions: src.Transactions,
		aggregates:   src.Aggregates,
		categories:   src.Categories,
		budgets:      src.Budgets,
		goals:        src.Goals,
		cfg:          cfg,
		cache:        cache.NewLRUCache[dashboardKey, Dashboard](cfg.CacheSize, cfg.CacheTTL),
	}
}

// Cache exposes the result cache so it can be registered for expiry sweeps.
func (s *DashboardService) Cache() *cache.LRUCache[dashboardKey, Dashboard] {
	return s.cache
}

// Get returns the dashboard for the month offset months from the current one.
func (s *DashboardService) Get(ctx context.Context, offset int) (Dashboard, error) {
	return s.GetWithPoints(ctx, offset, s.cfg.MaxPoints)
}

// GetWithPoints is Get with a caller-chosen timeline resolution.
func (s *DashboardService) GetWithPoints(ctx context.Context, offset, maxPoints int) (Dashboard, error) {
	if offset > 0 {
		return Dashboard{}, fmt.Errorf("%w: %d", ErrFutureOffset, offset)
	}
	if maxPoints <= 0 {
		maxPoints = s.cfg.MaxPoints
	}
	now := s.cfg.Now()
	key := dashboardKey{offset: offset, day: now.Format("2006-01-02"), points: maxPoints}
	if d, ok := s.cache.Get(key); ok {
		return d, nil
	}

	// Callers arriving after an Invalidate never join a flight that read
	// the snapshot before it.
	epoch := s.cache.Epoch()
	sfKey := strconv.FormatUint(epoch, 10) + "/" + key.day + "/" + strconv.Itoa(offset) + "/" + strconv.Itoa(maxPoints)
	v, err, shared := s.group.Do(sfKey, func() (interface{}, error) {
		d, err := s.compute(ctx, offset, maxPoints, now)
		if err != nil {
			return Dashboard{}, err
		}
		if !s.cache.SetIfEpoch(key, d, epoch) {
			slog.DebugContext(ctx, "Dashboard computed across an invalidation, not cached", "offset", offset)
		}
		return d, nil
	})
	if err != nil {
		return Dashboard{}, err
	}
	if shared {
		slog.DebugContext(ctx, "Dashboard computation shared", "offset", offset)
	}
	return v.(Dashboard), nil
}

// Invalidate drops every cached dashboard. In-flight computations started
// before the call are returned to their callers but not cached.
func (s *DashboardService) Invalidate(ctx context.Context) {
	n := s.cache.Purge()
	slog.InfoContext(ctx, "Dashboard cache invalidated", "entries", n)
}

type snapshot struct {
	transactions []core.Transaction
	aggregates   []core.MonthlyAggregate
	categories   []core.Category
	budgets      []core.Budget
	goals        []core.Goal
}

func (s *DashboardService) fetch(ctx context.Context) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		txs, err := s.transactions.ListTransactions(gctx, s.cfg.FetchLimit)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.transactions = core.WithDefaultCategory(txs)
		return nil
	})
	g.Go(func() error {
		aggs, err := s.aggregates.ListMonthlyAggregates(gctx)
		if err != nil {
			return fmt.Errorf("list monthly aggregates: %w", err)
		}
		snap.aggregates = aggs
		return nil
	})
	if s.categories != nil {
		g.Go(func() error {
			cats, err := s.categories.ListCategories(gctx)
			if err != nil {
				return fmt.Errorf("list categories: %w", err)
			}
			snap.categories = cats
			return nil
		})
	}
	if s.budgets != nil {
		g.Go(func() error {
			b, err := s.budgets.ListBudgets(gctx)
			if err != nil {
				return fmt.Errorf("list budgets: %w", err)
			}
			snap.budgets = b
			return nil
		})
	}
	if s.goals != nil {
		g.Go(func() error {
			goals, err := s.goals.ListGoals(gctx)
			if err != nil {
				return fmt.Errorf("list goals: %w", err)
			}
			snap.goals = goals
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (s *DashboardService) compute(ctx context.Context, offset, maxPoints int, now time.Time) (Dashboard, error) {
	start := time.Now()
	snap, err := s.fetch(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	window := analytics.ResolveMonth(offset, now)
	prev := window.Previous()
	txs := snap.transactions

	d := Dashboard{
		Window:      window,
		Timeline:    analytics.BuildTimeline(txs, window.Year, window.Month, now, maxPoints),
		GeneratedAt: now,
	}
	d.IncomeSegments = analytics.AttachPrevious(
		analytics.AggregateSegments(txs, window.Year, window.Month, core.FlowIncome),
		analytics.AggregateSegments(txs, prev.Year, prev.Month, core.FlowIncome))
	d.ExpenseSegments = analytics.AttachPrevious(
		analytics.AggregateSegments(txs, window.Year, window.Month, core.FlowExpense),
		analytics.AggregateSegments(txs, prev.Year, prev.Month, core.FlowExpense))

	aligned := alignAggregates(snap.aggregates, prev.YearMonth(), core.YearMonthOf(now))
	d.Comparison, _ = analytics.CompareMonths(aligned, offset)

	in := analytics.InsightInput{
		Income:          d.Comparison.Current.Income,
		Expenses:        d.Comparison.Current.Expenses,
		IncomeDeltaPct:  d.Comparison.IncomeDeltaPct,
		ExpenseDeltaPct: d.Comparison.ExpenseDeltaPct,
		Biggest:         analytics.BiggestTransaction(txs, window.Year, window.Month, core.FlowExpense),
	}
	if len(d.ExpenseSegments) > 0 {
		in.TopExpenseCategory = d.ExpenseSegments[0].Name
		in.TopExpenseAmount = d.ExpenseSegments[0].Amount
	}
	d.Insights = analytics.BuildInsights(in)
	d.Budgets = analytics.BudgetProgress(d.ExpenseSegments, snap.budgets, snap.categories)
	d.Goals = analytics.GoalProgress(snap.goals, now)

	slog.InfoContext(ctx, "Dashboard computed",
		"month", window.YearMonth().String(),
		"offset", offset,
		"transactions", len(txs),
		"timeline_points", len(d.Timeline),
		"insights", len(d.Insights),
		"duration_ms", time.Since(start).Milliseconds())
	return d, nil
}
