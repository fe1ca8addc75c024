package worker

import (
	"context"
	"fmt"
	"log/slog"

	"saldo/internal/core"
	"saldo/internal/ports"
)

// CategorySource is the master copy of categories and budgets, usually the
// hosted spreadsheet.
type CategorySource interface {
	ports.CategoryReader
	ports.BudgetReader
}

// CategoryStore is the local store that receives the copy.
type CategoryStore interface {
	ports.CategoryReader
	UpsertCategory(ctx context.Context, c core.Category) error
	SetBudget(ctx context.Context, b core.Budget) error
}

// SyncResult counts what a sync run wrote.
type SyncResult struct {
	Categories int
	Budgets    int
	Skipped    int
}

// CategorySync copies categories and budgets from a CategorySource into a
// CategoryStore. Records are upserted; nothing is deleted locally.
type CategorySync struct {
	source CategorySource
	store  CategoryStore
}

func NewCategorySync(source CategorySource, store CategoryStore) *CategorySync {
	return &CategorySync{source: source, store: store}
}

// SyncIfEmpty runs Sync only when the store has no categories yet. The
// boolean reports whether a sync happened.
func (w *CategorySync) SyncIfEmpty(ctx context.Context) (SyncResult, bool, error) {
	existing, err := w.store.ListCategories(ctx)
	if err != nil {
		return SyncResult{}, false, fmt.Errorf("check local categories: %w", err)
	}
	if len(existing) > 0 {
		slog.InfoContext(ctx, "Local categories present, skipping sync", "count", len(existing))
		return SyncResult{}, false, nil
	}
	res, err := w.Sync(ctx)
	return res, err == nil, err
}

// Sync upserts every source category, then every budget whose category is
// known locally. The OtherCategory sentinel is never stored.
func (w *CategorySync) Sync(ctx context.Context) (SyncResult, error) {
	var res SyncResult

	cats, err := w.source.ListCategories(ctx)
	if err != nil {
		return res, fmt.Errorf("load source categories: %w", err)
	}
	known := make(map[string]bool, len(cats))
	for _, c := range cats {
		if c.ID == "" || c.ID == core.OtherCategory.ID {
			res.Skipped++
			continue
		}
		if err := w.store.UpsertCategory(ctx, c); err != nil {
			slog.WarnContext(ctx, "Skipping category", "category_id", c.ID, "error", err)
			res.Skipped++
			continue
		}
		known[c.ID] = true
		res.Categories++
	}

	local, err := w.store.ListCategories(ctx)
	if err != nil {
		return res, fmt.Errorf("list local categories: %w", err)
	}
	for _, c := range local {
		known[c.ID] = true
	}

	budgets, err := w.source.ListBudgets(ctx)
	if err != nil {
		return res, fmt.Errorf("load source budgets: %w", err)
	}
	for _, b := range budgets {
		if !known[b.CategoryID] {
			slog.WarnContext(ctx, "Skipping budget for unknown category", "category_id", b.CategoryID)
			res.Skipped++
			continue
		}
		if err := w.store.SetBudget(ctx, b); err != nil {
			return res, fmt.Errorf("store budget %s: %w", b.CategoryID, err)
		}
		res.Budgets++
	}

	slog.InfoContext(ctx, "Categories synced",
		"categories", res.Categories,
		"budgets", res.Budgets,
		"skipped", res.Skipped)
	return res, nil
}
