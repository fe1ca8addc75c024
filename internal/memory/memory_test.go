package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"saldo/internal/core"
	"saldo/internal/ports"
)

func tx(date string, cents int64, flow core.Flow, cat string) core.Transaction {
	d, _ := core.ParseDate(date)
	t := core.Transaction{Date: d, Amount: core.Money{Cents: cents}, Flow: flow}
	if cat != "" {
		t.Category = &core.Category{ID: cat}
	}
	return t
}

func TestMemoryStoreCreateAndList(t *testing.T) {
	ctx := context.Background()
	s := New(defaultCategories)

	first, err := s.CreateTransaction(ctx, tx("2024-03-01", 100, core.FlowExpense, "groceries"))
	if err != nil || first == "" {
		t.Fatalf("unexpected create: id=%q err=%v", first, err)
	}
	second, _ := s.CreateTransaction(ctx, tx("2024-03-01", 200, core.FlowExpense, ""))
	third, _ := s.CreateTransaction(ctx, tx("2024-02-10", 300, core.FlowIncome, "salary"))

	got, err := s.ListTransactions(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{second, first, third}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, got[i].ID, id)
		}
	}
	if got[0].Category.ID != core.OtherCategory.ID {
		t.Fatalf("expected sentinel category, got %+v", got[0].Category)
	}
	if got[1].Category.Name != "Groceries" {
		t.Fatalf("expected joined category name, got %q", got[1].Category.Name)
	}

	limited, _ := s.ListTransactions(ctx, 2)
	if len(limited) != 2 {
		t.Fatalf("expected 2 with limit, got %d", len(limited))
	}
}

func TestMemoryStoreRejectsUnknownCategory(t *testing.T) {
	s := New(defaultCategories)
	if _, err := s.CreateTransaction(context.Background(), tx("2024-03-01", 100, core.FlowExpense, "nope")); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	id, _ := s.CreateTransaction(ctx, tx("2024-03-01", 100, core.FlowExpense, ""))

	if err := s.DeleteTransaction(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, id); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreAggregates(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	for _, item := range []core.Transaction{
		tx("2024-03-01", 1000, core.FlowIncome, ""),
		tx("2024-01-05", 500, core.FlowIncome, ""),
		tx("2024-03-02", 400, core.FlowExpense, ""),
		tx("2023-12-31", 50, core.FlowExpense, ""),
	} {
		if _, err := s.CreateTransaction(ctx, item); err != nil {
			t.Fatal(err)
		}
	}

	aggs, err := s.ListMonthlyAggregates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(aggs) != 3 {
		t.Fatalf("expected 3 months, got %d", len(aggs))
	}
	if aggs[0].Month != (core.YearMonth{Year: 2023, Month: 12}) || aggs[2].Month != (core.YearMonth{Year: 2024, Month: 3}) {
		t.Fatalf("unexpected order: %+v", aggs)
	}
	if aggs[2].NetSavings.Cents != 600 {
		t.Fatalf("expected net 600, got %d", aggs[2].NetSavings.Cents)
	}
	if aggs[0].NetSavings.Cents != -50 {
		t.Fatalf("expected net -50, got %d", aggs[0].NetSavings.Cents)
	}
}

func TestMemoryStoreBudgets(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	_ = s.SetBudget(ctx, core.Budget{CategoryID: "b", Limit: core.Money{Cents: 2}})
	_ = s.SetBudget(ctx, core.Budget{CategoryID: "a", Limit: core.Money{Cents: 1}})
	if err := s.SetBudget(ctx, core.Budget{CategoryID: "a", Limit: core.Money{Cents: -1}}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	got, _ := s.ListBudgets(ctx)
	if len(got) != 2 || got[0].CategoryID != "a" || got[1].CategoryID != "b" {
		t.Fatalf("unexpected budgets: %+v", got)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	content := "# comment\npets;Pets;#123456;paw\nbad-line\ngifts;Gifts\npets;Duplicate\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cats, _ := NewFromFiles(dir).ListCategories(context.Background())
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %+v", cats)
	}
	if cats[0].Name != "Pets" || cats[0].Icon != "paw" || cats[1].Color != core.OtherCategory.Color {
		t.Fatalf("unexpected categories: %+v", cats)
	}

	fallback, _ := NewFromFiles(t.TempDir()).ListCategories(context.Background())
	if len(fallback) != len(defaultCategories) {
		t.Fatalf("expected defaults, got %d", len(fallback))
	}
}

func TestMemoryStoreGoals(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	id, err := s.CreateGoal(ctx, core.Goal{Name: "Bike", Target: core.Money{Cents: 80000}, StartDate: core.NewDate(2024, 3, 1)})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if _, err := s.CreateGoal(ctx, core.Goal{Name: "Bad", StartDate: core.NewDate(2024, 3, 1)}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("zero target: got %v", err)
	}

	g, err := s.AddToGoal(ctx, id, core.Money{Cents: 2500})
	if err != nil || g.Saved.Cents != 2500 {
		t.Fatalf("AddToGoal = %+v, %v", g, err)
	}
	if _, err := s.AddToGoal(ctx, id, core.Money{Cents: -2501}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("overdraw: got %v", err)
	}
	if _, err := s.AddToGoal(ctx, "nope", core.Money{Cents: 1}); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("missing goal: got %v", err)
	}

	goals, _ := s.ListGoals(ctx)
	if len(goals) != 1 || goals[0].Saved.Cents != 2500 {
		t.Fatalf("ListGoals = %+v", goals)
	}

	if err := s.DeleteGoal(ctx, id); err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}
	if err := s.DeleteGoal(ctx, id); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}
