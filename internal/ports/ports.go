package ports

import (
	"context"
	"errors"

	"saldo/internal/core"
)

// ErrNotFound is returned by backends when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrReadOnly is returned by backends that cannot persist writes.
var ErrReadOnly = errors.New("backend is read-only")

// Ports for outbound adapters.
type (
	// TransactionReader returns the most recent transactions, newest first.
	// A limit <= 0 returns everything. Missing categories are already
	// replaced by core.OtherCategory.
	TransactionReader interface {
		ListTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	}

	// AggregateReader returns per-month totals ordered oldest to newest.
	AggregateReader interface {
		ListMonthlyAggregates(ctx context.Context) ([]core.MonthlyAggregate, error)
	}

	TransactionWriter interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) (id string, err error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	CategoryReader interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	BudgetReader interface {
		ListBudgets(ctx context.Context) ([]core.Budget, error)
	}
)

type (
	GoalReader interface {
		ListGoals(ctx context.Context) ([]core.Goal, error)
	}

	// GoalWriter stores goals and contributions. AddToGoal returns the
	// updated goal; a negative amount withdraws and fails with
	// core.ErrInvalidAmount when it would leave Saved below zero.
	GoalWriter interface {
		CreateGoal(ctx context.Context, g core.Goal) (id string, err error)
		AddToGoal(ctx context.Context, id string, amount core.Money) (core.Goal, error)
		DeleteGoal(ctx context.Context, id string) error
	}
)
