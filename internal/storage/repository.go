package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"saldo/internal/core"
	"saldo/internal/ports"

	_ "modernc.org/sqlite"
)

// ErrNotFound aliases the shared backend sentinel so callers can use either.
var ErrNotFound = ports.ErrNotFound

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := migrateUp(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping backs the readiness endpoint.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateTransaction implements ports.TransactionWriter. An empty ID gets a new UUID.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	return r.createTransaction(ctx, r.queries, tx)
}

func (r *SQLiteRepository) createTransaction(ctx context.Context, q *Queries, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}

	err := q.CreateTransaction(ctx, CreateTransactionParams{
		ID:          tx.ID,
		Date:        tx.Date.String(),
		AmountCents: tx.Amount.Cents,
		Flow:        tx.Flow.String(),
		CategoryID:  categoryID(tx.Category),
		Description: tx.Description,
	})
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"date", tx.Date.String(),
		"amount_cents", tx.Amount.Cents,
		"flow", tx.Flow)

	return tx.ID, nil
}

// ImportTransactions inserts all rows in a single database transaction.
func (r *SQLiteRepository) ImportTransactions(ctx context.Context, txs []core.Transaction) ([]string, error) {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer dbtx.Rollback()

	q := r.queries.WithTx(dbtx)
	ids := make([]string, 0, len(txs))
	for i, tx := range txs {
		id, err := r.createTransaction(ctx, q, tx)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		ids = append(ids, id)
	}

	if err := dbtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return ids, nil
}

// DeleteTransaction implements ports.TransactionWriter.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %s: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	tx, err := row.toCore()
	if err != nil {
		return core.Transaction{}, err
	}
	return core.WithDefaultCategory([]core.Transaction{tx})[0], nil
}

// ListTransactions implements ports.TransactionReader.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	n := int64(limit)
	if limit <= 0 {
		n = -1
	}
	rows, err := r.queries.ListTransactions(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	txs := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := row.toCore()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return core.WithDefaultCategory(txs), nil
}

// ListMonthlyAggregates implements ports.AggregateReader.
func (r *SQLiteRepository) ListMonthlyAggregates(ctx context.Context) ([]core.MonthlyAggregate, error) {
	rows, err := r.queries.ListMonthlyTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list monthly totals: %w", err)
	}

	aggs := make([]core.MonthlyAggregate, 0, len(rows))
	for _, row := range rows {
		ym, err := core.ParseYearMonth(row.Month)
		if err != nil {
			return nil, err
		}
		aggs = append(aggs, core.NewMonthlyAggregate(ym,
			core.Money{Cents: row.IncomeCents},
			core.Money{Cents: row.ExpensesCents}))
	}
	return aggs, nil
}

// ListCategories implements ports.CategoryReader.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	cats := make([]core.Category, len(rows))
	for i, row := range rows {
		cats[i] = core.Category{ID: row.ID, Name: row.Name, Color: row.Color, Icon: row.Icon}
	}
	return cats, nil
}

func (r *SQLiteRepository) UpsertCategory(ctx context.Context, c core.Category) error {
	if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("upsert category: id and name are required")
	}
	if c.Color == "" {
		c.Color = core.OtherCategory.Color
	}
	if err := r.queries.UpsertCategory(ctx, CategoryRow{ID: c.ID, Name: c.Name, Color: c.Color, Icon: c.Icon}); err != nil {
		return fmt.Errorf("upsert category %s: %w", c.ID, err)
	}
	return nil
}

// ListBudgets implements ports.BudgetReader.
func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	budgets := make([]core.Budget, len(rows))
	for i, row := range rows {
		budgets[i] = core.Budget{CategoryID: row.CategoryID, Limit: core.Money{Cents: row.LimitCents}}
	}
	return budgets, nil
}

func (r *SQLiteRepository) SetBudget(ctx context.Context, b core.Budget) error {
	if b.Limit.Cents < 0 {
		return core.ErrInvalidAmount
	}
	if err := r.queries.UpsertBudget(ctx, BudgetRow{CategoryID: b.CategoryID, LimitCents: b.Limit.Cents}); err != nil {
		return fmt.Errorf("set budget %s: %w", b.CategoryID, err)
	}
	slog.InfoContext(ctx, "Budget updated", "category_id", b.CategoryID, "limit_cents", b.Limit.Cents)
	return nil
}

// ListGoals implements ports.GoalReader, oldest first.
func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.queries.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	goals := make([]core.Goal, 0, len(rows))
	for _, row := range rows {
		g, err := row.toCore()
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, nil
}

// CreateGoal implements ports.GoalWriter. An empty ID gets a new UUID.
func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	row := GoalRow{
		ID:          g.ID,
		Name:        g.Name,
		TargetCents: g.Target.Cents,
		SavedCents:  g.Saved.Cents,
		StartDate:   g.StartDate.String(),
	}
	if g.Deadline != nil {
		row.Deadline = sql.NullString{String: g.Deadline.String(), Valid: true}
	}
	if err := r.queries.CreateGoal(ctx, row); err != nil {
		return "", fmt.Errorf("create goal: %w", err)
	}
	slog.InfoContext(ctx, "Goal saved to SQLite", "id", g.ID, "target_cents", g.Target.Cents)
	return g.ID, nil
}

// AddToGoal implements ports.GoalWriter.
func (r *SQLiteRepository) AddToGoal(ctx context.Context, id string, amount core.Money) (core.Goal, error) {
	row, err := r.queries.AddToGoal(ctx, id, amount.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.queries.GetGoal(ctx, id); errors.Is(getErr, sql.ErrNoRows) {
			return core.Goal{}, fmt.Errorf("goal %s: %w", id, ErrNotFound)
		}
		return core.Goal{}, fmt.Errorf("goal %s: withdrawal exceeds savings: %w", id, core.ErrInvalidAmount)
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("add to goal %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Goal contribution saved", "id", id, "amount_cents", amount.Cents, "saved_cents", row.SavedCents)
	return row.toCore()
}

// DeleteGoal implements ports.GoalWriter.
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id string) error {
	n, err := r.queries.DeleteGoal(ctx, id)
	if err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete goal %s: %w", id, ErrNotFound)
	}
	return nil
}

func (row GoalRow) toCore() (core.Goal, error) {
	start, err := core.ParseDate(row.StartDate)
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal %s: %w", row.ID, err)
	}
	g := core.Goal{
		ID:        row.ID,
		Name:      row.Name,
		Target:    core.Money{Cents: row.TargetCents},
		Saved:     core.Money{Cents: row.SavedCents},
		StartDate: start,
	}
	if row.Deadline.Valid {
		d, err := core.ParseDate(row.Deadline.String)
		if err != nil {
			return core.Goal{}, fmt.Errorf("goal %s: %w", row.ID, err)
		}
		g.Deadline = &d
	}
	return g, nil
}

func (row TransactionRow) toCore() (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", row.ID, err)
	}
	tx := core.Transaction{
		ID:          row.ID,
		Date:        date,
		Amount:      core.Money{Cents: row.AmountCents},
		Flow:        core.Flow(row.Flow),
		Description: row.Description,
	}
	if row.CategoryID.Valid {
		tx.Category = &core.Category{
			ID:    row.CategoryID.String,
			Name:  row.CategoryName.String,
			Color: row.CategoryColor.String,
			Icon:  row.CategoryIcon.String,
		}
	}
	return tx, nil
}

// The sentinel is never persisted; "other" rows are stored uncategorised.
func categoryID(c *core.Category) sql.NullString {
	if c == nil || c.ID == "" || c.ID == core.OtherCategory.ID {
		return sql.NullString{}
	}
	return sql.NullString{String: c.ID, Valid: true}
}
