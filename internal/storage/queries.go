package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type TransactionRow struct {
	ID            string
	Date          string
	AmountCents   int64
	Flow          string
	Description   string
	CategoryID    sql.NullString
	CategoryName  sql.NullString
	CategoryColor sql.NullString
	CategoryIcon  sql.NullString
}

type CreateTransactionParams struct {
	ID          string
	Date        string
	AmountCents int64
	Flow        string
	CategoryID  sql.NullString
	Description string
}

const createTransaction = `INSERT INTO transactions (id, date, amount_cents, flow, category_id, description)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID,
		arg.Date,
		arg.AmountCents,
		arg.Flow,
		arg.CategoryID,
		arg.Description,
	)
	return err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const selectTransaction = `SELECT t.id, t.date, t.amount_cents, t.flow, t.description,
       c.id, c.name, c.color, c.icon
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id`

func scanTransaction(sc interface{ Scan(...interface{}) error }) (TransactionRow, error) {
	var i TransactionRow
	err := sc.Scan(
		&i.ID,
		&i.Date,
		&i.AmountCents,
		&i.Flow,
		&i.Description,
		&i.CategoryID,
		&i.CategoryName,
		&i.CategoryColor,
		&i.CategoryIcon,
	)
	return i, err
}

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, selectTransaction+` WHERE t.id = ?`, id)
	return scanTransaction(row)
}

// SQLite treats LIMIT -1 as unbounded.
const listTransactions = selectTransaction + `
ORDER BY t.date DESC, t.created_at DESC, t.rowid DESC
LIMIT ?`

func (q *Queries) ListTransactions(ctx context.Context, limit int64) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type MonthlyTotalsRow struct {
	Month         string
	IncomeCents   int64
	ExpensesCents int64
}

const listMonthlyTotals = `SELECT substr(date, 1, 7) AS month,
       COALESCE(SUM(CASE WHEN flow = 'income' THEN amount_cents END), 0) AS income_cents,
       COALESCE(SUM(CASE WHEN flow = 'expense' THEN amount_cents END), 0) AS expenses_cents
FROM transactions
GROUP BY month
ORDER BY month ASC`

func (q *Queries) ListMonthlyTotals(ctx context.Context) ([]MonthlyTotalsRow, error) {
	rows, err := q.db.QueryContext(ctx, listMonthlyTotals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthlyTotalsRow
	for rows.Next() {
		var i MonthlyTotalsRow
		if err := rows.Scan(&i.Month, &i.IncomeCents, &i.ExpensesCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type CategoryRow struct {
	ID    string
	Name  string
	Color string
	Icon  string
}

const listCategories = `SELECT id, name, color, icon FROM categories ORDER BY name ASC`

func (q *Queries) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRow
	for rows.Next() {
		var i CategoryRow
		if err := rows.Scan(&i.ID, &i.Name, &i.Color, &i.Icon); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertCategory = `INSERT INTO categories (id, name, color, icon) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, color = excluded.color, icon = excluded.icon`

func (q *Queries) UpsertCategory(ctx context.Context, arg CategoryRow) error {
	_, err := q.db.ExecContext(ctx, upsertCategory, arg.ID, arg.Name, arg.Color, arg.Icon)
	return err
}

type BudgetRow struct {
	CategoryID string
	LimitCents int64
}

const listBudgets = `SELECT category_id, limit_cents FROM budgets ORDER BY category_id ASC`

func (q *Queries) ListBudgets(ctx context.Context) ([]BudgetRow, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetRow
	for rows.Next() {
		var i BudgetRow
		if err := rows.Scan(&i.CategoryID, &i.LimitCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertBudget = `INSERT INTO budgets (category_id, limit_cents) VALUES (?, ?)
ON CONFLICT(category_id) DO UPDATE SET limit_cents = excluded.limit_cents`

func (q *Queries) UpsertBudget(ctx context.Context, arg BudgetRow) error {
	_, err := q.db.ExecContext(ctx, upsertBudget, arg.CategoryID, arg.LimitCents)
	return err
}

type GoalRow struct {
	ID          string
	Name        string
	TargetCents int64
	SavedCents  int64
	StartDate   string
	Deadline    sql.NullString
}

const listGoals = `SELECT id, name, target_cents, saved_cents, start_date, deadline
FROM goals ORDER BY created_at ASC, rowid ASC`

func (q *Queries) ListGoals(ctx context.Context) ([]GoalRow, error) {
	rows, err := q.db.QueryContext(ctx, listGoals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GoalRow
	for rows.Next() {
		i, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createGoal = `INSERT INTO goals (id, name, target_cents, saved_cents, start_date, deadline)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateGoal(ctx context.Context, arg GoalRow) error {
	_, err := q.db.ExecContext(ctx, createGoal,
		arg.ID,
		arg.Name,
		arg.TargetCents,
		arg.SavedCents,
		arg.StartDate,
		arg.Deadline,
	)
	return err
}

const goalColumns = `id, name, target_cents, saved_cents, start_date, deadline`

func scanGoal(sc interface{ Scan(...interface{}) error }) (GoalRow, error) {
	var i GoalRow
	err := sc.Scan(&i.ID, &i.Name, &i.TargetCents, &i.SavedCents, &i.StartDate, &i.Deadline)
	return i, err
}

func (q *Queries) GetGoal(ctx context.Context, id string) (GoalRow, error) {
	return scanGoal(q.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
}

// Matches no row when the goal is missing or the result would be negative.
const addToGoal = `UPDATE goals SET saved_cents = saved_cents + ?1
WHERE id = ?2 AND saved_cents + ?1 >= 0
RETURNING ` + goalColumns

func (q *Queries) AddToGoal(ctx context.Context, id string, cents int64) (GoalRow, error) {
	return scanGoal(q.db.QueryRowContext(ctx, addToGoal, cents, id))
}

const deleteGoal = `DELETE FROM goals WHERE id = ?`

func (q *Queries) DeleteGoal(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteGoal, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
