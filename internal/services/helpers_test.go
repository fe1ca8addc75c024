package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/memory"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

var testCategories = []core.Category{
	{ID: "salary", Name: "Salary", Color: "#43A047"},
	{ID: "housing", Name: "Housing", Color: "#1E88E5"},
	{ID: "groceries", Name: "Groceries", Color: "#FB8C00"},
}

func newTx(y, m, d int, cents int64, flow core.Flow, cat, desc string) core.Transaction {
	tx := core.Transaction{
		Date:        core.NewDate(y, m, d),
		Amount:      core.Money{Cents: cents},
		Flow:        flow,
		Description: desc,
	}
	if cat != "" {
		tx.Category = &core.Category{ID: cat}
	}
	return tx
}

// seededStore holds February and March 2024.
func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New(testCategories)
	for _, tx := range []core.Transaction{
		newTx(2024, 2, 2, 200000, core.FlowIncome, "salary", "Salary"),
		newTx(2024, 2, 10, 60000, core.FlowExpense, "housing", "Rent"),
		newTx(2024, 2, 15, 5000, core.FlowExpense, "groceries", "Market"),
		newTx(2024, 3, 1, 200000, core.FlowIncome, "salary", "Salary"),
		newTx(2024, 3, 3, 90000, core.FlowExpense, "housing", "Rent"),
		newTx(2024, 3, 5, 10000, core.FlowExpense, "groceries", "Market"),
	} {
		_, err := s.CreateTransaction(context.Background(), tx)
		require.NoError(t, err)
	}
	return s
}

func memoryStore(t *testing.T) *memory.Store {
	t.Helper()
	return memory.New(testCategories)
}

// countingStore counts snapshot reads and can be told to fail or block.
type countingStore struct {
	*memory.Store
	txCalls  atomic.Int32
	aggCalls atomic.Int32
	failAggs error
	gate     chan struct{}
}

func (c *countingStore) ListTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	c.txCalls.Add(1)
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return c.Store.ListTransactions(ctx, limit)
}

func (c *countingStore) ListMonthlyAggregates(ctx context.Context) ([]core.MonthlyAggregate, error) {
	c.aggCalls.Add(1)
	if c.failAggs != nil {
		return nil, c.failAggs
	}
	return c.Store.ListMonthlyAggregates(ctx)
}

func newDashboard(store *countingStore) *DashboardService {
	return NewDashboardService(DashboardSources{
		Transactions: store,
		Aggregates:   store,
		Categories:   store,
		Budgets:      store,
	}, DashboardConfig{Now: func() time.Time { return testNow }})
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.ChangeEvent
	err    error
}

func (p *recordingPublisher) PublishChange(_ context.Context, ev amqp.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type countingInvalidator struct{ n atomic.Int32 }

func (c *countingInvalidator) Invalidate(context.Context) { c.n.Add(1) }

var errBackend = errors.New("backend down")
