package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/memory"
)

type fakeSource struct {
	cats    []core.Category
	budgets []core.Budget
	err     error
}

func (f fakeSource) ListCategories(context.Context) ([]core.Category, error) {
	return f.cats, f.err
}

func (f fakeSource) ListBudgets(context.Context) ([]core.Budget, error) {
	return f.budgets, nil
}

func TestCategorySync(t *testing.T) {
	ctx := context.Background()
	store := memory.New([]core.Category{{ID: "groceries", Name: "Food"}})
	src := fakeSource{
		cats: []core.Category{
			{ID: "groceries", Name: "Groceries", Color: "#FB8C00"},
			{ID: "travel", Name: "Travel"},
			core.OtherCategory,
			{ID: "", Name: "Blank"},
		},
		budgets: []core.Budget{
			{CategoryID: "groceries", Limit: core.Money{Cents: 40000}},
			{CategoryID: "ghost", Limit: core.Money{Cents: 100}},
		},
	}

	res, err := NewCategorySync(src, store).Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Categories: 2, Budgets: 1, Skipped: 3}, res)

	cats, err := store.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Groceries", cats[0].Name)
	assert.Equal(t, "travel", cats[1].ID)

	budgets, err := store.ListBudgets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Budget{{CategoryID: "groceries", Limit: core.Money{Cents: 40000}}}, budgets)
}

func TestCategorySyncIfEmpty(t *testing.T) {
	ctx := context.Background()
	src := fakeSource{cats: []core.Category{{ID: "travel", Name: "Travel"}}}

	seeded := memory.New([]core.Category{{ID: "groceries", Name: "Groceries"}})
	_, ran, err := NewCategorySync(src, seeded).SyncIfEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, ran)

	empty := memory.New(nil)
	res, ran, err := NewCategorySync(src, empty).SyncIfEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, res.Categories)
}

func TestCategorySyncSourceError(t *testing.T) {
	boom := errors.New("quota exceeded")
	_, err := NewCategorySync(fakeSource{err: boom}, memory.New(nil)).Sync(context.Background())
	assert.ErrorIs(t, err, boom)
}
