package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
)

func goal(id string, target, saved int64, start core.Date, deadline *core.Date) core.Goal {
	return core.Goal{ID: id, Name: id, Target: money(target), Saved: money(saved), StartDate: start, Deadline: deadline}
}

func dateRef(y, m, d int) *core.Date {
	dt := core.NewDate(y, m, d)
	return &dt
}

func TestGoalProgress(t *testing.T) {
	start := core.NewDate(2024, 1, 1)
	today := day(2024, 3, 10)

	got := GoalProgress([]core.Goal{
		goal("reached", 100000, 120000, start, nil),
		goal("open", 50000, 0, start, nil),
		goal("yearly", 365000, 69000, start, dateRef(2024, 12, 31)),
		goal("behind", 365000, 68999, start, dateRef(2024, 12, 31)),
		goal("missed", 10000, 5000, start, dateRef(2024, 3, 1)),
	}, today)
	require.Len(t, got, 5)

	reached := got[0]
	assert.True(t, reached.Reached)
	assert.True(t, reached.OnTrack)
	assert.Equal(t, int64(0), reached.Remaining.Cents)
	assert.True(t, reached.Percent.Equal(decimal.NewFromInt(120)))

	open := got[1]
	assert.False(t, open.Reached)
	assert.True(t, open.OnTrack, "no deadline")
	assert.Equal(t, int64(50000), open.Remaining.Cents)
	assert.Equal(t, int64(0), open.MonthlyNeeded.Cents)
	assert.Nil(t, open.Deadline)

	// 69 of 365 days elapsed; 69000 of 365000 saved is exactly on pace.
	yearly := got[2]
	assert.True(t, yearly.OnTrack)
	assert.Equal(t, 296, yearly.DaysLeft)
	assert.Equal(t, int64(296000), yearly.Remaining.Cents)
	assert.Equal(t, int64(29600), yearly.MonthlyNeeded.Cents, "March to December")
	require.NotNil(t, yearly.Deadline)
	assert.Equal(t, day(2024, 12, 31), *yearly.Deadline)

	assert.False(t, got[3].OnTrack, "one cent behind pace")
	assert.Equal(t, int64(29601), got[3].MonthlyNeeded.Cents, "rounded up")

	missed := got[4]
	assert.False(t, missed.OnTrack)
	assert.Equal(t, 0, missed.DaysLeft)
	assert.Equal(t, int64(0), missed.MonthlyNeeded.Cents)
	assert.True(t, missed.Percent.Equal(decimal.NewFromInt(50)))
}

func TestGoalProgressDeadlineToday(t *testing.T) {
	g := goal("today", 1000, 400, core.NewDate(2024, 3, 1), dateRef(2024, 3, 10))

	got := GoalProgress([]core.Goal{g}, day(2024, 3, 10))

	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].DaysLeft)
	assert.Equal(t, int64(600), got[0].MonthlyNeeded.Cents)
	assert.False(t, got[0].OnTrack)
}

func TestGoalProgressEmpty(t *testing.T) {
	assert.Empty(t, GoalProgress(nil, day(2024, 3, 10)))
}
