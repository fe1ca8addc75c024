package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"saldo/internal/core"
)

func TestResolveMonth(t *testing.T) {
	ref := time.Date(2026, 3, 15, 18, 45, 0, 0, time.UTC)
	tests := []struct {
		offset    int
		wantYear  int
		wantMonth int
		wantEnd   int
	}{
		{0, 2026, 3, 31},
		{-1, 2026, 2, 28},
		{-2, 2026, 1, 31},
		{-3, 2025, 12, 31},
		{-14, 2025, 1, 31},
		{-25, 2024, 2, 29},
		{1, 2026, 4, 30},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("offset_%d", tt.offset), func(t *testing.T) {
			w := ResolveMonth(tt.offset, ref)
			assert.Equal(t, tt.wantYear, w.Year)
			assert.Equal(t, tt.wantMonth, w.Month)
			assert.Equal(t, day(tt.wantYear, tt.wantMonth, 1), w.Start)
			assert.Equal(t, day(tt.wantYear, tt.wantMonth, tt.wantEnd), w.End)
			assert.Equal(t, tt.wantEnd, w.Days())
		})
	}
}

func TestResolveMonth_EndOfMonthReference(t *testing.T) {
	// Jan 31 minus one month must land in February, not March.
	w := ResolveMonth(-1, time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 2025, w.Year)
	assert.Equal(t, 12, w.Month)

	w = ResolveMonth(1, time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 2, w.Month)
}

func TestMonthWindow_Contains(t *testing.T) {
	w := MonthBounds(2026, 2)
	assert.True(t, w.Contains(dateOf(2026, 2, 1)))
	assert.True(t, w.Contains(dateOf(2026, 2, 28)))
	assert.False(t, w.Contains(dateOf(2026, 1, 31)))
	assert.False(t, w.Contains(dateOf(2026, 3, 1)))
	assert.Equal(t, MonthBounds(2026, 1), w.Previous())
	assert.Equal(t, MonthBounds(2025, 12), MonthBounds(2026, 0))
}

func TestResolveWindow(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		total  int
		want   PeriodWindow
	}{
		{"no periods", 0, 0, PeriodWindow{Current: -1, Previous: -1}},
		{"single period", 0, 1, PeriodWindow{Current: 0, Previous: -1}},
		{"latest", 0, 6, PeriodWindow{Current: 5, Previous: 4, HasPrevious: true}},
		{"two back", -2, 6, PeriodWindow{Current: 3, Previous: 2, HasPrevious: true}},
		{"before earliest clamps", -10, 6, PeriodWindow{Current: 0, Previous: -1}},
		{"future clamps to latest", 3, 6, PeriodWindow{Current: 5, Previous: 4, HasPrevious: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveWindow(tt.offset, tt.total))
		})
	}
}

func dateOf(year, month, d int) core.Date {
	return core.NewDate(year, month, d)
}
