package analytics

import (
	"time"

	"saldo/internal/core"
)

// MonthWindow is a calendar month with inclusive day bounds at 00:00 UTC.
type MonthWindow struct {
	Year  int
	Month int // 1-12
	Start time.Time
	End   time.Time
}

// PeriodWindow holds indices into an oldest-to-newest aggregate sequence.
type PeriodWindow struct {
	Current     int
	Previous    int
	HasPrevious bool
}

// ResolveMonth returns the month offset months away from the month containing
// ref. Callers must not pass positive offsets; that is not checked here.
func ResolveMonth(offset int, ref time.Time) MonthWindow {
	first := time.Date(ref.Year(), ref.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
	return MonthBounds(first.Year(), int(first.Month()))
}

// MonthBounds normalizes (year, month) and returns its first and last day.
func MonthBounds(year, month int) MonthWindow {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return MonthWindow{
		Year:  start.Year(),
		Month: int(start.Month()),
		Start: start,
		End:   start.AddDate(0, 1, -1),
	}
}

// Contains reports whether d falls on a day inside the window.
func (w MonthWindow) Contains(d core.Date) bool {
	day := core.DateOf(d.Time).Time
	return !day.Before(w.Start) && !day.After(w.End)
}

// Days returns the number of days in the month.
func (w MonthWindow) Days() int {
	return w.End.Day()
}

func (w MonthWindow) YearMonth() core.YearMonth {
	return core.YearMonth{Year: w.Year, Month: w.Month}
}

func (w MonthWindow) Previous() MonthWindow {
	return MonthBounds(w.Year, w.Month-1)
}

// ResolveWindow maps a month offset onto a sequence of totalPeriods aggregates
// ordered oldest to newest. The newest element is offset 0. Offsets that reach
// past either end clamp to the nearest valid index. With no periods Current is -1.
func ResolveWindow(offset, totalPeriods int) PeriodWindow {
	if totalPeriods <= 0 {
		return PeriodWindow{Current: -1, Previous: -1}
	}
	current := totalPeriods - 1 + offset
	if current < 0 {
		current = 0
	}
	if current > totalPeriods-1 {
		current = totalPeriods - 1
	}
	return PeriodWindow{
		Current:     current,
		Previous:    current - 1,
		HasPrevious: current > 0,
	}
}
