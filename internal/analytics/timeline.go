package analytics

import (
	"slices"
	"time"

	"saldo/internal/core"
)

// DefaultMaxPoints is the display budget used when BuildTimeline gets maxPoints <= 0.
const DefaultMaxPoints = 30

// TimelinePoint is the running balance at the end of one day.
type TimelinePoint struct {
	Date    time.Time
	Label   string
	Balance core.Money
}

// BuildTimeline returns one cumulative balance point per day of the month,
// from day 1 up to today (inclusive) or the end of the month, whichever comes
// first. Days without transactions carry the previous balance forward; days
// before the first transaction are 0.
//
// When the series is longer than maxPoints it keeps every Nth point with
// N = ceil(len/maxPoints) and always appends the final point, so the result
// may hold maxPoints+1 points.
func BuildTimeline(txs []core.Transaction, year, month int, today time.Time, maxPoints int) []TimelinePoint {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	w := MonthBounds(year, month)

	inMonth := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if w.Contains(tx.Date) {
			inMonth = append(inMonth, tx)
		}
	}
	if len(inMonth) == 0 {
		return []TimelinePoint{}
	}

	// Stable so same-day transactions keep their input order.
	slices.SortStableFunc(inMonth, func(a, b core.Transaction) int {
		return core.DateOf(a.Date.Time).Compare(core.DateOf(b.Date.Time).Time)
	})

	balanceByDay := make(map[int]int64, len(inMonth))
	var running int64
	for _, tx := range inMonth {
		running += tx.Signed()
		balanceByDay[tx.Date.Day()] = running
	}

	todayDay := core.DateOf(today).Time
	if todayDay.Before(w.Start) {
		return []TimelinePoint{}
	}
	lastDay := w.Days()
	if !todayDay.After(w.End) {
		lastDay = todayDay.Day()
	}

	points := make([]TimelinePoint, 0, lastDay)
	var balance int64
	for day := 1; day <= lastDay; day++ {
		if v, ok := balanceByDay[day]; ok {
			balance = v
		}
		date := w.Start.AddDate(0, 0, day-1)
		points = append(points, TimelinePoint{
			Date:    date,
			Label:   date.Format("02/01"),
			Balance: core.Money{Cents: balance},
		})
	}

	return downsample(points, maxPoints)
}

func downsample(points []TimelinePoint, maxPoints int) []TimelinePoint {
	if len(points) <= maxPoints {
		return points
	}
	stride := (len(points) + maxPoints - 1) / maxPoints
	out := make([]TimelinePoint, 0, maxPoints+1)
	for i := 0; i < len(points); i += stride {
		out = append(out, points[i])
	}
	if (len(points)-1)%stride != 0 {
		out = append(out, points[len(points)-1])
	}
	return out
}
