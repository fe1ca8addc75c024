package analytics

import (
	"time"

	"saldo/internal/core"
)

func day(year, month, d int) time.Time {
	return time.Date(year, time.Month(month), d, 0, 0, 0, 0, time.UTC)
}

func tx(id string, year, month, d int, cents int64, flow core.Flow, cat *core.Category) core.Transaction {
	return core.Transaction{
		ID:       id,
		Date:     core.NewDate(year, month, d),
		Amount:   core.Money{Cents: cents},
		Flow:     flow,
		Category: cat,
	}
}

func balances(points []TimelinePoint) map[int]int64 {
	out := make(map[int]int64, len(points))
	for _, p := range points {
		out[p.Date.Day()] = p.Balance.Cents
	}
	return out
}
