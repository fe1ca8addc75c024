package analytics

import (
	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

var hundred = decimal.NewFromInt(100)

// MonthOverMonth compares the selected aggregate period with the one before it.
type MonthOverMonth struct {
	Current         core.MonthlyAggregate
	Previous        core.MonthlyAggregate
	HasPrevious     bool
	IncomeDeltaPct  decimal.Decimal
	ExpenseDeltaPct decimal.Decimal
	SavingsDeltaPct decimal.Decimal
}

// DeltaPercent returns the change from previous to current in percent of
// |previous|. It is zero when previous is zero.
func DeltaPercent(current, previous core.Money) decimal.Decimal {
	if previous.Cents == 0 {
		return decimal.Zero
	}
	base := decimal.NewFromInt(previous.Cents).Abs()
	return decimal.NewFromInt(current.Cents - previous.Cents).Mul(hundred).Div(base)
}

// CompareMonths picks the period selected by offset out of aggs (oldest to
// newest) and computes its deltas against the preceding period. ok is false
// when aggs is empty.
func CompareMonths(aggs []core.MonthlyAggregate, offset int) (mom MonthOverMonth, ok bool) {
	win := ResolveWindow(offset, len(aggs))
	if win.Current < 0 {
		return MonthOverMonth{}, false
	}
	mom.Current = aggs[win.Current]
	if !win.HasPrevious {
		return mom, true
	}
	mom.Previous = aggs[win.Previous]
	mom.HasPrevious = true
	mom.IncomeDeltaPct = DeltaPercent(mom.Current.Income, mom.Previous.Income)
	mom.ExpenseDeltaPct = DeltaPercent(mom.Current.Expenses, mom.Previous.Expenses)
	mom.SavingsDeltaPct = DeltaPercent(mom.Current.NetSavings, mom.Previous.NetSavings)
	return mom, true
}

// BiggestTransaction returns the largest transaction of the given flow in the
// month, or nil. The first one seen wins ties.
func BiggestTransaction(txs []core.Transaction, year, month int, flow core.Flow) *core.Transaction {
	w := MonthBounds(year, month)
	var biggest *core.Transaction
	for i := range txs {
		tx := txs[i]
		if tx.Flow != flow || !w.Contains(tx.Date) {
			continue
		}
		if biggest == nil || tx.Amount.Cents > biggest.Amount.Cents {
			biggest = &tx
		}
	}
	return biggest
}
