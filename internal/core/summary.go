package core

import (
	"fmt"
	"slices"
	"time"
)

// YearMonth identifies a calendar month. Month is 1-12.
type YearMonth struct {
	Year  int
	Month int
}

// MonthlyAggregate holds the totals the backend computes for one month.
type MonthlyAggregate struct {
	Month      YearMonth
	Income     Money
	Expenses   Money
	NetSavings Money
}

// Budget caps spending for one category in any month.
type Budget struct {
	CategoryID string
	Limit      Money
}

func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: int(t.Month())}
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return YearMonthOf(t), nil
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// Before reports whether ym is an earlier month than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// NewMonthlyAggregate fills NetSavings from income and expenses.
func NewMonthlyAggregate(month YearMonth, income, expenses Money) MonthlyAggregate {
	return MonthlyAggregate{
		Month:      month,
		Income:     income,
		Expenses:   expenses,
		NetSavings: income.Sub(expenses),
	}
}

// Compare returns -1, 0 or +1 ordering ym against other chronologically.
func (ym YearMonth) Compare(other YearMonth) int {
	switch {
	case ym.Before(other):
		return -1
	case other.Before(ym):
		return 1
	default:
		return 0
	}
}

// Next returns the following calendar month.
func (ym YearMonth) Next() YearMonth {
	if ym.Month == 12 {
		return YearMonth{Year: ym.Year + 1, Month: 1}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// AggregateByMonth totals transactions per calendar month, oldest first.
// Backends without server-side grouping use it to build the aggregate feed.
func AggregateByMonth(txs []Transaction) []MonthlyAggregate {
	type totals struct{ income, expenses Money }
	byMonth := map[YearMonth]*totals{}
	var order []YearMonth
	for _, tx := range txs {
		ym := YearMonthOf(tx.Date.Time)
		t, ok := byMonth[ym]
		if !ok {
			t = &totals{}
			byMonth[ym] = t
			order = append(order, ym)
		}
		if tx.Flow == FlowIncome {
			t.income = t.income.Add(tx.Amount)
		} else {
			t.expenses = t.expenses.Add(tx.Amount)
		}
	}

	slices.SortFunc(order, YearMonth.Compare)
	aggs := make([]MonthlyAggregate, len(order))
	for i, ym := range order {
		t := byMonth[ym]
		aggs[i] = NewMonthlyAggregate(ym, t.income, t.expenses)
	}
	return aggs
}
