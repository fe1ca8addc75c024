package analytics

import (
	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// BudgetStatus is how much of a category budget the month has used.
type BudgetStatus struct {
	CategoryID string
	Name       string
	Color      string
	Limit      core.Money
	Spent      core.Money
	Remaining  core.Money
	Percent    decimal.Decimal
	Over       bool
}

// BudgetProgress matches budgets against the month's expense segments. The
// result follows the order of budgets. Display metadata comes from the
// segment when the category has spending, else from categories.
func BudgetProgress(expenseSegments []Segment, budgets []core.Budget, categories []core.Category) []BudgetStatus {
	segByID := make(map[string]Segment, len(expenseSegments))
	for _, s := range expenseSegments {
		segByID[s.ID] = s
	}
	catByID := make(map[string]core.Category, len(categories))
	for _, c := range categories {
		catByID[c.ID] = c
	}

	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		st := BudgetStatus{CategoryID: b.CategoryID, Limit: b.Limit}
		if seg, ok := segByID[b.CategoryID]; ok {
			st.Name, st.Color, st.Spent = seg.Name, seg.Color, seg.Amount
		} else if c, ok := catByID[b.CategoryID]; ok {
			st.Name, st.Color = c.Name, c.Color
		} else if b.CategoryID == core.OtherCategory.ID {
			st.Name, st.Color = core.OtherCategory.Name, core.OtherCategory.Color
		}
		st.Remaining = b.Limit.Sub(st.Spent)
		if b.Limit.Cents > 0 {
			st.Percent = decimal.NewFromInt(st.Spent.Cents).Mul(hundred).Div(decimal.NewFromInt(b.Limit.Cents))
		}
		st.Over = st.Spent.Cents > b.Limit.Cents
		out = append(out, st)
	}
	return out
}
