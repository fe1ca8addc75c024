package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// MaxInsights caps the number of insights BuildInsights returns.
const MaxInsights = 3

type (
	InsightKind string
	AccentHint  string
)

const (
	KindSavingsRateHigh    InsightKind = "savings-rate-high"
	KindSavingsRateOK      InsightKind = "savings-rate-ok"
	KindSavingsRateLow     InsightKind = "savings-rate-low"
	KindOverspendWarning   InsightKind = "overspend-warning"
	KindExpenseSpike       InsightKind = "expense-spike"
	KindExpenseDrop        InsightKind = "expense-drop"
	KindBiggestTransaction InsightKind = "biggest-transaction"
	KindIncomeGrowth       InsightKind = "income-growth"
)

const (
	AccentPositive AccentHint = "positive"
	AccentNeutral  AccentHint = "neutral"
	AccentWarning  AccentHint = "warning"
	AccentNegative AccentHint = "negative"
)

// Thresholds in percent.
var (
	savingsRateHigh = decimal.NewFromInt(20)
	savingsRateOK   = decimal.NewFromInt(15)
	expenseSpike    = decimal.NewFromInt(15)
	expenseDrop     = decimal.NewFromInt(-10)
	incomeGrowth    = decimal.NewFromInt(5)
)

type Insight struct {
	Kind       InsightKind
	Title      string
	Body       string
	AccentHint AccentHint
}

// InsightInput carries the figures of the selected period.
type InsightInput struct {
	Income             core.Money
	Expenses           core.Money
	IncomeDeltaPct     decimal.Decimal
	ExpenseDeltaPct    decimal.Decimal
	TopExpenseCategory string
	TopExpenseAmount   core.Money
	Biggest            *core.Transaction
}

// BuildInsights evaluates the rules in fixed priority order (savings rate,
// expense change, biggest transaction, income growth) and keeps the first
// MaxInsights that fire. Lower-priority insights are dropped even when they
// qualify.
func BuildInsights(in InsightInput) []Insight {
	out := make([]Insight, 0, MaxInsights+1)

	if ins, ok := savingsInsight(in.Income, in.Expenses); ok {
		out = append(out, ins)
	}
	if ins, ok := expenseChangeInsight(in); ok {
		out = append(out, ins)
	}
	if in.Biggest != nil {
		out = append(out, biggestInsight(*in.Biggest))
	}
	if in.IncomeDeltaPct.GreaterThan(incomeGrowth) {
		out = append(out, Insight{
			Kind:       KindIncomeGrowth,
			Title:      fmt.Sprintf("Income up %s%%", pct(in.IncomeDeltaPct)),
			Body:       fmt.Sprintf("Your income grew %s%% compared to last month.", pct(in.IncomeDeltaPct)),
			AccentHint: AccentPositive,
		})
	}

	if len(out) > MaxInsights {
		out = out[:MaxInsights]
	}
	return out
}

// SavingsRate returns (income-expenses)/income in percent. ok is false when
// income is not positive.
func SavingsRate(income, expenses core.Money) (rate decimal.Decimal, ok bool) {
	if income.Cents <= 0 {
		return decimal.Zero, false
	}
	net := decimal.NewFromInt(income.Cents - expenses.Cents)
	return net.Mul(hundred).Div(decimal.NewFromInt(income.Cents)), true
}

func savingsInsight(income, expenses core.Money) (Insight, bool) {
	rate, ok := SavingsRate(income, expenses)
	if !ok {
		if expenses.Cents > income.Cents {
			return overspendInsight(income, expenses), true
		}
		return Insight{}, false
	}

	switch {
	case rate.GreaterThanOrEqual(savingsRateHigh):
		return Insight{
			Kind:       KindSavingsRateHigh,
			Title:      "Excellent savings rate",
			Body:       fmt.Sprintf("You kept %s%% of your income this month.", pct(rate)),
			AccentHint: AccentPositive,
		}, true
	case rate.GreaterThanOrEqual(savingsRateOK):
		return Insight{
			Kind:       KindSavingsRateOK,
			Title:      "Good savings rate",
			Body:       fmt.Sprintf("You kept %s%% of your income. At 20%% you'd be in great shape.", pct(rate)),
			AccentHint: AccentPositive,
		}, true
	case rate.IsPositive():
		return Insight{
			Kind:       KindSavingsRateLow,
			Title:      "Room to save more",
			Body:       fmt.Sprintf("You kept %s%% of your income. Aim for at least 15%%.", pct(rate)),
			AccentHint: AccentNeutral,
		}, true
	default:
		return overspendInsight(income, expenses), true
	}
}

func overspendInsight(income, expenses core.Money) Insight {
	return Insight{
		Kind:       KindOverspendWarning,
		Title:      "Spending exceeds income",
		Body:       fmt.Sprintf("You spent %s more than you earned this month.", expenses.Sub(income)),
		AccentHint: AccentNegative,
	}
}

func expenseChangeInsight(in InsightInput) (Insight, bool) {
	switch {
	case in.ExpenseDeltaPct.GreaterThan(expenseSpike):
		body := fmt.Sprintf("Your expenses rose %s%% compared to last month.", pct(in.ExpenseDeltaPct))
		if in.TopExpenseCategory != "" {
			body += fmt.Sprintf(" Most of it went to %s (%s).", in.TopExpenseCategory, in.TopExpenseAmount)
		}
		return Insight{
			Kind:       KindExpenseSpike,
			Title:      fmt.Sprintf("Spending up %s%%", pct(in.ExpenseDeltaPct)),
			Body:       body,
			AccentHint: AccentWarning,
		}, true
	case in.ExpenseDeltaPct.LessThan(expenseDrop):
		drop := in.ExpenseDeltaPct.Abs()
		return Insight{
			Kind:       KindExpenseDrop,
			Title:      fmt.Sprintf("Spending down %s%%", pct(drop)),
			Body:       fmt.Sprintf("Your expenses fell %s%% compared to last month.", pct(drop)),
			AccentHint: AccentPositive,
		}, true
	}
	return Insight{}, false
}

func biggestInsight(tx core.Transaction) Insight {
	label := tx.Description
	if label == "" {
		label = tx.CategoryOrOther().Name
	}
	return Insight{
		Kind:       KindBiggestTransaction,
		Title:      "Largest transaction",
		Body:       fmt.Sprintf("%s: %s on %s.", label, tx.Amount, tx.Date.Format("02/01")),
		AccentHint: AccentNeutral,
	}
}

func pct(d decimal.Decimal) string {
	return d.Round(0).String()
}
