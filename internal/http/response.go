package http

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"saldo/internal/analytics"
	"saldo/internal/core"
	"saldo/internal/ports"
	"saldo/internal/services"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ports.ErrReadOnly):
		return http.StatusMethodNotAllowed
	case errors.Is(err, services.ErrFutureOffset),
		errors.Is(err, errBadParam),
		errors.Is(err, errUnknownCategory),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidFlow),
		errors.Is(err, core.ErrInvalidDay),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrZeroDate),
		errors.Is(err, core.ErrDescriptionSize),
		errors.Is(err, core.ErrInvalidGoal):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type moneyJSON struct {
	Cents     int64  `json:"cents"`
	Formatted string `json:"formatted"`
}

func money(m core.Money) moneyJSON {
	return moneyJSON{Cents: m.Cents, Formatted: m.String()}
}

type windowJSON struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type pointJSON struct {
	Date    string    `json:"date"`
	Label   string    `json:"label"`
	Balance moneyJSON `json:"balance"`
}

type segmentJSON struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Color    string     `json:"color"`
	Amount   moneyJSON  `json:"amount"`
	Previous *moneyJSON `json:"previous,omitempty"`
}

type insightJSON struct {
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Accent string `json:"accent"`
}

type comparisonJSON struct {
	Income          moneyJSON       `json:"income"`
	Expenses        moneyJSON       `json:"expenses"`
	NetSavings      moneyJSON       `json:"net_savings"`
	HasPrevious     bool            `json:"has_previous"`
	IncomeDeltaPct  decimal.Decimal `json:"income_delta_pct"`
	ExpenseDeltaPct decimal.Decimal `json:"expense_delta_pct"`
	SavingsDeltaPct decimal.Decimal `json:"savings_delta_pct"`
}

type budgetJSON struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	Limit      moneyJSON       `json:"limit"`
	Spent      moneyJSON       `json:"spent"`
	Remaining  moneyJSON       `json:"remaining"`
	Percent    decimal.Decimal `json:"percent"`
	Over       bool            `json:"over"`
}

type dashboardJSON struct {
	Window          windowJSON     `json:"window"`
	Timeline        []pointJSON    `json:"timeline"`
	IncomeSegments  []segmentJSON  `json:"income_segments"`
	ExpenseSegments []segmentJSON  `json:"expense_segments"`
	Comparison      comparisonJSON `json:"comparison"`
	Insights        []insightJSON  `json:"insights"`
	Budgets         []budgetJSON   `json:"budgets"`
	Goals           []goalJSON     `json:"goals"`
	GeneratedAt     string         `json:"generated_at"`
}

type goalJSON struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Target        moneyJSON       `json:"target"`
	Saved         moneyJSON       `json:"saved"`
	Remaining     moneyJSON       `json:"remaining"`
	Percent       decimal.Decimal `json:"percent"`
	Reached       bool            `json:"reached"`
	Deadline      string          `json:"deadline,omitempty"`
	DaysLeft      int             `json:"days_left"`
	MonthlyNeeded moneyJSON       `json:"monthly_needed"`
	OnTrack       bool            `json:"on_track"`
}

type transactionJSON struct {
	ID          string       `json:"id"`
	Date        string       `json:"date"`
	Amount      moneyJSON    `json:"amount"`
	Flow        string       `json:"flow"`
	Category    categoryJSON `json:"category"`
	Description string       `json:"description"`
}

type categoryJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon,omitempty"`
}

func toWindowJSON(w analytics.MonthWindow) windowJSON {
	return windowJSON{
		Year:  w.Year,
		Month: w.Month,
		Start: w.Start.Format("2006-01-02"),
		End:   w.End.Format("2006-01-02"),
	}
}

func toTimelineJSON(points []analytics.TimelinePoint) []pointJSON {
	out := make([]pointJSON, len(points))
	for i, p := range points {
		out[i] = pointJSON{Date: p.Date.Format("2006-01-02"), Label: p.Label, Balance: money(p.Balance)}
	}
	return out
}

func toSegmentsJSON(segs []analytics.Segment) []segmentJSON {
	out := make([]segmentJSON, len(segs))
	for i, s := range segs {
		out[i] = segmentJSON{ID: s.ID, Name: s.Name, Color: s.Color, Amount: money(s.Amount)}
		if s.PreviousAmount != nil {
			prev := money(*s.PreviousAmount)
			out[i].Previous = &prev
		}
	}
	return out
}

func toInsightsJSON(ins []analytics.Insight) []insightJSON {
	out := make([]insightJSON, len(ins))
	for i, in := range ins {
		out[i] = insightJSON{Kind: string(in.Kind), Title: in.Title, Body: in.Body, Accent: string(in.AccentHint)}
	}
	return out
}

func toComparisonJSON(m analytics.MonthOverMonth) comparisonJSON {
	return comparisonJSON{
		Income:          money(m.Current.Income),
		Expenses:        money(m.Current.Expenses),
		NetSavings:      money(m.Current.NetSavings),
		HasPrevious:     m.HasPrevious,
		IncomeDeltaPct:  m.IncomeDeltaPct,
		ExpenseDeltaPct: m.ExpenseDeltaPct,
		SavingsDeltaPct: m.SavingsDeltaPct,
	}
}

func toBudgetsJSON(bs []analytics.BudgetStatus) []budgetJSON {
	out := make([]budgetJSON, len(bs))
	for i, b := range bs {
		out[i] = budgetJSON{
			CategoryID: b.CategoryID,
			Name:       b.Name,
			Color:      b.Color,
			Limit:      money(b.Limit),
			Spent:      money(b.Spent),
			Remaining:  money(b.Remaining),
			Percent:    b.Percent,
			Over:       b.Over,
		}
	}
	return out
}

func toGoalsJSON(gs []analytics.GoalStatus) []goalJSON {
	out := make([]goalJSON, len(gs))
	for i, g := range gs {
		out[i] = goalJSON{
			ID:            g.ID,
			Name:          g.Name,
			Target:        money(g.Target),
			Saved:         money(g.Saved),
			Remaining:     money(g.Remaining),
			Percent:       g.Percent.Round(1),
			Reached:       g.Reached,
			DaysLeft:      g.DaysLeft,
			MonthlyNeeded: money(g.MonthlyNeeded),
			OnTrack:       g.OnTrack,
		}
		if g.Deadline != nil {
			out[i].Deadline = g.Deadline.Format("2006-01-02")
		}
	}
	return out
}

func toDashboardJSON(d services.Dashboard) dashboardJSON {
	return dashboardJSON{
		Window:          toWindowJSON(d.Window),
		Timeline:        toTimelineJSON(d.Timeline),
		IncomeSegments:  toSegmentsJSON(d.IncomeSegments),
		ExpenseSegments: toSegmentsJSON(d.ExpenseSegments),
		Comparison:      toComparisonJSON(d.Comparison),
		Insights:        toInsightsJSON(d.Insights),
		Budgets:         toBudgetsJSON(d.Budgets),
		Goals:           toGoalsJSON(d.Goals),
		GeneratedAt:     d.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name, Color: c.Color, Icon: c.Icon}
}

func toTransactionJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          tx.ID,
		Date:        tx.Date.String(),
		Amount:      money(tx.Amount),
		Flow:        tx.Flow.String(),
		Category:    toCategoryJSON(tx.CategoryOrOther()),
		Description: tx.Description,
	}
}
