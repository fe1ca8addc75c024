package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// GoalStatus is a savings goal's progress as of one day.
type GoalStatus struct {
	ID        string
	Name      string
	Target    core.Money
	Saved     core.Money
	Remaining core.Money // never negative
	Percent   decimal.Decimal
	Reached   bool
	Deadline  *time.Time
	DaysLeft  int
	// MonthlyNeeded spreads Remaining over the calendar months left up to
	// and including the deadline month. Zero without a deadline.
	MonthlyNeeded core.Money
	OnTrack       bool
}

// GoalProgress evaluates goals in input order. A goal is on track when it is
// reached, has no deadline, or has saved at least the share of its target
// matching the share of time elapsed between StartDate and Deadline. A goal
// past its deadline and not reached is never on track.
func GoalProgress(goals []core.Goal, today time.Time) []GoalStatus {
	day := core.DateOf(today).Time
	out := make([]GoalStatus, 0, len(goals))
	for _, g := range goals {
		st := GoalStatus{
			ID:      g.ID,
			Name:    g.Name,
			Target:  g.Target,
			Saved:   g.Saved,
			Reached: g.Saved.Cents >= g.Target.Cents,
		}
		if !st.Reached {
			st.Remaining = g.Target.Sub(g.Saved)
		}
		if g.Target.Cents > 0 {
			st.Percent = decimal.NewFromInt(g.Saved.Cents).Mul(hundred).Div(decimal.NewFromInt(g.Target.Cents))
		}

		switch {
		case st.Reached:
			st.OnTrack = true
		case g.Deadline == nil:
			st.OnTrack = true
		default:
			st.OnTrack = onTrack(g, day)
		}

		if g.Deadline != nil {
			deadline := g.Deadline.Time
			st.Deadline = &deadline
			if !day.After(deadline) {
				st.DaysLeft = daysBetween(day, deadline)
				if !st.Reached {
					months := monthsInclusive(day, deadline)
					st.MonthlyNeeded = core.Money{Cents: (st.Remaining.Cents + int64(months) - 1) / int64(months)}
				}
			}
		}
		out = append(out, st)
	}
	return out
}

func onTrack(g core.Goal, day time.Time) bool {
	deadline := g.Deadline.Time
	if day.After(deadline) {
		return false
	}
	total := int64(daysBetween(g.StartDate.Time, deadline))
	if total <= 0 {
		return false
	}
	elapsed := int64(daysBetween(g.StartDate.Time, day))
	if elapsed < 0 {
		elapsed = 0
	}
	return g.Saved.Cents*total >= g.Target.Cents*elapsed
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func monthsInclusive(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month()) + 1
}
