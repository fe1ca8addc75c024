package analytics

import (
	"cmp"
	"slices"

	"saldo/internal/core"
)

// Segment is the total of one category for a month and flow.
type Segment struct {
	ID             string
	Name           string
	Color          string
	Amount         core.Money
	PreviousAmount *core.Money
}

// AggregateSegments groups the month's transactions of the given flow by
// category. Name and color come from the first transaction seen for each
// category; later transactions never override them. Groups whose sum is not
// strictly positive are dropped. The result is sorted by amount descending,
// ties keeping first-encounter order.
func AggregateSegments(txs []core.Transaction, year, month int, flow core.Flow) []Segment {
	w := MonthBounds(year, month)

	index := make(map[string]int)
	groups := make([]Segment, 0)
	for _, tx := range txs {
		if tx.Flow != flow || !w.Contains(tx.Date) {
			continue
		}
		cat := tx.CategoryOrOther()
		i, ok := index[cat.ID]
		if !ok {
			i = len(groups)
			index[cat.ID] = i
			groups = append(groups, Segment{ID: cat.ID, Name: cat.Name, Color: cat.Color})
		}
		groups[i].Amount.Cents += tx.Amount.Cents
	}

	out := make([]Segment, 0, len(groups))
	for _, g := range groups {
		if g.Amount.IsPositive() {
			out = append(out, g)
		}
	}
	slices.SortStableFunc(out, func(a, b Segment) int {
		return cmp.Compare(b.Amount.Cents, a.Amount.Cents)
	})
	return out
}

// AttachPrevious returns a copy of current where each segment carries the
// amount of the same category in previous, when present there.
func AttachPrevious(current, previous []Segment) []Segment {
	prevByID := make(map[string]core.Money, len(previous))
	for _, p := range previous {
		prevByID[p.ID] = p.Amount
	}
	out := make([]Segment, len(current))
	for i, s := range current {
		if amt, ok := prevByID[s.ID]; ok {
			s.PreviousAmount = &amt
		}
		out[i] = s
	}
	return out
}

// Total sums the amounts of segs.
func Total(segs []Segment) core.Money {
	var total core.Money
	for _, s := range segs {
		total = total.Add(s.Amount)
	}
	return total
}
