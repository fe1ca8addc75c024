package services

import "saldo/internal/core"

// alignAggregates returns one aggregate per calendar month from the earlier of
// from and the first data month through `through`, inclusive. Missing months
// are zero and months after `through` are dropped, so the last element is
// always `through` and index arithmetic matches calendar offsets.
func alignAggregates(aggs []core.MonthlyAggregate, from, through core.YearMonth) []core.MonthlyAggregate {
	byMonth := make(map[core.YearMonth]core.MonthlyAggregate, len(aggs))
	start := from
	for _, a := range aggs {
		if through.Before(a.Month) {
			continue
		}
		byMonth[a.Month] = a
		if a.Month.Before(start) {
			start = a.Month
		}
	}
	if through.Before(start) {
		start = through
	}

	var out []core.MonthlyAggregate
	for ym := start; !through.Before(ym); ym = ym.Next() {
		if a, ok := byMonth[ym]; ok {
			out = append(out, a)
			continue
		}
		out = append(out, core.NewMonthlyAggregate(ym, core.Money{}, core.Money{}))
	}
	return out
}
