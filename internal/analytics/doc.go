// Package analytics derives dashboard data from a snapshot of transactions
// and monthly aggregates: the month window, the cumulative balance timeline,
// category segments, month-over-month deltas and ranked insights.
//
// Every function here is pure and total. Inputs are trusted: the backend is
// responsible for supplying non-negative amounts and known flows, and nothing
// in this package validates or sanitizes records. Callers recompute from a
// full snapshot whenever the underlying data changes.
package analytics
