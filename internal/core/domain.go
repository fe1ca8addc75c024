package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	FlowIncome  Flow = "income"
	FlowExpense Flow = "expense"
)

type (
	// Flow is the direction of a transaction. Amounts are always magnitudes.
	Flow string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Category is the display metadata joined onto a transaction.
	Category struct {
		ID    string
		Name  string
		Color string
		Icon  string
	}

	Transaction struct {
		ID          string
		Date        Date
		Amount      Money
		Flow        Flow
		Category    *Category // nil until ingestion substitutes OtherCategory
		Description string
	}
)

// OtherCategory is the fallback for transactions without a category.
var OtherCategory = Category{
	ID:    "other",
	Name:  "Other",
	Color: "#9E9E9E",
	Icon:  "more-horizontal",
}

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidFlow     = errors.New("invalid flow")
	ErrZeroDate        = errors.New("date cannot be zero")
	ErrDescriptionSize = errors.New("description too long (max 200 characters)")
)

// ParseFlow accepts "income" or "expense", case-insensitively.
func ParseFlow(s string) (Flow, error) {
	f := Flow(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFlow, s)
	}
	return f, nil
}

func (f Flow) Valid() bool {
	return f == FlowIncome || f == FlowExpense
}

// Sign returns +1 for income and -1 for expense.
func (f Flow) Sign() int64 {
	if f == FlowIncome {
		return 1
	}
	return -1
}

func (f Flow) String() string {
	return string(f)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping the calendar day as seen in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// CategoryOrOther returns the joined category, or the sentinel when none is set.
func (t Transaction) CategoryOrOther() Category {
	if t.Category == nil || t.Category.ID == "" {
		return OtherCategory
	}
	return *t.Category
}

// Signed returns the amount in cents with the flow applied as sign.
func (t Transaction) Signed() int64 {
	return t.Flow.Sign() * t.Amount.Cents
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !t.Flow.Valid() {
		return ErrInvalidFlow
	}
	if len(t.Description) > 200 {
		return ErrDescriptionSize
	}
	return nil
}

// WithDefaultCategory returns a copy of txs where every missing category is
// replaced by OtherCategory. Backends call it once when records are loaded.
func WithDefaultCategory(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	for i, tx := range txs {
		if tx.Category == nil || tx.Category.ID == "" {
			other := OtherCategory
			tx.Category = &other
		}
		out[i] = tx
	}
	return out
}
