package core

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidGoal is returned for goals without a name or a positive target.
var ErrInvalidGoal = errors.New("invalid goal")

// Goal is a savings target. Saved grows through contributions and may
// exceed Target. Deadline is optional.
type Goal struct {
	ID        string
	Name      string
	Target    Money
	Saved     Money
	StartDate Date
	Deadline  *Date
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" || len(g.Name) > 100 {
		return ErrInvalidGoal
	}
	if g.Target.Cents <= 0 || g.Saved.Cents < 0 {
		return ErrInvalidAmount
	}
	if g.StartDate.IsZero() {
		return ErrZeroDate
	}
	if g.Deadline != nil && g.Deadline.Before(g.StartDate.Time) {
		return ErrInvalidGoal
	}
	return nil
}

// NewGoal starts a goal today with nothing saved.
func NewGoal(name string, target Money, deadline *Date, today time.Time) Goal {
	return Goal{
		Name:      strings.TrimSpace(name),
		Target:    target,
		StartDate: DateOf(today),
		Deadline:  deadline,
	}
}
