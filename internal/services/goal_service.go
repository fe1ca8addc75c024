package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"saldo/internal/core"
	"saldo/internal/ports"
)

// GoalService writes savings goals and drops cached dashboards, which
// embed goal progress. Goal changes are not sent on the change feed; other
// instances pick them up when their cache entries expire.
type GoalService struct {
	store       ports.GoalWriter
	invalidator Invalidator
	now         func() time.Time
}

// NewGoalService accepts a nil invalidator and a nil clock.
func NewGoalService(store ports.GoalWriter, invalidator Invalidator, now func() time.Time) *GoalService {
	if now == nil {
		now = time.Now
	}
	return &GoalService{store: store, invalidator: invalidator, now: now}
}

// Create starts a goal today with nothing saved.
func (s *GoalService) Create(ctx context.Context, name string, target core.Money, deadline *core.Date) (core.Goal, error) {
	g := core.NewGoal(name, target, deadline, s.now())
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	id, err := s.store.CreateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	g.ID = id
	s.changed(ctx)
	slog.InfoContext(ctx, "Goal created", "id", id, "target_cents", target.Cents)
	return g, nil
}

// Contribute adds amount to a goal; negative amounts withdraw.
func (s *GoalService) Contribute(ctx context.Context, id string, amount core.Money) (core.Goal, error) {
	if amount.Cents == 0 {
		return core.Goal{}, core.ErrInvalidAmount
	}
	g, err := s.store.AddToGoal(ctx, id, amount)
	if err != nil {
		return core.Goal{}, err
	}
	s.changed(ctx)
	return g, nil
}

func (s *GoalService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteGoal(ctx, id); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

func (s *GoalService) changed(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
}
