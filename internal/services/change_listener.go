package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"saldo/internal/amqp"
)

// ChangeConsumer blocks delivering change events until ctx ends.
type ChangeConsumer interface {
	ConsumeChanges(ctx context.Context, handler func(context.Context, amqp.ChangeEvent) error) error
}

// ChangeListener invalidates the dashboard whenever another instance (or
// this one) reports a transaction change.
type ChangeListener struct {
	consumer    ChangeConsumer
	invalidator Invalidator

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

func NewChangeListener(consumer ChangeConsumer, invalidator Invalidator) *ChangeListener {
	return &ChangeListener{consumer: consumer, invalidator: invalidator}
}

// Start begins consuming in the background. Returns an error if already running.
func (l *ChangeListener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return fmt.Errorf("change listener is already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.running = true
	l.cancel = cancel
	l.doneCh = make(chan struct{})

	go l.run(runCtx, l.doneCh)
	slog.InfoContext(ctx, "Change listener started")
	return nil
}

func (l *ChangeListener) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	err := l.consumer.ConsumeChanges(ctx, l.handle)
	if err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Change listener stopped unexpectedly", "error", err)
	}
	l.mu.Lock()
	l.running = false
	l.mu.Unlock()
}

func (l *ChangeListener) handle(ctx context.Context, ev amqp.ChangeEvent) error {
	slog.DebugContext(ctx, "Change event received",
		"transaction_id", ev.TransactionID,
		"action", ev.Action,
		"month", ev.Month)
	l.invalidator.Invalidate(ctx)
	return nil
}

// Stop cancels consumption and waits for it to finish or ctx to expire.
func (l *ChangeListener) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.cancel == nil {
		l.mu.Unlock()
		return nil
	}
	cancel, done := l.cancel, l.doneCh
	l.cancel = nil
	l.mu.Unlock()

	cancel()
	select {
	case <-done:
		slog.InfoContext(ctx, "Change listener stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Change listener stop timed out")
		return ctx.Err()
	}
}

func (l *ChangeListener) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
