package services

import (
	"context"
	"fmt"
	"log/slog"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/ports"
)

// ChangePublisher announces transaction changes to other instances.
type ChangePublisher interface {
	PublishChange(ctx context.Context, ev amqp.ChangeEvent) error
}

// Invalidator is told when local data changed.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// TransactionService writes to the backend, then refreshes the local
// dashboard and publishes a change event. Publish failures are logged only;
// the write already succeeded.
type TransactionService struct {
	store       ports.TransactionWriter
	publisher   ChangePublisher
	invalidator Invalidator
}

// NewTransactionService accepts nil publisher and invalidator.
func NewTransactionService(store ports.TransactionWriter, publisher ChangePublisher, invalidator Invalidator) *TransactionService {
	return &TransactionService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
	}
}

func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	id, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}
	s.changed(ctx, amqp.NewChangeEvent(id, amqp.ActionCreated, core.YearMonthOf(tx.Date.Time).String()))
	return id, nil
}

// BulkWriter stores a batch atomically.
type BulkWriter interface {
	ImportTransactions(ctx context.Context, txs []core.Transaction) ([]string, error)
}

// Import stores txs. Stores implementing BulkWriter get the whole batch in
// one call, all or nothing; others are written one by one and stop at the
// first failure. One change event is published per created transaction.
func (s *TransactionService) Import(ctx context.Context, txs []core.Transaction) ([]string, error) {
	if bw, ok := s.store.(BulkWriter); ok {
		for i, tx := range txs {
			if err := tx.Validate(); err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		ids, err := bw.ImportTransactions(ctx, txs)
		if err != nil {
			return nil, fmt.Errorf("import transactions: %w", err)
		}
		if s.invalidator != nil {
			s.invalidator.Invalidate(ctx)
		}
		for i, id := range ids {
			s.publish(ctx, amqp.NewChangeEvent(id, amqp.ActionCreated, core.YearMonthOf(txs[i].Date.Time).String()))
		}
		return ids, nil
	}

	ids := make([]string, 0, len(txs))
	for i, tx := range txs {
		id, err := s.Create(ctx, tx)
		if err != nil {
			return ids, fmt.Errorf("row %d: %w", i+1, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, amqp.NewChangeEvent(id, amqp.ActionDeleted, ""))
	return nil
}

func (s *TransactionService) changed(ctx context.Context, ev amqp.ChangeEvent) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	s.publish(ctx, ev)
}

func (s *TransactionService) publish(ctx context.Context, ev amqp.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"transaction_id", ev.TransactionID,
			"action", ev.Action,
			"error", err)
	}
}
