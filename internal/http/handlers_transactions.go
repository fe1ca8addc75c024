package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"saldo/internal/core"
	"saldo/internal/importer"
	applog "saldo/internal/log"
)

var errUnknownCategory = errors.New("unknown category")

const (
	defaultListLimit = 50
	maxListLimit     = 1000
	maxImportBytes   = 5 << 20
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r.URL.Query(), "limit", defaultListLimit)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	txs, err := s.store.ListTransactions(r.Context(), limit)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "List transactions failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	out := make([]transactionJSON, len(txs))
	for i, tx := range core.WithDefaultCategory(txs) {
		out[i] = toTransactionJSON(tx)
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	tx, err := s.transactionFromRequest(r, p)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	id, err := s.transactions.Create(ctx, tx)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			applog.NewStructuredLogger(logger).LogError(ctx, "Transaction create failed", err, applog.OpCreate,
				applog.NewFields().WithTransaction("", tx.Amount.Cents, tx.Flow.String(), tx.CategoryOrOther().ID))
			writeError(w, status, "failed to save transaction")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	atomic.AddInt64(&s.appMetrics.created, 1)
	applog.NewStructuredLogger(logger).LogTransactionCreated(ctx, id, tx.Amount.Cents, tx.Flow.String(), tx.CategoryOrOther().ID)

	tx.ID = id
	writeJSON(w, http.StatusCreated, toTransactionJSON(tx))
}

// transactionFromRequest builds a transaction from body fields date,
// amount, flow, category and description. date defaults to today.
func (s *Server) transactionFromRequest(r *http.Request, p *RequestBodyParser) (core.Transaction, error) {
	date := core.DateOf(time.Now())
	if v := p.Get("date"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("%w: %v", errBadParam, err)
		}
		date = d
	}

	cents, err := core.ParseDecimalToCents(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, err
	}

	flow, err := core.ParseFlow(p.Get("flow"))
	if err != nil {
		return core.Transaction{}, err
	}

	cat, err := s.lookupCategory(r, p.Get("category"))
	if err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		Date:        date,
		Amount:      core.Money{Cents: cents},
		Flow:        flow,
		Category:    cat,
		Description: p.Get("description"),
	}
	return tx, tx.Validate()
}

// lookupCategory resolves id to known category metadata. Empty and the
// fallback id yield nil.
func (s *Server) lookupCategory(r *http.Request, id string) (*core.Category, error) {
	if id == "" || id == core.OtherCategory.ID {
		return nil, nil
	}
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	for _, c := range cats {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", errUnknownCategory, id)
}

// handleImportTransactions accepts a CSV body.
func (s *Server) handleImportTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentImporter)

	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "List categories failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to load categories")
		return
	}

	im := importer.New(cats)
	txs, err := im.Parse(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ids, err := s.transactions.Import(ctx, txs)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "Import failed", applog.FieldError, err, "rows", len(txs))
			writeError(w, status, "failed to import transactions")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	atomic.AddInt64(&s.appMetrics.imported, int64(len(ids)))

	unknown := make([]string, 0, len(im.Unknown()))
	for label := range im.Unknown() {
		unknown = append(unknown, label)
	}
	logger.InfoContext(ctx, "Transactions imported", "count", len(ids), "unknown_categories", strings.Join(unknown, ","))

	writeJSON(w, http.StatusCreated, map[string]any{
		"imported":           len(ids),
		"ids":                ids,
		"unknown_categories": im.Unknown(),
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusUnprocessableEntity, "missing transaction id")
		return
	}

	if err := s.transactions.Delete(ctx, id); err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Transaction delete failed", err, applog.OpDelete,
				applog.NewFields().WithTransaction(id, 0, "", ""))
			writeError(w, status, "failed to delete transaction")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	atomic.AddInt64(&s.appMetrics.deleted, 1)
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogTransactionDeleted(ctx, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "List categories failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	out := make([]categoryJSON, 0, len(cats)+1)
	for _, c := range cats {
		out = append(out, toCategoryJSON(c))
	}
	out = append(out, toCategoryJSON(core.OtherCategory))
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}
