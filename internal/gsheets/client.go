// Package gsheets stores transactions in a Google Spreadsheet. Three tabs are
// used: transactions (header-driven columns), categories and budgets.
package gsheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"saldo/internal/core"
	"saldo/internal/ports"
)

type Config struct {
	SpreadsheetID      string
	TransactionsSheet  string
	CategoriesSheet    string
	BudgetsSheet       string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	transactionsSheet string
	categoriesSheet   string
	budgetsSheet      string
}

var (
	_ ports.TransactionReader = (*Client)(nil)
	_ ports.TransactionWriter = (*Client)(nil)
	_ ports.AggregateReader   = (*Client)(nil)
	_ ports.CategoryReader    = (*Client)(nil)
	_ ports.BudgetReader      = (*Client)(nil)
)

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, cfg), nil
}

func newClient(svc *gsheet.Service, cfg Config) *Client {
	return &Client{
		svc:               svc,
		spreadsheetID:     cfg.SpreadsheetID,
		transactionsSheet: orDefault(cfg.TransactionsSheet, "Transactions"),
		categoriesSheet:   orDefault(cfg.CategoriesSheet, "Categories"),
		budgetsSheet:      orDefault(cfg.BudgetsSheet, "Budgets"),
	}
}

// newSheetsService authenticates with a service account, falling back to
// GOOGLE_APPLICATION_CREDENTIALS when neither inline JSON nor a file is set.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) read(ctx context.Context, sheet, cols string) ([][]interface{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!%s", sheet, cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) categoryIndex(ctx context.Context) (map[string]core.Category, error) {
	cats, err := c.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]core.Category, len(cats))
	for _, cat := range cats {
		idx[cat.ID] = cat
	}
	return idx, nil
}

func (c *Client) allTransactions(ctx context.Context) ([]core.Transaction, error) {
	cats, err := c.categoryIndex(ctx)
	if err != nil {
		return nil, err
	}
	values, err := c.read(ctx, c.transactionsSheet, "A:F")
	if err != nil {
		return nil, err
	}
	txs, skipped, err := parseTransactions(values, cats)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		slog.WarnContext(ctx, "Skipped unparseable transaction rows", "sheet", c.transactionsSheet, "count", skipped)
	}
	return txs, nil
}

// ListTransactions returns rows newest first. Sheet order breaks date ties,
// later rows first.
func (c *Client) ListTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	txs, err := c.allTransactions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		out = append(out, txs[i])
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return core.WithDefaultCategory(out), nil
}

// ListMonthlyAggregates groups every row client-side; Sheets has no server query.
func (c *Client) ListMonthlyAggregates(ctx context.Context) ([]core.MonthlyAggregate, error) {
	txs, err := c.allTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return core.AggregateByMonth(txs), nil
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	values, err := c.read(ctx, c.categoriesSheet, "A:D")
	if err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}
	return parseCategories(values), nil
}

func (c *Client) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	values, err := c.read(ctx, c.budgetsSheet, "A:B")
	if err != nil {
		return nil, fmt.Errorf("read budgets: %w", err)
	}
	return parseBudgets(values), nil
}

// CreateTransaction appends a row. The header is written first when the tab is empty.
func (c *Client) CreateTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}

	existing, err := c.read(ctx, c.transactionsSheet, "A:A")
	if err != nil {
		return "", err
	}
	rows := [][]interface{}{transactionRow(tx)}
	if len(existing) == 0 {
		header := make([]interface{}, len(transactionHeader))
		for i, h := range transactionHeader {
			header[i] = h
		}
		rows = append([][]interface{}{header}, rows...)
	}

	rng := fmt.Sprintf("%s!A:F", c.transactionsSheet)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.transactionsSheet, err)
	}

	slog.InfoContext(ctx, "Transaction appended to sheet",
		"id", tx.ID,
		"sheet", c.transactionsSheet,
		"amount_cents", tx.Amount.Cents)
	return tx.ID, nil
}

// DeleteTransaction removes the row whose Id column matches.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	values, err := c.read(ctx, c.transactionsSheet, "A:F")
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("delete transaction %s: %w", id, ports.ErrNotFound)
	}
	cols, err := headerColumns(toStrings(values[0]))
	if err != nil {
		return err
	}
	rowIdx := -1
	for i := 1; i < len(values); i++ {
		if safeGet(toStrings(values[i]), cols.id) == id {
			rowIdx = i
			break
		}
	}
	if rowIdx == -1 {
		return fmt.Errorf("delete transaction %s: %w", id, ports.ErrNotFound)
	}

	sheetID, err := c.sheetID(ctx, c.transactionsSheet)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIdx),
					EndIndex:   int64(rowIdx + 1),
					ForceSendFields: []string{"SheetId"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in %s: %w", rowIdx+1, c.transactionsSheet, err)
	}
	slog.InfoContext(ctx, "Transaction deleted from sheet", "id", id, "row", rowIdx+1)
	return nil
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", title)
}

func sortNewestFirst(txs []core.Transaction) {
	slices.SortStableFunc(txs, func(a, b core.Transaction) int {
		return b.Date.Compare(a.Date.Time)
	})
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
