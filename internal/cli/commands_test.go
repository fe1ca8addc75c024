package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/memory"
	"saldo/internal/worker"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func sqliteEnv(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "saldo.db"))
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tx.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sampleCSV = `date,amount,flow,category,description
2024-02-01,2000,income,salary,Feb pay
2024-02-10,300,expense,groceries,Feb food
2024-03-01,2000,income,salary,Mar pay
2024-03-04,450,expense,groceries,Mar food
2024-03-05,80,expense,Cinema,Movies
`

func TestImportAndReport(t *testing.T) {
	sqliteEnv(t)
	path := writeCSV(t, sampleCSV)

	out, err := runCLI(t, "import", "--dry-run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Parsed 5 transactions (dry run")
	assert.Contains(t, out, `unknown category "Cinema"`)

	out, err = runCLI(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 5 transactions")

	out, err = runCLI(t, "budget", "set", "groceries", "400")
	require.NoError(t, err)
	assert.Contains(t, out, "Budget for groceries set to €400,00")

	out, err = runCLI(t, "report", "--as-of", "2024-03-10")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-03")
	assert.Contains(t, out, "Balance (10 points)")
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "prev €300,00")
	assert.Contains(t, out, "OVER")
	assert.Contains(t, out, "Insights")

	out, err = runCLI(t, "report", "--as-of", "2024-03-10", "--offset=-1", "--points", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-02")
}

func TestImportRejectsMemoryBackend(t *testing.T) {
	sqliteEnv(t)
	path := writeCSV(t, sampleCSV)

	_, err := runCLI(t, "--backend", "memory", "import", path)
	assert.ErrorContains(t, err, "persistent backend")
}

func TestReportRejectsFutureOffset(t *testing.T) {
	sqliteEnv(t)
	_, err := runCLI(t, "report", "--offset", "2")
	assert.ErrorContains(t, err, "zero or negative")
}

func TestImportBadFile(t *testing.T) {
	sqliteEnv(t)

	_, err := runCLI(t, "import", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	path := writeCSV(t, "date,amount\n2024-03-01,lots\n")
	_, err = runCLI(t, "import", path)
	assert.ErrorContains(t, err, "line 2")
}

type sheetStub struct{}

func (sheetStub) ListCategories(context.Context) ([]core.Category, error) {
	return []core.Category{{ID: "travel", Name: "Travel"}}, nil
}

func (sheetStub) ListBudgets(context.Context) ([]core.Budget, error) {
	return []core.Budget{{CategoryID: "travel", Limit: core.Money{Cents: 5000}}}, nil
}

func TestRunCategorySync(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer

	seeded := memory.New([]core.Category{{ID: "groceries", Name: "Groceries"}})
	require.NoError(t, runCategorySync(ctx, &out, worker.NewCategorySync(sheetStub{}, seeded), true))
	assert.Contains(t, out.String(), "nothing to do")

	out.Reset()
	require.NoError(t, runCategorySync(ctx, &out, worker.NewCategorySync(sheetStub{}, seeded), false))
	assert.Equal(t, "Synced 1 categories and 1 budgets (0 skipped)\n", out.String())
}

func TestCategoriesSyncRequiresSpreadsheet(t *testing.T) {
	sqliteEnv(t)
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	_, err := runCLI(t, "categories", "sync")
	assert.ErrorContains(t, err, "GOOGLE_SPREADSHEET_ID")
}

func TestGoalAddAndReport(t *testing.T) {
	sqliteEnv(t)

	out, err := runCLI(t, "goal", "add", "Holiday", "1200", "--deadline", "2099-12-31")
	require.NoError(t, err)
	assert.Contains(t, out, "by 2099-12-31")

	out, err = runCLI(t, "report")
	require.NoError(t, err)
	assert.Contains(t, out, "Goals")
	assert.Contains(t, out, "Holiday")
	assert.Contains(t, out, "ON TRACK")

	_, err = runCLI(t, "goal", "add", "Car", "100", "--deadline", "tomorrow")
	assert.ErrorContains(t, err, `deadline "tomorrow"`)

	_, err = runCLI(t, "goal", "add", "Car", "0")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}
