package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"saldo/internal/backend"
	"saldo/internal/config"
	"saldo/internal/core"
	"saldo/internal/gsheets"
	"saldo/internal/importer"
	applog "saldo/internal/log"
	"saldo/internal/ports"
	"saldo/internal/services"
	"saldo/internal/worker"
)

// BudgetWriter is implemented by backends that can store budgets.
type BudgetWriter interface {
	SetBudget(ctx context.Context, b core.Budget) error
}

type app struct {
	cfg    *config.Config
	logger *applog.Logger
}

// NewRootCommand builds the saldoctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	var backendFlag string

	root := &cobra.Command{
		Use:           "saldoctl",
		Short:         "Import transactions and print monthly reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			LoadEnvFile()
			cfg := config.Load()
			if backendFlag != "" {
				cfg.DataBackend = backendFlag
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = SetupLogger(cfg, applog.ComponentCLI)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&backendFlag, "backend", "", "override DATA_BACKEND (memory, sqlite, sheets)")

	root.AddCommand(a.importCommand(), a.reportCommand(), a.budgetCommand(), a.categoriesCommand(), a.goalCommand())
	return root
}

func (a *app) open(ctx context.Context) (*backend.BackendResult, error) {
	return OpenBackend(ctx, a.logger.WithComponent(applog.ComponentBackend).Logger, a.cfg)
}

func (a *app) importCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import transactions from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.cfg.DataBackend == string(backend.MemoryBackend) && !dryRun {
				return errors.New("import needs a persistent backend; use --backend sqlite or sheets")
			}

			res, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer res.Close()

			cats, err := res.Backend.ListCategories(ctx)
			if err != nil {
				return fmt.Errorf("list categories: %w", err)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			im := importer.New(cats)
			txs, err := im.Parse(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			for label, n := range im.Unknown() {
				fmt.Fprintf(out, "warning: unknown category %q on %d row(s), imported as %s\n", label, n, core.OtherCategory.Name)
			}
			if dryRun {
				fmt.Fprintf(out, "Parsed %d transactions (dry run, nothing written)\n", len(txs))
				return nil
			}

			var publisher services.ChangePublisher
			if res.Changes != nil {
				publisher = res.Changes
			}
			ids, err := services.NewTransactionService(res.Backend, publisher, nil).Import(ctx, txs)
			if err != nil {
				return err
			}
			a.logger.InfoContext(ctx, "Transactions imported", "count", len(ids), "file", args[0])
			fmt.Fprintf(out, "Imported %d transactions\n", len(ids))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and validate without writing")
	return cmd
}

func (a *app) reportCommand() *cobra.Command {
	var (
		offset int
		points int
		asOf   string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			now := time.Now()
			if asOf != "" {
				d, err := core.ParseDate(asOf)
				if err != nil {
					return err
				}
				now = d.Time.Add(12 * time.Hour)
			}

			res, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer res.Close()

			goals, _ := res.Backend.(ports.GoalReader)
			dash := services.NewDashboardService(services.DashboardSources{
				Transactions: res.Backend,
				Aggregates:   res.Backend,
				Categories:   res.Backend,
				Budgets:      res.Backend,
				Goals:        goals,
			}, services.DashboardConfig{
				FetchLimit: a.cfg.TransactionFetchLimit,
				MaxPoints:  a.cfg.TimelineMaxPoints,
				Now:        func() time.Time { return now },
			})
			d, err := dash.GetWithPoints(ctx, offset, points)
			if err != nil {
				return err
			}
			return WriteReport(cmd.OutOrStdout(), d)
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "months back from the current one (0 or negative)")
	cmd.Flags().IntVar(&points, "points", 0, "maximum timeline points (default TIMELINE_MAX_POINTS)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "report as if today were YYYY-MM-DD")
	return cmd
}

func (a *app) budgetCommand() *cobra.Command {
	budget := &cobra.Command{
		Use:   "budget",
		Short: "Manage category budgets",
	}
	budget.AddCommand(&cobra.Command{
		Use:   "set <category-id> <amount>",
		Short: "Set the monthly spending limit for a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cents, err := core.ParseDecimalToCents(args[1])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[1], err)
			}

			res, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer res.Close()

			bw, ok := res.Backend.(BudgetWriter)
			if !ok {
				return fmt.Errorf("%s backend cannot store budgets", a.cfg.DataBackend)
			}
			if err := bw.SetBudget(ctx, core.Budget{CategoryID: args[0], Limit: core.Money{Cents: cents}}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Budget for %s set to %s\n", args[0], core.Money{Cents: cents})
			return nil
		},
	})
	return budget
}

func (a *app) goalCommand() *cobra.Command {
	goal := &cobra.Command{
		Use:   "goal",
		Short: "Manage savings goals",
	}
	var deadline string
	add := &cobra.Command{
		Use:   "add <name> <target>",
		Short: "Start a savings goal today",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cents, err := core.ParseDecimalToCents(args[1])
			if err != nil {
				return fmt.Errorf("target %q: %w", args[1], err)
			}
			var due *core.Date
			if deadline != "" {
				d, err := core.ParseDate(deadline)
				if err != nil {
					return fmt.Errorf("deadline %q: %w", deadline, err)
				}
				due = &d
			}

			res, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer res.Close()

			gw, ok := res.Backend.(ports.GoalWriter)
			if !ok {
				return fmt.Errorf("%s backend cannot store goals", a.cfg.DataBackend)
			}
			g, err := services.NewGoalService(gw, nil, nil).Create(ctx, args[0], core.Money{Cents: cents}, due)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Goal %s created: %s by %s\n", g.ID, g.Target, deadlineLabel(g.Deadline))
			return nil
		},
	}
	add.Flags().StringVar(&deadline, "deadline", "", "target date YYYY-MM-DD")
	goal.AddCommand(add)
	return goal
}

func deadlineLabel(d *core.Date) string {
	if d == nil {
		return "no deadline"
	}
	return d.String()
}

func (a *app) categoriesCommand() *cobra.Command {
	categories := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
	}
	var ifEmpty bool
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy categories and budgets from Google Sheets into the local backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.cfg.DataBackend == string(backend.SheetsBackend) {
				return errors.New("categories sync copies from Google Sheets; pick a local --backend")
			}
			if a.cfg.GoogleSpreadsheetID == "" {
				return errors.New("GOOGLE_SPREADSHEET_ID is required for categories sync")
			}
			src, err := gsheets.New(ctx, gsheets.Config{
				SpreadsheetID:      a.cfg.GoogleSpreadsheetID,
				TransactionsSheet:  a.cfg.GoogleSheetName,
				CategoriesSheet:    a.cfg.GoogleCategoriesSheetName,
				BudgetsSheet:       a.cfg.GoogleBudgetsSheetName,
				ServiceAccountJSON: a.cfg.GoogleServiceAccountJSON,
				ServiceAccountFile: a.cfg.GoogleServiceAccountFile,
			})
			if err != nil {
				return fmt.Errorf("open sheets: %w", err)
			}

			res, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer res.Close()

			store, ok := res.Backend.(worker.CategoryStore)
			if !ok {
				return fmt.Errorf("%s backend cannot store categories", a.cfg.DataBackend)
			}
			return runCategorySync(ctx, cmd.OutOrStdout(), worker.NewCategorySync(src, store), ifEmpty)
		},
	}
	syncCmd.Flags().BoolVar(&ifEmpty, "if-empty", false, "only sync when no local categories exist")
	categories.AddCommand(syncCmd)
	return categories
}

func runCategorySync(ctx context.Context, out io.Writer, w *worker.CategorySync, ifEmpty bool) error {
	var (
		res worker.SyncResult
		err error
	)
	if ifEmpty {
		var ran bool
		res, ran, err = w.SyncIfEmpty(ctx)
		if err == nil && !ran {
			fmt.Fprintln(out, "Local categories present, nothing to do")
			return nil
		}
	} else {
		res, err = w.Sync(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Synced %d categories and %d budgets (%d skipped)\n", res.Categories, res.Budgets, res.Skipped)
	return nil
}

// WriteReport renders d as plain text.
func WriteReport(w io.Writer, d services.Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	cmp := d.Comparison

	fmt.Fprintf(tw, "Month\t%s\t(%s .. %s)\n", d.Window.YearMonth(), d.Window.Start.Format("2006-01-02"), d.Window.End.Format("2006-01-02"))
	fmt.Fprintf(tw, "Income\t%s\t%s%%\n", cmp.Current.Income, cmp.IncomeDeltaPct.StringFixed(1))
	fmt.Fprintf(tw, "Expenses\t%s\t%s%%\n", cmp.Current.Expenses, cmp.ExpenseDeltaPct.StringFixed(1))
	fmt.Fprintf(tw, "Net savings\t%s\t%s%%\n", cmp.Current.NetSavings, cmp.SavingsDeltaPct.StringFixed(1))

	fmt.Fprintf(tw, "\nBalance (%d points)\n", len(d.Timeline))
	for _, p := range d.Timeline {
		fmt.Fprintf(tw, "  %s\t%s\n", p.Label, p.Balance)
	}

	fmt.Fprintln(tw, "\nExpenses by category")
	if len(d.ExpenseSegments) == 0 {
		fmt.Fprintln(tw, "  none")
	}
	for _, s := range d.ExpenseSegments {
		prev := "-"
		if s.PreviousAmount != nil {
			prev = s.PreviousAmount.String()
		}
		fmt.Fprintf(tw, "  %s\t%s\tprev %s\n", s.Name, s.Amount, prev)
	}

	fmt.Fprintln(tw, "\nIncome by category")
	if len(d.IncomeSegments) == 0 {
		fmt.Fprintln(tw, "  none")
	}
	for _, s := range d.IncomeSegments {
		fmt.Fprintf(tw, "  %s\t%s\n", s.Name, s.Amount)
	}

	if len(d.Budgets) > 0 {
		fmt.Fprintln(tw, "\nBudgets")
		for _, b := range d.Budgets {
			flag := ""
			if b.Over {
				flag = "OVER"
			}
			fmt.Fprintf(tw, "  %s\t%s / %s\t%s%%\t%s\n", b.Name, b.Spent, b.Limit, b.Percent.StringFixed(1), flag)
		}
	}

	if len(d.Goals) > 0 {
		fmt.Fprintln(tw, "\nGoals")
		for _, g := range d.Goals {
			state := "BEHIND"
			switch {
			case g.Reached:
				state = "REACHED"
			case g.OnTrack:
				state = "ON TRACK"
			}
			fmt.Fprintf(tw, "  %s\t%s / %s\t%s%%\t%s\n", g.Name, g.Saved, g.Target, g.Percent.StringFixed(1), state)
		}
	}

	fmt.Fprintln(tw, "\nInsights")
	if len(d.Insights) == 0 {
		fmt.Fprintln(tw, "  none")
	}
	for _, in := range d.Insights {
		fmt.Fprintf(tw, "  [%s]\t%s\t%s\n", in.AccentHint, in.Title, in.Body)
	}
	return tw.Flush()
}
