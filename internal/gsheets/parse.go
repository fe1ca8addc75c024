package gsheets

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

var transactionHeader = []string{"Id", "Date", "Amount", "Flow", "Category", "Description"}

type columns struct {
	id, date, amount, flow, category, description int
}

func headerColumns(headers []string) (columns, error) {
	c := columns{
		id:          indexOf(headers, "Id"),
		date:        indexOf(headers, "Date"),
		amount:      indexOf(headers, "Amount"),
		flow:        indexOf(headers, "Flow"),
		category:    indexOf(headers, "Category"),
		description: indexOf(headers, "Description"),
	}
	var missing []string
	for name, idx := range map[string]int{"Id": c.id, "Date": c.date, "Amount": c.amount, "Flow": c.flow} {
		if idx == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("unexpected transactions header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}
	return c, nil
}

// parseTransactions converts a values matrix whose first row is a header into
// transactions, joining category metadata by id. Rows that do not parse are
// skipped and counted.
func parseTransactions(values [][]interface{}, cats map[string]core.Category) ([]core.Transaction, int, error) {
	if len(values) == 0 {
		return nil, 0, nil
	}
	cols, err := headerColumns(toStrings(values[0]))
	if err != nil {
		return nil, 0, err
	}

	var (
		out     []core.Transaction
		skipped int
	)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		tx, err := parseRow(row, cols, cats)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, tx)
	}
	return out, skipped, nil
}

func parseRow(row []string, cols columns, cats map[string]core.Category) (core.Transaction, error) {
	id := safeGet(row, cols.id)
	if id == "" {
		return core.Transaction{}, fmt.Errorf("missing id")
	}
	date, err := core.ParseDate(safeGet(row, cols.date))
	if err != nil {
		return core.Transaction{}, err
	}
	cents, err := parseEurosToCents(safeGet(row, cols.amount))
	if err != nil {
		return core.Transaction{}, err
	}
	flow, err := core.ParseFlow(safeGet(row, cols.flow))
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:          id,
		Date:        date,
		Amount:      core.Money{Cents: cents},
		Flow:        flow,
		Description: safeGet(row, cols.description),
	}
	if catID := safeGet(row, cols.category); catID != "" {
		if c, ok := cats[catID]; ok {
			tx.Category = &c
		}
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// parseCategories reads rows of Id, Name, Color, Icon. The first row is a header.
func parseCategories(values [][]interface{}) []core.Category {
	var out []core.Category
	seen := map[string]bool{}
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		id, name := safeGet(row, 0), safeGet(row, 1)
		if id == "" || name == "" || seen[id] {
			continue
		}
		seen[id] = true
		c := core.Category{ID: id, Name: name, Color: safeGet(row, 2), Icon: safeGet(row, 3)}
		if c.Color == "" {
			c.Color = core.OtherCategory.Color
		}
		out = append(out, c)
	}
	return out
}

// parseBudgets reads rows of CategoryId, Limit. The first row is a header.
func parseBudgets(values [][]interface{}) []core.Budget {
	var out []core.Budget
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		id := safeGet(row, 0)
		cents, err := parseEurosToCents(safeGet(row, 1))
		if id == "" || err != nil || cents < 0 {
			continue
		}
		out = append(out, core.Budget{CategoryID: id, Limit: core.Money{Cents: cents}})
	}
	return out
}

func transactionRow(tx core.Transaction) []interface{} {
	catID := ""
	if tx.Category != nil && tx.Category.ID != core.OtherCategory.ID {
		catID = tx.Category.ID
	}
	return []interface{}{
		tx.ID,
		tx.Date.String(),
		decimal.New(tx.Amount.Cents, -2).StringFixed(2),
		tx.Flow.String(),
		catID,
		tx.Description,
	}
}

// parseEurosToCents accepts "12.34", "12,34" and "€ 12,34", rounding half away from zero.
func parseEurosToCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "€"))
	if s == "" {
		return 0, core.ErrInvalidAmount
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
