// Package importer reads bank-style CSV exports into transactions.
//
// Expected header (case-sensitive, any order): date, amount, and optionally
// flow, category, description, id. When flow is empty the amount sign picks
// it: negative amounts are expenses.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"saldo/internal/core"
)

// Row is one CSV record as read from the file.
type Row struct {
	ID          string `csv:"id,omitempty"`
	Date        string `csv:"date"`
	Amount      string `csv:"amount"`
	Flow        string `csv:"flow,omitempty"`
	Category    string `csv:"category,omitempty"`
	Description string `csv:"description,omitempty"`
}

// ErrNoRows is returned for a file with a header but no data.
var ErrNoRows = errors.New("csv contains no transactions")

// Importer converts rows, resolving categories by id or name.
type Importer struct {
	categories map[string]core.Category
	unknown    map[string]int
}

func New(categories []core.Category) *Importer {
	idx := make(map[string]core.Category, len(categories)*2)
	for _, c := range categories {
		idx[strings.ToLower(c.ID)] = c
		idx[strings.ToLower(c.Name)] = c
	}
	return &Importer{categories: idx, unknown: map[string]int{}}
}

// Parse reads all rows from r. The delimiter is ',' or ';', sniffed from the
// header line. The first invalid row aborts with its 1-based line number.
func (im *Importer) Parse(r io.Reader) ([]core.Transaction, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(4096)
	if len(bytes.TrimSpace(head)) == 0 {
		return nil, ErrNoRows
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(head)
	reader.TrimLeadingSpace = true

	var rows []*Row
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("read csv: %w", err)
	}

	txs := make([]core.Transaction, 0, len(rows))
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		tx, err := im.convert(*row)
		if err != nil {
			// header is line 1
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		txs = append(txs, tx)
	}
	if len(txs) == 0 {
		return nil, ErrNoRows
	}
	return txs, nil
}

// Unknown reports category labels that matched nothing and how often.
// Those rows were imported under the fallback category.
func (im *Importer) Unknown() map[string]int {
	return im.unknown
}

func (im *Importer) convert(row Row) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, err
	}

	cents, negative, err := parseAmount(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", row.Amount, err)
	}

	var flow core.Flow
	if strings.TrimSpace(row.Flow) == "" {
		flow = core.FlowIncome
		if negative {
			flow = core.FlowExpense
		}
	} else if flow, err = core.ParseFlow(row.Flow); err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		ID:          strings.TrimSpace(row.ID),
		Date:        date,
		Amount:      core.Money{Cents: cents},
		Flow:        flow,
		Category:    im.category(row.Category),
		Description: strings.TrimSpace(row.Description),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// parseAmount reads a signed amount such as "-€1.234,56", "€-12,50" or
// "1,234.56". When both '.' and ',' appear, the last one is the decimal
// separator and the other groups thousands.
func parseAmount(raw string) (int64, bool, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimPrefix(s, "€"))
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimLeft(s, "+-")
	s = strings.TrimSpace(strings.TrimPrefix(s, "€"))

	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	if dot >= 0 && comma >= 0 {
		thousands := "."
		if dot > comma {
			thousands = ","
		}
		s = strings.ReplaceAll(s, thousands, "")
	}

	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return 0, false, err
	}
	return cents, negative, nil
}

func (im *Importer) category(label string) *core.Category {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}
	if c, ok := im.categories[strings.ToLower(label)]; ok {
		return &c
	}
	im.unknown[label]++
	return nil
}

func sniffDelimiter(head []byte) rune {
	line, _, _ := bytes.Cut(head, []byte("\n"))
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func isBlank(r *Row) bool {
	return strings.TrimSpace(r.Date) == "" && strings.TrimSpace(r.Amount) == ""
}
