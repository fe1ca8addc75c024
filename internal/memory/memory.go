package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"saldo/internal/core"
	"saldo/internal/ports"
)

var defaultCategories = []core.Category{
	{ID: "salary", Name: "Salary", Color: "#43A047", Icon: "briefcase"},
	{ID: "groceries", Name: "Groceries", Color: "#FB8C00", Icon: "shopping-cart"},
	{ID: "housing", Name: "Housing", Color: "#1E88E5", Icon: "home"},
	{ID: "transport", Name: "Transport", Color: "#8E24AA", Icon: "bus"},
}

// Store keeps everything in process memory. Transactions are kept in
// insertion order; reads return them newest first.
type Store struct {
	mu      sync.Mutex
	cats    []core.Category
	budgets map[string]core.Money
	items   []core.Transaction
	goals   []core.Goal
}

func New(cats []core.Category) *Store {
	return &Store{cats: dedupe(cats), budgets: map[string]core.Money{}}
}

// NewFromFiles seeds categories from seed_categories.txt in base. Each line is
// "id;name;color;icon" with color and icon optional.
func NewFromFiles(base string) *Store {
	var cats []core.Category
	for _, line := range readLines(filepath.Join(base, "seed_categories.txt")) {
		if c, ok := parseCategoryLine(line); ok {
			cats = append(cats, c)
		}
	}
	if len(cats) == 0 {
		cats = defaultCategories
	}
	return New(cats)
}

// CreateTransaction implements ports.TransactionWriter.
func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Category != nil {
		if c, ok := s.category(tx.Category.ID); ok {
			tx.Category = &c
		} else if tx.Category.ID != core.OtherCategory.ID {
			return "", fmt.Errorf("unknown category %q", tx.Category.ID)
		}
	}
	s.items = append(s.items, tx)
	return tx.ID, nil
}

// DeleteTransaction implements ports.TransactionWriter.
func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.items, func(tx core.Transaction) bool { return tx.ID == id })
	if i < 0 {
		return fmt.Errorf("delete transaction %s: %w", id, ports.ErrNotFound)
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}

// ListTransactions implements ports.TransactionReader.
func (s *Store) ListTransactions(_ context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	out := slices.Clone(s.items)
	s.mu.Unlock()

	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		return b.Date.Compare(a.Date.Time)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return core.WithDefaultCategory(out), nil
}

// ListMonthlyAggregates implements ports.AggregateReader.
func (s *Store) ListMonthlyAggregates(_ context.Context) ([]core.MonthlyAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.AggregateByMonth(s.items), nil
}

// ListCategories implements ports.CategoryReader.
func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.cats), nil
}

// ListBudgets implements ports.BudgetReader.
func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0, len(s.budgets))
	for id, limit := range s.budgets {
		out = append(out, core.Budget{CategoryID: id, Limit: limit})
	}
	slices.SortFunc(out, func(a, b core.Budget) int { return strings.Compare(a.CategoryID, b.CategoryID) })
	return out, nil
}

func (s *Store) SetBudget(_ context.Context, b core.Budget) error {
	if b.Limit.Cents < 0 {
		return core.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.CategoryID] = b.Limit
	return nil
}

// UpsertCategory adds c or replaces the category with the same id.
func (s *Store) UpsertCategory(_ context.Context, c core.Category) error {
	if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("upsert category: id and name are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cats {
		if s.cats[i].ID == c.ID {
			s.cats[i] = c
			return nil
		}
	}
	s.cats = append(s.cats, c)
	return nil
}

// ListGoals implements ports.GoalReader in creation order.
func (s *Store) ListGoals(_ context.Context) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.goals), nil
}

// CreateGoal implements ports.GoalWriter.
func (s *Store) CreateGoal(_ context.Context, g core.Goal) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = append(s.goals, g)
	return g.ID, nil
}

func (s *Store) AddToGoal(_ context.Context, id string, amount core.Money) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.goals {
		if s.goals[i].ID != id {
			continue
		}
		saved := s.goals[i].Saved.Add(amount)
		if saved.Cents < 0 {
			return core.Goal{}, fmt.Errorf("goal %s: withdrawal exceeds savings: %w", id, core.ErrInvalidAmount)
		}
		s.goals[i].Saved = saved
		return s.goals[i], nil
	}
	return core.Goal{}, fmt.Errorf("goal %s: %w", id, ports.ErrNotFound)
}

func (s *Store) DeleteGoal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.goals {
		if s.goals[i].ID == id {
			s.goals = slices.Delete(s.goals, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("goal %s: %w", id, ports.ErrNotFound)
}

func (s *Store) category(id string) (core.Category, bool) {
	for _, c := range s.cats {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

func parseCategoryLine(line string) (core.Category, bool) {
	parts := strings.Split(line, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return core.Category{}, false
	}
	c := core.Category{ID: parts[0], Name: parts[1], Color: core.OtherCategory.Color}
	if len(parts) > 2 && parts[2] != "" {
		c.Color = parts[2]
	}
	if len(parts) > 3 {
		c.Icon = parts[3]
	}
	return c, true
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func dedupe(in []core.Category) []core.Category {
	seen := map[string]struct{}{}
	out := make([]core.Category, 0, len(in))
	for _, c := range in {
		if c.ID == "" {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
