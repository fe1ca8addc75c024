package backend

import (
	"context"

	"saldo/internal/amqp"
	"saldo/internal/ports"
)

// Backend is everything the dashboard and the write path need from a store.
type Backend interface {
	ports.TransactionReader
	ports.TransactionWriter
	ports.AggregateReader
	ports.CategoryReader
	ports.BudgetReader
}

// Pinger is implemented by backends with a live connection to check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function.
// Changes is nil when no AMQP URL is configured.
type BackendResult struct {
	Backend Backend
	Changes *amqp.Client
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Change feed, shared by every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleCategoriesSheetName string
	GoogleBudgetsSheetName    string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string

	// Memory backend specific
	DataDirectory string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
