// Package backend assembles the ledger from configuration: it opens the
// selected SQL store, connects the optional event publisher and builds the
// services on top of them.
package backend

import (
	"tesoreria/internal/amqp"
	"tesoreria/internal/services"
	"tesoreria/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Backend is the fully wired ledger.
type Backend struct {
	Store  *storage.Store
	Events *amqp.Client // nil when events are disabled

	Accounts        *services.AccountService
	Transactions    *services.TransactionService
	Expenses        *services.ExpenseService
	Projects        *services.ProjectService
	ProjectExpenses *services.ProjectExpenseService
	Budgets         *services.BudgetService
	Statistics      *services.StatisticsService
	Reconciler      *services.Reconciler

	cleanup []CleanupFunc
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// Dialect maps the backend type to its storage dialect.
func (bt BackendType) Dialect() storage.Dialect {
	if bt == PostgresBackend {
		return storage.Postgres
	}
	return storage.SQLite
}
