package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tesoreria/internal/backend"
	"tesoreria/internal/core"
)

var seedNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func openTestBackend(t *testing.T) *backend.Backend {
	t.Helper()
	b, err := backend.Open(context.Background(), backend.Config{
		Type:              backend.SQLiteBackend,
		DSN:               filepath.Join(t.TempDir(), "ledger.db"),
		StartPolicy:       core.StartPending,
		ProjectCacheTTL:   time.Minute,
		StatisticsTimeout: 5 * time.Second,
		Now:               func() time.Time { return seedNow },
	})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "reconcile", "seed"}, names)

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, serve.Flags().Lookup("with-reconciler"))
}

func TestSeedCreatesConsistentLedger(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)

	sum, err := Seed(ctx, b, SeedOptions{Accounts: 2, Transactions: 25, Projects: 2, Expenses: 4, Seed: 42}, seedNow)
	require.NoError(t, err)
	assert.Equal(t, SeedSummary{
		Accounts:        2,
		Transactions:    25,
		Projects:        2,
		Budgets:         2,
		Spends:          6,
		Expenses:        4,
		ProjectExpenses: 4,
	}, sum)

	accounts, err := b.Accounts.ListAccounts(ctx, core.AccountFilter{})
	require.NoError(t, err)
	assert.Len(t, accounts.Items, 2)

	// Spends plus the seeded transactions
	txs, err := b.Transactions.ListTransactions(ctx, core.TransactionFilter{PageRequest: core.PageRequest{Page: 1, Limit: 100}})
	require.NoError(t, err)
	assert.EqualValues(t, 31, txs.Total)

	res, err := b.Reconciler.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
	assert.Zero(t, res.Corrected, "seeded budgets must already be reconciled")
}

func TestSeedNeedsAnAccountForTransactions(t *testing.T) {
	b := openTestBackend(t)
	_, err := Seed(context.Background(), b, SeedOptions{Transactions: 3}, seedNow)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestReconcileOutput(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)

	budget, err := b.Budgets.CreateBudget(ctx, core.BudgetInput{
		Name:      "Marketing",
		Category:  "marketing",
		Allocated: core.Cents(100000),
		StartDate: core.NewDate(2026, 10, 1),
		EndDate:   core.NewDate(2026, 12, 31),
	})
	require.NoError(t, err)
	_, err = b.Budgets.SpendFromBudget(ctx, budget.ID, core.SpendInput{Amount: core.Cents(2500)})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, reconcileOne(ctx, &out, b.Budgets, budget.ID))
	assert.Equal(t, "budget 1 already reconciled (spent 25.00)\n", out.String())

	out.Reset()
	require.NoError(t, reconcileAll(ctx, &out, b.Reconciler))
	assert.Equal(t, "promoted 0, checked 1, corrected 0, failed 0\n", out.String())

	err = reconcileOne(ctx, &out, b.Budgets, 99)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "migrate.db"))
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"migrate"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "migrations applied (sqlite)\n", out.String())

	// Applying again is a no-op
	out.Reset()
	root.SetArgs([]string{"migrate"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "migrations applied")
}

func TestMigrateCommandRejectsInvalidConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"migrate"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid data backend 'memory'")
}
