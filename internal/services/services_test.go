package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tesoreria/internal/amqp"
	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

// Sunday 2026-10-18, 09:00 UTC
var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, msg *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, msg)
	return nil
}

func (p *recordingPublisher) Events() []*amqp.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.LedgerEvent(nil), p.events...)
}

func (p *recordingPublisher) Last() *amqp.LedgerEvent {
	events := p.Events()
	if len(events) == 0 {
		return nil
	}
	return events[len(events)-1]
}

// ledger bundles every service over one SQLite file.
type ledger struct {
	path       string
	store      *storage.Store
	clock      *testClock
	events     *recordingPublisher
	accounts   *AccountService
	txs        *TransactionService
	expenses   *ExpenseService
	projects   *ProjectService
	projectExp *ProjectExpenseService
	budgets    *BudgetService
	stats      *StatisticsService
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := storage.OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	l := &ledger{path: path, store: store, clock: &testClock{now: testNow}, events: &recordingPublisher{}}
	opts := []Option{WithEvents(l.events), WithClock(l.clock.Now)}
	l.accounts = NewAccountService(store, opts...)
	l.txs = NewTransactionService(store, opts...)
	l.expenses = NewExpenseService(store, opts...)
	l.projects = NewProjectService(store, time.Minute, opts...)
	l.projectExp = NewProjectExpenseService(store, l.projects, opts...)
	l.budgets = NewBudgetService(store, l.projects, core.StartPending, opts...)
	l.stats = NewStatisticsService(store, 0, opts...)
	return l
}

// exec runs raw SQL on a second connection, for fixtures the services refuse to create.
func (l *ledger) exec(t *testing.T, query string, args ...any) {
	t.Helper()
	db, err := sql.Open("sqlite", l.path+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(query, args...)
	require.NoError(t, err)
}

func (l *ledger) account(t *testing.T) core.Account {
	t.Helper()
	a, err := l.accounts.CreateAccount(context.Background(), core.AccountInput{
		AccountName: "Operations", BankName: "HDFC", AccountNumber: "50100",
		IFSCCode: "hdfc0000123",
	})
	require.NoError(t, err)
	return a
}

func (l *ledger) budget(t *testing.T, allocated int64) core.Budget {
	t.Helper()
	today := testToday()
	b, err := l.budgets.CreateBudget(context.Background(), core.BudgetInput{
		Name: "Q4 marketing", Category: "marketing", Allocated: core.Cents(allocated),
		StartDate: today.AddDays(-7), EndDate: today.AddDays(60),
	})
	require.NoError(t, err)
	require.Equal(t, core.BudgetActive, b.Status)
	return b
}

func testToday() core.Date { return core.DateOf(testNow) }
