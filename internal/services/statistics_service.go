package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"tesoreria/internal/core"
	applog "tesoreria/internal/log"
	"tesoreria/internal/storage"
)

const defaultStatisticsTimeout = 7 * time.Second

// StatisticsService computes the dashboard read model. It keeps no state
// between requests: the result is a function of the ledger and the window.
type StatisticsService struct {
	base
	timeout time.Duration
	group   singleflight.Group
}

// NewStatisticsService creates the aggregator. A zero timeout uses the default.
func NewStatisticsService(store *storage.Store, timeout time.Duration, opts ...Option) *StatisticsService {
	if timeout <= 0 {
		timeout = defaultStatisticsTimeout
	}
	return &StatisticsService{base: newBase(store, opts), timeout: timeout}
}

// GetStatistics aggregates the ledger for filter. Identical concurrent
// requests share one computation.
func (s *StatisticsService) GetStatistics(ctx context.Context, filter string) (core.Statistics, error) {
	tf, err := core.ParseTimeFilter(filter)
	if err != nil {
		return core.Statistics{}, err
	}

	now := s.now()
	key := fmt.Sprintf("%s|%s", tf, core.DateOf(now))
	ch := s.group.DoChan(key, func() (any, error) {
		// The shared computation must outlive the caller that started it.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.compute(ctx, tf, now)
	})

	select {
	case <-ctx.Done():
		return core.Statistics{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			slog.ErrorContext(ctx, "Statistics computation failed",
				applog.FieldComponent, applog.ComponentStatistics,
				applog.FieldTimeFilter, string(tf),
				applog.FieldError, res.Err)
			return core.Statistics{}, res.Err
		}
		if res.Shared {
			slog.DebugContext(ctx, "Statistics shared with concurrent request", applog.FieldTimeFilter, string(tf))
		}
		return res.Val.(core.Statistics), nil
	}
}

func (s *StatisticsService) compute(ctx context.Context, tf core.TimeFilter, now time.Time) (core.Statistics, error) {
	current, previous := core.Windows(tf, now)
	today := core.DateOf(now)
	todayWindow := core.Window{From: today, To: today}

	var (
		cur, prev, day tally
		budgets        core.BudgetSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cur, err = s.scan(gctx, current)
		return err
	})
	if previous != nil {
		g.Go(func() (err error) {
			prev, err = s.scan(gctx, *previous)
			return err
		})
	}
	g.Go(func() (err error) {
		day, err = s.scan(gctx, todayWindow)
		return err
	})
	g.Go(func() (err error) {
		budgets, err = s.store.BudgetSummary(gctx, current)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Statistics{}, err
	}

	revenue, expenses := cur.revenue.Total(), cur.expenses.Total()
	prevRevenue, prevExpenses := prev.revenue.Total(), prev.expenses.Total()
	stats := core.Statistics{
		TimeFilter:       tf,
		Window:           current,
		TotalRevenue:     revenue,
		TotalExpenses:    expenses,
		NetProfit:        revenue.Sub(expenses),
		TodayEarnings:    day.revenue.Total(),
		TodayExpenses:    day.expenses.Total(),
		PeriodEarnings:   revenue,
		PeriodExpenses:   expenses,
		RevenueBreakdown: cur.revenue,
		ExpenseBreakdown: cur.expenses,
		PendingAmounts:   cur.pending,
		Budgets:          budgets,
	}
	// Without a previous window prev is empty and every change is 0.
	stats.RevenueChange = core.PercentChange(revenue, prevRevenue)
	stats.ExpensesChange = core.PercentChange(expenses, prevExpenses)
	stats.ProfitChange = core.PercentChange(stats.NetProfit, prevRevenue.Sub(prevExpenses))

	slog.DebugContext(ctx, "Statistics computed",
		applog.FieldTimeFilter, string(tf),
		"revenue_cents", revenue.Cents,
		"expenses_cents", expenses.Cents)
	return stats, nil
}

// tally is the classified content of one window.
type tally struct {
	revenue  core.RevenueBreakdown
	expenses core.ExpenseBreakdown
	pending  core.PendingAmounts
}

func (s *StatisticsService) scan(ctx context.Context, w core.Window) (tally, error) {
	transactions, err := s.store.TransactionTotals(ctx, w)
	if err != nil {
		return tally{}, err
	}
	expenses, err := s.store.ExpenseTotals(ctx, w)
	if err != nil {
		return tally{}, err
	}
	projects, err := s.store.ProjectExpenseTotals(ctx, w)
	if err != nil {
		return tally{}, err
	}

	var t tally
	for _, row := range append(transactions, expenses...) {
		t.add(row)
	}
	t.expenses.Project = t.expenses.Project.Add(projects)
	return t, nil
}

func (t *tally) add(row storage.CategoryTotal) {
	pending := row.Status == core.StatusPending
	if row.Type == core.Incoming {
		class := core.ClassifyRevenue(row.Category)
		addRevenue(&t.revenue, class, row.Amount)
		if pending {
			t.pending.TotalPendingReceivables = t.pending.TotalPendingReceivables.Add(row.Amount)
			if class == core.RevenueAdvance || class == core.RevenueInstallment {
				t.pending.PendingProjectOutstanding = t.pending.PendingProjectOutstanding.Add(row.Amount)
			}
		}
		return
	}

	class := core.ClassifyExpense(row.Category)
	addExpense(&t.expenses, class, row.Amount)
	if pending {
		t.pending.TotalPendingPayables = t.pending.TotalPendingPayables.Add(row.Amount)
		switch class {
		case core.ExpenseSalary:
			t.pending.PendingSalaries = t.pending.PendingSalaries.Add(row.Amount)
		case core.ExpenseRecurring, core.ExpenseMonthlyRecurring:
			t.pending.PendingRecurringExpenses = t.pending.PendingRecurringExpenses.Add(row.Amount)
		}
	}
}

func addRevenue(b *core.RevenueBreakdown, class core.RevenueClass, m core.Money) {
	switch class {
	case core.RevenuePayment:
		b.Payment = b.Payment.Add(m)
	case core.RevenueAdvance:
		b.Advance = b.Advance.Add(m)
	case core.RevenueInstallment:
		b.Installment = b.Installment.Add(m)
	case core.RevenueReceipt:
		b.Receipt = b.Receipt.Add(m)
	default:
		b.Transaction = b.Transaction.Add(m)
	}
}

func addExpense(b *core.ExpenseBreakdown, class core.ExpenseClass, m core.Money) {
	switch class {
	case core.ExpenseSalary:
		b.Salary = b.Salary.Add(m)
	case core.ExpenseRecurring:
		b.Recurring = b.Recurring.Add(m)
	case core.ExpenseMonthlyRecurring:
		b.MonthlyRecurring = b.MonthlyRecurring.Add(m)
	case core.ExpenseProject:
		b.Project = b.Project.Add(m)
	case core.ExpenseIncentive:
		b.Incentive = b.Incentive.Add(m)
	case core.ExpenseReward:
		b.Reward = b.Reward.Add(m)
	default:
		b.Other = b.Other.Add(m)
	}
}
