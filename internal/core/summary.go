package core

import (
	"strings"
	"time"
)

// TimeFilter names a calendar window used to scope statistics.
type TimeFilter string

const (
	FilterAll   TimeFilter = "all"
	FilterToday TimeFilter = "today"
	FilterWeek  TimeFilter = "week"
	FilterMonth TimeFilter = "month"
	FilterYear  TimeFilter = "year"
)

// ParseTimeFilter defaults to all when s is empty.
func ParseTimeFilter(s string) (TimeFilter, error) {
	f := TimeFilter(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterToday, FilterWeek, FilterMonth, FilterYear:
		return f, nil
	}
	return "", Validationf("invalid time filter %q", s)
}

// Window is an inclusive range of calendar days. An unbounded window has zero From and To.
type Window struct {
	From Date `json:"from"`
	To   Date `json:"to"`
}

func (w Window) Unbounded() bool { return w.From.IsZero() && w.To.IsZero() }

// Contains reports whether d falls inside the window.
func (w Window) Contains(d Date) bool {
	if w.Unbounded() {
		return true
	}
	return !d.Before(w.From.Time) && !d.After(w.To.Time)
}

// Overlaps reports whether [from, to] intersects the window.
func (w Window) Overlaps(from, to Date) bool {
	if w.Unbounded() {
		return true
	}
	return !to.Before(w.From.Time) && !from.After(w.To.Time)
}

// Windows returns the window for f on the day of now and the immediately
// preceding window of the same length. For FilterAll the previous window is nil.
func Windows(f TimeFilter, now time.Time) (Window, *Window) {
	today := DateOf(now)
	switch f {
	case FilterToday:
		prev := Window{From: today.AddDays(-1), To: today.AddDays(-1)}
		return Window{From: today, To: today}, &prev
	case FilterWeek:
		offset := (int(today.Weekday()) + 6) % 7 // Monday = 0
		start := today.AddDays(-offset)
		prev := Window{From: start.AddDays(-7), To: start.AddDays(-1)}
		return Window{From: start, To: start.AddDays(6)}, &prev
	case FilterMonth:
		start := NewDate(today.Year(), int(today.Month()), 1)
		end := Date{Time: start.AddDate(0, 1, -1)}
		prevStart := Date{Time: start.AddDate(0, -1, 0)}
		prev := Window{From: prevStart, To: start.AddDays(-1)}
		return Window{From: start, To: end}, &prev
	case FilterYear:
		start := NewDate(today.Year(), 1, 1)
		prev := Window{From: NewDate(today.Year()-1, 1, 1), To: NewDate(today.Year()-1, 12, 31)}
		return Window{From: start, To: NewDate(today.Year(), 12, 31)}, &prev
	}
	return Window{}, nil
}

// RevenueBreakdown groups incoming money by semantic category.
type RevenueBreakdown struct {
	Payment     Money `json:"payment"`
	Advance     Money `json:"advance"`
	Installment Money `json:"installment"`
	Receipt     Money `json:"receipt"`
	Transaction Money `json:"transaction"`
}

func (b RevenueBreakdown) Total() Money {
	return b.Payment.Add(b.Advance).Add(b.Installment).Add(b.Receipt).Add(b.Transaction)
}

// ExpenseBreakdown groups outgoing money by semantic category.
type ExpenseBreakdown struct {
	Salary           Money `json:"salary"`
	Recurring        Money `json:"recurring"`
	MonthlyRecurring Money `json:"monthlyRecurring"`
	Project          Money `json:"project"`
	Incentive        Money `json:"incentive"`
	Reward           Money `json:"reward"`
	Other            Money `json:"other"`
}

func (b ExpenseBreakdown) Total() Money {
	return b.Salary.Add(b.Recurring).Add(b.MonthlyRecurring).Add(b.Project).
		Add(b.Incentive).Add(b.Reward).Add(b.Other)
}

// PendingAmounts are unsettled receivables and payables.
type PendingAmounts struct {
	PendingSalaries           Money `json:"pendingSalaries"`
	PendingRecurringExpenses  Money `json:"pendingRecurringExpenses"`
	PendingProjectOutstanding Money `json:"pendingProjectOutstanding"`
	TotalPendingReceivables   Money `json:"totalPendingReceivables"`
	TotalPendingPayables      Money `json:"totalPendingPayables"`
}

// BudgetSummary sums the budgets overlapping a window.
type BudgetSummary struct {
	Count     int   `json:"count"`
	Allocated Money `json:"allocated"`
	Spent     Money `json:"spent"`
	Remaining Money `json:"remaining"`
}

// Statistics is the dashboard read model for one time filter.
type Statistics struct {
	TimeFilter       TimeFilter       `json:"timeFilter"`
	Window           Window           `json:"window"`
	TotalRevenue     Money            `json:"totalRevenue"`
	TotalExpenses    Money            `json:"totalExpenses"`
	NetProfit        Money            `json:"netProfit"`
	TodayEarnings    Money            `json:"todayEarnings"`
	TodayExpenses    Money            `json:"todayExpenses"`
	PeriodEarnings   Money            `json:"periodEarnings"`
	PeriodExpenses   Money            `json:"periodExpenses"`
	RevenueChange    Percent          `json:"revenueChange"`
	ExpensesChange   Percent          `json:"expensesChange"`
	ProfitChange     Percent          `json:"profitChange"`
	RevenueBreakdown RevenueBreakdown `json:"revenueBreakdown"`
	ExpenseBreakdown ExpenseBreakdown `json:"expenseBreakdown"`
	PendingAmounts   PendingAmounts   `json:"pendingAmounts"`
	Budgets          BudgetSummary    `json:"budgets"`
}

// RevenueClass is the revenue breakdown bucket of a category.
type RevenueClass string

const (
	RevenuePayment     RevenueClass = "payment"
	RevenueAdvance     RevenueClass = "advance"
	RevenueInstallment RevenueClass = "installment"
	RevenueReceipt     RevenueClass = "receipt"
	RevenueTransaction RevenueClass = "transaction"
)

// ClassifyRevenue maps a free-text category to its revenue bucket.
func ClassifyRevenue(category string) RevenueClass {
	switch normalizeCategory(category) {
	case "payment", "payments":
		return RevenuePayment
	case "advance", "advances":
		return RevenueAdvance
	case "installment", "installments", "instalment":
		return RevenueInstallment
	case "receipt", "receipts":
		return RevenueReceipt
	}
	return RevenueTransaction
}

// ExpenseClass is the expense breakdown bucket of a category.
type ExpenseClass string

const (
	ExpenseSalary           ExpenseClass = "salary"
	ExpenseRecurring        ExpenseClass = "recurring"
	ExpenseMonthlyRecurring ExpenseClass = "monthlyRecurring"
	ExpenseProject          ExpenseClass = "project"
	ExpenseIncentive        ExpenseClass = "incentive"
	ExpenseReward           ExpenseClass = "reward"
	ExpenseOther            ExpenseClass = "other"
)

// ClassifyExpense maps a free-text category to its expense bucket.
func ClassifyExpense(category string) ExpenseClass {
	switch normalizeCategory(category) {
	case "salary", "salaries":
		return ExpenseSalary
	case "recurring":
		return ExpenseRecurring
	case "monthlyrecurring":
		return ExpenseMonthlyRecurring
	case "project":
		return ExpenseProject
	case "incentive", "incentives":
		return ExpenseIncentive
	case "reward", "rewards":
		return ExpenseReward
	}
	return ExpenseOther
}

// normalizeCategory lowercases and drops separators: "Monthly Recurring" -> "monthlyrecurring".
func normalizeCategory(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}
