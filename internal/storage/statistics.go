package storage

import (
	"context"

	"tesoreria/internal/core"
)

// CategoryTotal is the sum of one (type, status, category) group.
type CategoryTotal struct {
	Type     core.TransactionType
	Status   core.Status
	Category string
	Amount   core.Money
}

// TransactionTotals groups non-failed transactions inside w.
func (q *Queries) TransactionTotals(ctx context.Context, w core.Window) ([]CategoryTotal, error) {
	return q.categoryTotals(ctx, "transaction totals", `SELECT type, status, category,
		CAST(SUM(amount_cents) AS BIGINT) FROM transactions`, "transaction_date", w,
		` GROUP BY type, status, category ORDER BY type, status, category`)
}

// ExpenseTotals groups non-failed expenses inside w. Type is always outgoing.
func (q *Queries) ExpenseTotals(ctx context.Context, w core.Window) ([]CategoryTotal, error) {
	return q.categoryTotals(ctx, "expense totals", `SELECT 'outgoing', status, category,
		CAST(SUM(amount_cents) AS BIGINT) FROM expenses`, "expense_date", w,
		` GROUP BY status, category ORDER BY status, category`)
}

// ProjectExpenseTotals sums project expenses inside w. They carry no status
// and are reported as completed.
func (q *Queries) ProjectExpenseTotals(ctx context.Context, w core.Window) (core.Money, error) {
	var cond where
	if !w.Unbounded() {
		cond.add("expense_date >= ? AND expense_date <= ?", w.From, w.To)
	}
	var cents int64
	err := q.db.QueryRowContext(ctx, `SELECT CAST(COALESCE(SUM(amount_cents), 0) AS BIGINT)
		FROM project_expenses`+cond.String(), cond.args...).Scan(&cents)
	if err != nil {
		return core.Money{}, mapError("project expense totals", "", 0, err)
	}
	return core.Cents(cents), nil
}

// BudgetSummary sums the budgets whose date range overlaps w.
func (q *Queries) BudgetSummary(ctx context.Context, w core.Window) (core.BudgetSummary, error) {
	var cond where
	if !w.Unbounded() {
		cond.add("start_date <= ? AND end_date >= ?", w.To, w.From)
	}
	var s core.BudgetSummary
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*),
		CAST(COALESCE(SUM(allocated_cents), 0) AS BIGINT),
		CAST(COALESCE(SUM(spent_cents), 0) AS BIGINT)
		FROM budgets`+cond.String(), cond.args...).Scan(&s.Count, &s.Allocated.Cents, &s.Spent.Cents)
	if err != nil {
		return core.BudgetSummary{}, mapError("budget summary", "", 0, err)
	}
	s.Remaining = s.Allocated.Sub(s.Spent)
	return s, nil
}

func (q *Queries) categoryTotals(ctx context.Context, op, selectFrom, dateColumn string, w core.Window, tail string) ([]CategoryTotal, error) {
	var cond where
	cond.add("status <> ?", string(core.StatusFailed))
	if !w.Unbounded() {
		cond.add(dateColumn+" >= ? AND "+dateColumn+" <= ?", w.From, w.To)
	}
	rows, err := q.db.QueryContext(ctx, selectFrom+cond.String()+tail, cond.args...)
	if err != nil {
		return nil, mapError(op, "", 0, err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var t CategoryTotal
		if err := rows.Scan(&t.Type, &t.Status, &t.Category, &t.Amount.Cents); err != nil {
			return nil, mapError(op, "", 0, err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, "", 0, err)
	}
	return totals, nil
}
