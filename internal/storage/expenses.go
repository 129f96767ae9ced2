package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tesoreria/internal/core"
)

const expenseColumns = `id, category, amount_cents, expense_date, description, status, vendor,
	employee, approved_at, created_at, updated_at`

func scanExpense(row interface{ Scan(...any) error }) (core.Expense, error) {
	var (
		e          core.Expense
		approvedAt sql.NullTime
	)
	err := row.Scan(&e.ID, &e.Category, &e.Amount.Cents, &e.Date, &e.Description, &e.Status,
		&e.Vendor, &e.Employee, &approvedAt, &e.CreatedAt, &e.UpdatedAt)
	if approvedAt.Valid {
		t := approvedAt.Time
		e.ApprovedAt = &t
	}
	return e, err
}

func (q *Queries) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	row := q.db.QueryRowContext(ctx, `INSERT INTO expenses (category, amount_cents, expense_date,
		description, status, vendor, employee, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+expenseColumns,
		e.Category, e.Amount.Cents, e.Date, e.Description, string(e.Status), e.Vendor, e.Employee,
		e.CreatedAt, e.UpdatedAt)
	created, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, mapError("create expense", "expense", 0, err)
	}
	return created, nil
}

func (q *Queries) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	row := q.db.QueryRowContext(ctx, `UPDATE expenses SET category = $1, amount_cents = $2,
		expense_date = $3, description = $4, status = $5, vendor = $6, employee = $7, updated_at = $8
		WHERE id = $9
		RETURNING `+expenseColumns,
		e.Category, e.Amount.Cents, e.Date, e.Description, string(e.Status), e.Vendor, e.Employee,
		e.UpdatedAt, e.ID)
	updated, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, mapError("update expense", "expense", e.ID, err)
	}
	return updated, nil
}

// ApproveExpense moves a pending expense to completed. It reports false when
// the expense exists but is not pending.
func (q *Queries) ApproveExpense(ctx context.Context, id int64, at time.Time) (core.Expense, bool, error) {
	row := q.db.QueryRowContext(ctx, `UPDATE expenses SET status = 'completed', approved_at = $1,
		updated_at = $1
		WHERE id = $2 AND status = 'pending'
		RETURNING `+expenseColumns, at, id)
	e, err := scanExpense(row)
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, false, mapError("approve expense", "expense", id, err)
	}
	current, err := q.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, false, err
	}
	return current, false, nil
}

func (q *Queries) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, mapError("get expense", "expense", id, err)
	}
	return e, nil
}

func (q *Queries) DeleteExpense(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	return affectedOne(res, err, "delete expense", "expense", id)
}

func (q *Queries) ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, int64, error) {
	var w where
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.Category != "" {
		w.add("LOWER(category) = ?", toLower(f.Category))
	}
	if f.Search != "" {
		w.search(f.Search, "category", "description", "vendor")
	}

	var total int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, mapError("count expenses", "", 0, err)
	}

	page := f.PageRequest.Normalize()
	query := `SELECT ` + expenseColumns + ` FROM expenses` + w.String() +
		` ORDER BY expense_date DESC, id DESC LIMIT ` + w.next(1) + ` OFFSET ` + w.next(2)
	rows, err := q.db.QueryContext(ctx, query, append(w.args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, mapError("list expenses", "", 0, err)
	}
	defer rows.Close()

	items := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, mapError("scan expense", "", 0, err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError("list expenses", "", 0, err)
	}
	return items, total, nil
}
