package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tesoreria/internal/core"
)

const budgetColumns = `id, name, category, allocated_cents, spent_cents, start_date, end_date,
	status, description, version, created_at, updated_at`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var b core.Budget
	err := row.Scan(&b.ID, &b.Name, &b.Category, &b.Allocated.Cents, &b.Spent.Cents, &b.StartDate,
		&b.EndDate, &b.Status, &b.Description, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx, `INSERT INTO budgets (name, category, allocated_cents,
		spent_cents, start_date, end_date, status, description, version, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5, $6, $7, 1, $8, $9)
		RETURNING `+budgetColumns,
		b.Name, b.Category, b.Allocated.Cents, b.StartDate, b.EndDate, string(b.Status),
		b.Description, b.CreatedAt, b.UpdatedAt)
	created, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, mapError("create budget", "budget", 0, err)
	}
	if err := q.setBudgetProjects(ctx, created.ID, b.ProjectIDs); err != nil {
		return core.Budget{}, err
	}
	created.ProjectIDs = b.ProjectIDs
	return created, nil
}

func (q *Queries) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, id)
	b, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, mapError("get budget", "budget", id, err)
	}
	if b.ProjectIDs, err = q.budgetProjectIDs(ctx, id); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// UpdateBudget writes b if its stored version still equals b.Version and
// bumps the version. A stale version yields a ConflictError.
func (q *Queries) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx, `UPDATE budgets SET name = $1, category = $2,
		allocated_cents = $3, spent_cents = $4, start_date = $5, end_date = $6, status = $7,
		description = $8, version = version + 1, updated_at = $9
		WHERE id = $10 AND version = $11
		RETURNING `+budgetColumns,
		b.Name, b.Category, b.Allocated.Cents, b.Spent.Cents, b.StartDate, b.EndDate,
		string(b.Status), b.Description, b.UpdatedAt, b.ID, b.Version)
	updated, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, q.versionMiss(ctx, "update budget", b.ID, err)
	}
	if err := q.setBudgetProjects(ctx, b.ID, b.ProjectIDs); err != nil {
		return core.Budget{}, err
	}
	updated.ProjectIDs = b.ProjectIDs
	return updated, nil
}

// AddBudgetSpent moves spent by delta under the optimistic version guard.
func (q *Queries) AddBudgetSpent(ctx context.Context, id int64, delta core.Money, version int64, at time.Time) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx, `UPDATE budgets SET spent_cents = spent_cents + $1,
		version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
		RETURNING `+budgetColumns, delta.Cents, at, id, version)
	b, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, q.versionMiss(ctx, "update budget spent", id, err)
	}
	if b.ProjectIDs, err = q.budgetProjectIDs(ctx, id); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// versionMiss tells a vanished budget apart from a concurrent writer.
func (q *Queries) versionMiss(ctx context.Context, op string, id int64, err error) error {
	if !errors.Is(err, sql.ErrNoRows) {
		return mapError(op, "budget", id, err)
	}
	var exists int
	switch err := q.db.QueryRowContext(ctx, `SELECT 1 FROM budgets WHERE id = $1`, id).Scan(&exists); {
	case errors.Is(err, sql.ErrNoRows):
		return core.NotFound("budget", id)
	case err != nil:
		return mapError(op, "budget", id, err)
	}
	return core.Conflictf("budget %d was modified concurrently, reload and retry", id)
}

// DeleteBudget removes a budget. Linked transactions stay with budget_id cleared.
func (q *Queries) DeleteBudget(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE transactions SET budget_id = NULL WHERE budget_id = $1`, id); err != nil {
		return mapError("unlink budget transactions", "budget", id, err)
	}
	if _, err := q.db.ExecContext(ctx, `DELETE FROM budget_projects WHERE budget_id = $1`, id); err != nil {
		return mapError("delete budget projects", "budget", id, err)
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	return affectedOne(res, err, "delete budget", "budget", id)
}

func (q *Queries) ListBudgets(ctx context.Context, f core.BudgetFilter) ([]core.Budget, int64, error) {
	var w where
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.Search != "" {
		w.search(f.Search, "name", "category", "description")
	}

	var total int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM budgets`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, mapError("count budgets", "", 0, err)
	}

	page := f.PageRequest.Normalize()
	query := `SELECT ` + budgetColumns + ` FROM budgets` + w.String() +
		` ORDER BY start_date DESC, id DESC LIMIT ` + w.next(1) + ` OFFSET ` + w.next(2)
	items, err := q.queryBudgets(ctx, query, append(w.args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListPendingBudgetsStartingBy returns pending budgets whose start date is on or before day.
func (q *Queries) ListPendingBudgetsStartingBy(ctx context.Context, day core.Date) ([]core.Budget, error) {
	return q.queryBudgets(ctx, `SELECT `+budgetColumns+` FROM budgets
		WHERE status = 'pending' AND start_date <= $1 ORDER BY id`, day)
}

// ListBudgetIDs returns every budget id, oldest first.
func (q *Queries) ListBudgetIDs(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM budgets ORDER BY id`)
	if err != nil {
		return nil, mapError("list budget ids", "", 0, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapError("scan budget id", "", 0, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list budget ids", "", 0, err)
	}
	return ids, nil
}

func (q *Queries) queryBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list budgets", "", 0, err)
	}
	items := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			rows.Close()
			return nil, mapError("scan budget", "", 0, err)
		}
		items = append(items, b)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, mapError("list budgets", "", 0, err)
	}

	// Rows must be closed first: sqlite runs on a single connection.
	for i := range items {
		if items[i].ProjectIDs, err = q.budgetProjectIDs(ctx, items[i].ID); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (q *Queries) budgetProjectIDs(ctx context.Context, budgetID int64) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT project_id FROM budget_projects WHERE budget_id = $1 ORDER BY project_id`, budgetID)
	if err != nil {
		return nil, mapError("list budget projects", "budget", budgetID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapError("scan budget project", "budget", budgetID, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list budget projects", "budget", budgetID, err)
	}
	return ids, nil
}

func (q *Queries) setBudgetProjects(ctx context.Context, budgetID int64, projectIDs []int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM budget_projects WHERE budget_id = $1`, budgetID); err != nil {
		return mapError("clear budget projects", "budget", budgetID, err)
	}
	for _, pid := range projectIDs {
		if _, err := q.db.ExecContext(ctx, `INSERT INTO budget_projects (budget_id, project_id) VALUES ($1, $2)`, budgetID, pid); err != nil {
			return mapError("link budget project", "budget", budgetID, err)
		}
	}
	return nil
}
