package storage

import (
	"context"

	"tesoreria/internal/core"
)

func (q *Queries) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	row := q.db.QueryRowContext(ctx, `INSERT INTO projects (name, client_name, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, name, client_name, created_at`, p.Name, p.ClientName, p.CreatedAt)
	var out core.Project
	if err := row.Scan(&out.ID, &out.Name, &out.ClientName, &out.CreatedAt); err != nil {
		return core.Project{}, mapError("create project", "project", 0, err)
	}
	return out, nil
}

func (q *Queries) GetProject(ctx context.Context, id int64) (core.Project, error) {
	row := q.db.QueryRowContext(ctx, `SELECT id, name, client_name, created_at FROM projects WHERE id = $1`, id)
	var p core.Project
	if err := row.Scan(&p.ID, &p.Name, &p.ClientName, &p.CreatedAt); err != nil {
		return core.Project{}, mapError("get project", "project", id, err)
	}
	return p, nil
}

func (q *Queries) ListProjects(ctx context.Context, f core.ProjectFilter) ([]core.Project, int64, error) {
	var w where
	if f.Search != "" {
		w.search(f.Search, "name", "client_name")
	}

	var total int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, mapError("count projects", "", 0, err)
	}

	page := f.PageRequest.Normalize()
	query := `SELECT id, name, client_name, created_at FROM projects` + w.String() +
		` ORDER BY name, id LIMIT ` + w.next(1) + ` OFFSET ` + w.next(2)
	rows, err := q.db.QueryContext(ctx, query, append(w.args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, mapError("list projects", "", 0, err)
	}
	defer rows.Close()

	projects := []core.Project{}
	for rows.Next() {
		var p core.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.ClientName, &p.CreatedAt); err != nil {
			return nil, 0, mapError("scan project", "", 0, err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError("list projects", "", 0, err)
	}
	return projects, total, nil
}

const projectExpenseColumns = `id, project_id, name, category, amount_cents, vendor, payment_method,
	expense_date, description, created_at, updated_at`

func scanProjectExpense(row interface{ Scan(...any) error }) (core.ProjectExpense, error) {
	var e core.ProjectExpense
	err := row.Scan(&e.ID, &e.ProjectID, &e.Name, &e.Category, &e.Amount.Cents, &e.Vendor,
		&e.PaymentMethod, &e.ExpenseDate, &e.Description, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (q *Queries) CreateProjectExpense(ctx context.Context, e core.ProjectExpense) (core.ProjectExpense, error) {
	row := q.db.QueryRowContext(ctx, `INSERT INTO project_expenses (project_id, name, category,
		amount_cents, vendor, payment_method, expense_date, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+projectExpenseColumns,
		e.ProjectID, e.Name, string(e.Category), e.Amount.Cents, e.Vendor, string(e.PaymentMethod),
		e.ExpenseDate, e.Description, e.CreatedAt, e.UpdatedAt)
	created, err := scanProjectExpense(row)
	if err != nil {
		return core.ProjectExpense{}, mapError("create project expense", "project expense", 0, err)
	}
	return created, nil
}

func (q *Queries) UpdateProjectExpense(ctx context.Context, e core.ProjectExpense) (core.ProjectExpense, error) {
	row := q.db.QueryRowContext(ctx, `UPDATE project_expenses SET project_id = $1, name = $2,
		category = $3, amount_cents = $4, vendor = $5, payment_method = $6, expense_date = $7,
		description = $8, updated_at = $9
		WHERE id = $10
		RETURNING `+projectExpenseColumns,
		e.ProjectID, e.Name, string(e.Category), e.Amount.Cents, e.Vendor, string(e.PaymentMethod),
		e.ExpenseDate, e.Description, e.UpdatedAt, e.ID)
	updated, err := scanProjectExpense(row)
	if err != nil {
		return core.ProjectExpense{}, mapError("update project expense", "project expense", e.ID, err)
	}
	return updated, nil
}

func (q *Queries) GetProjectExpense(ctx context.Context, id int64) (core.ProjectExpense, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+projectExpenseColumns+` FROM project_expenses WHERE id = $1`, id)
	e, err := scanProjectExpense(row)
	if err != nil {
		return core.ProjectExpense{}, mapError("get project expense", "project expense", id, err)
	}
	return e, nil
}

func (q *Queries) DeleteProjectExpense(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM project_expenses WHERE id = $1`, id)
	return affectedOne(res, err, "delete project expense", "project expense", id)
}

func (q *Queries) ListProjectExpenses(ctx context.Context, f core.ProjectExpenseFilter) ([]core.ProjectExpense, int64, error) {
	var w where
	if f.ProjectID > 0 {
		w.add("project_id = ?", f.ProjectID)
	}
	if f.Category != "" {
		w.add("category = ?", string(f.Category))
	}
	if f.Search != "" {
		w.search(f.Search, "name", "vendor", "description")
	}

	var total int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM project_expenses`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, mapError("count project expenses", "", 0, err)
	}

	page := f.PageRequest.Normalize()
	query := `SELECT ` + projectExpenseColumns + ` FROM project_expenses` + w.String() +
		` ORDER BY expense_date DESC, id DESC LIMIT ` + w.next(1) + ` OFFSET ` + w.next(2)
	rows, err := q.db.QueryContext(ctx, query, append(w.args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, mapError("list project expenses", "", 0, err)
	}
	defer rows.Close()

	items := []core.ProjectExpense{}
	for rows.Next() {
		e, err := scanProjectExpense(rows)
		if err != nil {
			return nil, 0, mapError("scan project expense", "", 0, err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError("list project expenses", "", 0, err)
	}
	return items, total, nil
}
