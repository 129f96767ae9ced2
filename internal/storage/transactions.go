package storage

import (
	"context"
	"database/sql"

	"tesoreria/internal/core"
)

const transactionColumns = `id, type, category, amount_cents, transaction_date, account_id,
	description, status, budget_id, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t         core.Transaction
		accountID sql.NullInt64
		budgetID  sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.Type, &t.Category, &t.Amount.Cents, &t.TransactionDate, &accountID,
		&t.Description, &t.Status, &budgetID, &t.CreatedAt, &t.UpdatedAt)
	t.AccountID = idPtr(accountID)
	t.BudgetID = idPtr(budgetID)
	return t, err
}

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, `INSERT INTO transactions (type, category, amount_cents,
		transaction_date, account_id, description, status, budget_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+transactionColumns,
		string(t.Type), t.Category, t.Amount.Cents, t.TransactionDate, nullableID(t.AccountID),
		t.Description, string(t.Status), nullableID(t.BudgetID), t.CreatedAt, t.UpdatedAt)
	created, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, mapError("create transaction", "transaction", 0, err)
	}
	return created, nil
}

// UpdateTransaction rewrites every writable column. budget_id is never
// changed here: a link is set at spend time and only cleared by budget deletion.
func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, `UPDATE transactions SET type = $1, category = $2,
		amount_cents = $3, transaction_date = $4, account_id = $5, description = $6, status = $7,
		updated_at = $8
		WHERE id = $9
		RETURNING `+transactionColumns,
		string(t.Type), t.Category, t.Amount.Cents, t.TransactionDate, nullableID(t.AccountID),
		t.Description, string(t.Status), t.UpdatedAt, t.ID)
	updated, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, mapError("update transaction", "transaction", t.ID, err)
	}
	return updated, nil
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, mapError("get transaction", "transaction", id, err)
	}
	return t, nil
}

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	return affectedOne(res, err, "delete transaction", "transaction", id)
}

func (q *Queries) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, int64, error) {
	var w where
	if f.Type != "" {
		w.add("type = ?", string(f.Type))
	}
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.Search != "" {
		w.search(f.Search, "category", "description")
	}

	var total int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, mapError("count transactions", "", 0, err)
	}

	page := f.PageRequest.Normalize()
	query := `SELECT ` + transactionColumns + ` FROM transactions` + w.String() +
		` ORDER BY transaction_date DESC, id DESC LIMIT ` + w.next(1) + ` OFFSET ` + w.next(2)
	rows, err := q.db.QueryContext(ctx, query, append(w.args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, mapError("list transactions", "", 0, err)
	}
	defer rows.Close()

	items := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, mapError("scan transaction", "", 0, err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError("list transactions", "", 0, err)
	}
	return items, total, nil
}

// SumBudgetTransactions totals the non-failed transactions linked to a budget.
func (q *Queries) SumBudgetTransactions(ctx context.Context, budgetID int64) (core.Money, error) {
	var cents int64
	err := q.db.QueryRowContext(ctx, `SELECT CAST(COALESCE(SUM(amount_cents), 0) AS BIGINT)
		FROM transactions WHERE budget_id = $1 AND status <> 'failed'`, budgetID).Scan(&cents)
	if err != nil {
		return core.Money{}, mapError("sum budget transactions", "budget", budgetID, err)
	}
	return core.Cents(cents), nil
}

// CountTransactions is used by readiness checks and tests.
func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, mapError("count transactions", "", 0, err)
	}
	return n, nil
}

func affectedOne(res sql.Result, err error, op, entity string, id int64) error {
	if err != nil {
		return mapError(op, entity, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, entity, id, err)
	}
	if n == 0 {
		return core.NotFound(entity, id)
	}
	return nil
}
