package storage

import (
	"context"
	"database/sql"
	"time"

	"tesoreria/internal/core"
)

const accountColumns = `id, account_name, bank_name, account_number, ifsc_code, branch_name,
	account_type, is_active, description, created_at, updated_at, last_used`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var (
		a        core.Account
		lastUsed sql.NullTime
	)
	err := row.Scan(&a.ID, &a.AccountName, &a.BankName, &a.AccountNumber, &a.IFSCCode,
		&a.BranchName, &a.AccountType, &a.IsActive, &a.Description, &a.CreatedAt, &a.UpdatedAt, &lastUsed)
	if lastUsed.Valid {
		t := lastUsed.Time
		a.LastUsed = &t
	}
	return a, err
}

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	row := q.db.QueryRowContext(ctx, `INSERT INTO accounts (account_name, bank_name, account_number,
		ifsc_code, branch_name, account_type, is_active, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+accountColumns,
		a.AccountName, a.BankName, a.AccountNumber, a.IFSCCode, a.BranchName,
		string(a.AccountType), a.IsActive, a.Description, a.CreatedAt, a.UpdatedAt)
	created, err := scanAccount(row)
	if err != nil {
		return core.Account{}, mapError("create account", "account", 0, err)
	}
	return created, nil
}

func (q *Queries) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	row := q.db.QueryRowContext(ctx, `UPDATE accounts SET account_name = $1, bank_name = $2,
		account_number = $3, ifsc_code = $4, branch_name = $5, account_type = $6, is_active = $7,
		description = $8, updated_at = $9
		WHERE id = $10
		RETURNING `+accountColumns,
		a.AccountName, a.BankName, a.AccountNumber, a.IFSCCode, a.BranchName,
		string(a.AccountType), a.IsActive, a.Description, a.UpdatedAt, a.ID)
	updated, err := scanAccount(row)
	if err != nil {
		return core.Account{}, mapError("update account", "account", a.ID, err)
	}
	return updated, nil
}

func (q *Queries) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if err != nil {
		return core.Account{}, mapError("get account", "account", id, err)
	}
	return a, nil
}

func (q *Queries) ListAccounts(ctx context.Context, f core.AccountFilter) ([]core.Account, int64, error) {
	var w where
	if f.IsActive != nil {
		w.add("is_active = ?", *f.IsActive)
	}

	var total int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, mapError("count accounts", "", 0, err)
	}

	page := f.PageRequest.Normalize()
	query := `SELECT ` + accountColumns + ` FROM accounts` + w.String() +
		` ORDER BY account_name, id LIMIT ` + w.next(1) + ` OFFSET ` + w.next(2)
	rows, err := q.db.QueryContext(ctx, query, append(w.args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, mapError("list accounts", "", 0, err)
	}
	defer rows.Close()

	accounts := []core.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, mapError("scan account", "", 0, err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError("list accounts", "", 0, err)
	}
	return accounts, total, nil
}

// TouchAccount records that money settled into the account at t.
func (q *Queries) TouchAccount(ctx context.Context, id int64, t time.Time) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE accounts SET last_used = $1 WHERE id = $2`, t, id); err != nil {
		return mapError("touch account", "account", id, err)
	}
	return nil
}
