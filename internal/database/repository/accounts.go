package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jask/moneyboard/internal/database"
)

// ErrNotFound is returned when an update targets a row that does not exist.
var ErrNotFound = errors.New("not found")

// AccountRepo handles accounts.
type AccountRepo struct {
	db database.DBTX
}

func NewAccountRepo(db database.DBTX) *AccountRepo {
	return &AccountRepo{db: db}
}

// Upsert inserts an account or refreshes the aggregator-owned columns. Name and
// type belong to the user once the row exists.
func (r *AccountRepo) Upsert(ctx context.Context, a Account) error {
	typ := a.Type
	if typ == "" {
		typ = AccountTypeUncategorized
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO accounts(id, name, currency, balance, balance_date, type)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 currency=excluded.currency,
	 balance=excluded.balance,
	 balance_date=excluded.balance_date;
	`, a.ID, a.Name, a.Currency, a.Balance, a.BalanceDate, typ)
	return err
}

func (r *AccountRepo) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, currency, balance, balance_date, type FROM accounts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Currency, &a.Balance, &a.BalanceDate, &a.Type); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepo) Get(ctx context.Context, id string) (*Account, error) {
	var a Account
	err := r.db.QueryRowContext(ctx, `SELECT id, name, currency, balance, balance_date, type FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Currency, &a.Balance, &a.BalanceDate, &a.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Rename(ctx context.Context, id, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET name = ? WHERE id = ?`, name, id)
	return requireAffected(res, err)
}

func (r *AccountRepo) SetType(ctx context.Context, id, typ string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET type = ? WHERE id = ?`, typ, id)
	return requireAffected(res, err)
}

func requireAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
