package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jask/moneyboard/internal/database"
)

// TransactionFilters defines list filters.
type TransactionFilters struct {
	AccountID     string
	Category      string
	Since         int64 // effective time lower bound, 0 = unbounded
	IncludeHidden bool
}

// TransactionRepo handles transactions.
type TransactionRepo struct {
	db database.DBTX
}

func NewTransactionRepo(db database.DBTX) *TransactionRepo { return &TransactionRepo{db: db} }

const transactionColumns = `id, account_id, posted, amount, description, payee, transacted_at, pending, hidden, category`

// Upsert inserts t or overwrites every aggregator-owned column of an existing
// row. Category and hidden are never touched on conflict. created reports
// whether the id was new.
func (r *TransactionRepo) Upsert(ctx context.Context, t Transaction) (created bool, err error) {
	exists, err := r.Exists(ctx, t.ID)
	if err != nil {
		return false, err
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO transactions(`+transactionColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	ON CONFLICT(id) DO UPDATE SET
	 account_id=excluded.account_id,
	 posted=excluded.posted,
	 amount=excluded.amount,
	 description=excluded.description,
	 payee=excluded.payee,
	 transacted_at=excluded.transacted_at,
	 pending=excluded.pending;
	`, t.ID, t.AccountID, t.Posted, t.Amount, t.Description, t.Payee, t.TransactedAt, t.Pending, CategoryUncategorized)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

func (r *TransactionRepo) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM transactions WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// LatestPosted returns the newest posted timestamp, ok=false on an empty table.
func (r *TransactionRepo) LatestPosted(ctx context.Context) (posted int64, ok bool, err error) {
	var v sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(posted) FROM transactions`).Scan(&v); err != nil {
		return 0, false, err
	}
	return v.Int64, v.Valid, nil
}

// List returns transactions newest first by effective time.
func (r *TransactionRepo) List(ctx context.Context, f TransactionFilters) ([]Transaction, error) {
	var where []string
	var args []interface{}

	if f.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Since > 0 {
		where = append(where, "COALESCE(transacted_at, posted) >= ?")
		args = append(args, f.Since)
	}
	if !f.IncludeHidden {
		where = append(where, "hidden = 0")
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY COALESCE(transacted_at, posted) DESC, id"
	return r.query(ctx, query, args...)
}

func (r *TransactionRepo) Get(ctx context.Context, id string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) SetCategory(ctx context.Context, id, category string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET category = ? WHERE id = ?`, category, id)
	return requireAffected(res, err)
}

func (r *TransactionRepo) SetHidden(ctx context.Context, id string, hidden bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET hidden = ? WHERE id = ?`, hidden, id)
	return requireAffected(res, err)
}

// SetCategoryByPayee recategorizes every transaction sharing payee.
func (r *TransactionRepo) SetCategoryByPayee(ctx context.Context, payee, category string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET category = ? WHERE payee = ?`, category, payee)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *TransactionRepo) CountByPayee(ctx context.Context, payee string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE payee = ?`, payee).Scan(&n)
	return n, err
}

// Uncategorized is the backlog: visible rows still on the default category.
func (r *TransactionRepo) Uncategorized(ctx context.Context) ([]Transaction, error) {
	return r.query(ctx, `SELECT `+transactionColumns+` FROM transactions
	WHERE category = ? AND hidden = 0
	ORDER BY COALESCE(transacted_at, posted) DESC, id`, CategoryUncategorized)
}

func (r *TransactionRepo) CountUncategorized(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE category = ? AND hidden = 0`, CategoryUncategorized).Scan(&n)
	return n, err
}

// Categories returns every distinct category in use, sorted.
func (r *TransactionRepo) Categories(ctx context.Context) ([]string, error) {
	return r.column(ctx, `SELECT DISTINCT category FROM transactions ORDER BY category`)
}

// SchemaCategories lists categories worth describing to a query generator.
func (r *TransactionRepo) SchemaCategories(ctx context.Context) ([]string, error) {
	return r.column(ctx, `SELECT DISTINCT category FROM transactions
	WHERE hidden = 0 AND TRIM(category) <> '' AND category != ?
	ORDER BY category`, CategoryInternalTransfer)
}

// CategoryUsage counts how often each user category has been applied.
type CategoryUsage struct {
	Category string
	Count    int
}

func (r *TransactionRepo) CategoryUsage(ctx context.Context) ([]CategoryUsage, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT category, COUNT(*) AS n FROM transactions
	WHERE category NOT IN (?, ?)
	GROUP BY category
	ORDER BY n DESC, category`, CategoryUncategorized, CategoryInternalTransfer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategoryUsage
	for rows.Next() {
		var u CategoryUsage
		if err := rows.Scan(&u.Category, &u.Count); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// LabelExample pairs a counterparty label with the category a user gave it.
type LabelExample struct {
	Label    string
	Category string
}

// LabelExamples returns distinct (payee or description, category) pairs from
// categorized transactions.
func (r *TransactionRepo) LabelExamples(ctx context.Context) ([]LabelExample, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT DISTINCT COALESCE(NULLIF(payee, ''), description), category FROM transactions
	WHERE category NOT IN (?, ?)`, CategoryUncategorized, CategoryInternalTransfer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LabelExample
	for rows.Next() {
		var e LabelExample
		if err := rows.Scan(&e.Label, &e.Category); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) query(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) column(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// scanTransaction handles nullable fields for both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var payee sql.NullString
	var transacted sql.NullInt64
	if err := row.Scan(&t.ID, &t.AccountID, &t.Posted, &t.Amount, &t.Description, &payee,
		&transacted, &t.Pending, &t.Hidden, &t.Category); err != nil {
		return Transaction{}, err
	}
	if payee.Valid {
		t.Payee = &payee.String
	}
	if transacted.Valid {
		t.TransactedAt = &transacted.Int64
	}
	return t, nil
}
