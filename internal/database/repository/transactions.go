package repository

import (
	"context"
	"database/sql"
	"time"
)

// TransactionRepo handles imported statement transactions.
type TransactionRepo struct {
	db DBTX
}

func NewTransactionRepo(db DBTX) *TransactionRepo { return &TransactionRepo{db: db} }

func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO transactions(id, external_id, account_id, amount_cents, date, reference_date, memo, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, t.ID, t.ExternalID, t.AccountID, decimalToCents(t.Amount), t.Date, t.ReferenceDate, t.Memo)
	return err
}

func (r *TransactionRepo) Get(ctx context.Context, id string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, external_id, account_id, amount_cents, date, reference_date, memo, created_at FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// ListUnconsolidated returns transactions with no expense attached, oldest first.
func (r *TransactionRepo) ListUnconsolidated(ctx context.Context) ([]Transaction, error) {
	return r.list(ctx, `
	SELECT t.id, t.external_id, t.account_id, t.amount_cents, t.date, t.reference_date, t.memo, t.created_at
	FROM transactions t
	LEFT JOIN expenses e ON e.transaction_id = t.id
	WHERE e.id IS NULL
	ORDER BY t.date ASC, t.created_at ASC`)
}

// ListSuggestable returns unconsolidated transactions that have no suggestion yet.
func (r *TransactionRepo) ListSuggestable(ctx context.Context) ([]Transaction, error) {
	return r.list(ctx, `
	SELECT t.id, t.external_id, t.account_id, t.amount_cents, t.date, t.reference_date, t.memo, t.created_at
	FROM transactions t
	LEFT JOIN expenses e ON e.transaction_id = t.id
	LEFT JOIN suggestions s ON s.transaction_id = t.id
	WHERE e.id IS NULL AND s.id IS NULL
	ORDER BY t.date ASC, t.created_at ASC`)
}

func (r *TransactionRepo) list(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
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

// scanTransaction handles nullable fields for both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var cents int64
	var ref sql.NullTime
	if err := row.Scan(&t.ID, &t.ExternalID, &t.AccountID, &cents, &t.Date, &ref, &t.Memo, &t.CreatedAt); err != nil {
		return Transaction{}, err
	}
	t.Amount = centsToDecimal(cents)
	if ref.Valid {
		refDate := ref.Time
		t.ReferenceDate = &refDate
	}
	return t, nil
}

// MonthStart normalizes a time to the first of its month in UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
