package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseRepo handles consolidated expenses and read-only reporting queries.
type ExpenseRepo struct {
	db DBTX
}

func NewExpenseRepo(db DBTX) *ExpenseRepo { return &ExpenseRepo{db: db} }

func (r *ExpenseRepo) Insert(ctx context.Context, e Expense) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO expenses(id, transaction_id, description, subcategory_id, reference_month, is_ignored, created_at)
	VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, e.ID, e.TransactionID, e.Description, e.SubcategoryID, e.ReferenceMonth, e.IsIgnored)
	return err
}

// Update edits the mutable fields. The transaction link is immutable after
// creation and deliberately absent from the statement.
func (r *ExpenseRepo) Update(ctx context.Context, e Expense) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE expenses SET description = ?, subcategory_id = ?, reference_month = ?, is_ignored = ?
	WHERE id = ?`, e.Description, e.SubcategoryID, e.ReferenceMonth, e.IsIgnored, e.ID)
	return err
}

func (r *ExpenseRepo) Get(ctx context.Context, id string) (*Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, transaction_id, description, subcategory_id, reference_month, is_ignored, created_at FROM expenses WHERE id = ?`, id)
	return scanExpenseRow(row)
}

func (r *ExpenseRepo) GetByTransaction(ctx context.Context, transactionID string) (*Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, transaction_id, description, subcategory_id, reference_month, is_ignored, created_at FROM expenses WHERE transaction_id = ?`, transactionID)
	return scanExpenseRow(row)
}

func scanExpenseRow(row *sql.Row) (*Expense, error) {
	var e Expense
	var txID, subID sql.NullString
	var ignored int
	if err := row.Scan(&e.ID, &txID, &e.Description, &subID, &e.ReferenceMonth, &ignored, &e.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if txID.Valid {
		e.TransactionID = &txID.String
	}
	if subID.Valid {
		e.SubcategoryID = &subID.String
	}
	e.IsIgnored = ignored != 0
	return &e, nil
}

// SimilarCandidate is an expense joined with its transaction memo and resolved
// category names, used as a prompt example.
type SimilarCandidate struct {
	Description     string
	Memo            string
	CategoryName    string
	SubcategoryName string
	ReferenceMonth  time.Time
}

// ListSimilarCandidates returns every transaction-backed, categorized expense
// ordered by most recent reference month. Word matching against the candidate
// memos is done by the caller with Unicode case folding.
func (r *ExpenseRepo) ListSimilarCandidates(ctx context.Context) ([]SimilarCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT e.description, t.memo, c.name, s.name, e.reference_month
	FROM expenses e
	JOIN transactions t ON t.id = e.transaction_id
	JOIN subcategories s ON s.id = e.subcategory_id
	JOIN categories c ON c.id = s.category_id
	ORDER BY e.reference_month DESC, e.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SimilarCandidate
	for rows.Next() {
		var sc SimilarCandidate
		if err := rows.Scan(&sc.Description, &sc.Memo, &sc.CategoryName, &sc.SubcategoryName, &sc.ReferenceMonth); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// ExpenseFilters narrows reporting queries. Zero values mean no filter.
type ExpenseFilters struct {
	From           time.Time
	To             time.Time // exclusive
	CategoryID     string
	AccountID      string
	IncludeIgnored bool
}

func (f ExpenseFilters) where() (string, []interface{}) {
	where := []string{"1=1"}
	var args []interface{}
	if !f.From.IsZero() {
		where = append(where, "e.reference_month >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "e.reference_month < ?")
		args = append(args, f.To)
	}
	if f.CategoryID != "" {
		where = append(where, "s.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.AccountID != "" {
		where = append(where, "t.account_id = ?")
		args = append(args, f.AccountID)
	}
	if !f.IncludeIgnored {
		where = append(where, "e.is_ignored = 0")
	}
	return strings.Join(where, " AND "), args
}

// ExpenseRow is an expense with its joined transaction and catalog names for
// listings.
type ExpenseRow struct {
	Expense
	Amount          decimal.Decimal
	Memo            string
	AccountName     string
	CategoryName    string
	SubcategoryName string
}

func (r *ExpenseRepo) ListRows(ctx context.Context, f ExpenseFilters) ([]ExpenseRow, error) {
	cond, args := f.where()
	rows, err := r.db.QueryContext(ctx, `
	SELECT e.id, e.transaction_id, e.description, e.subcategory_id, e.reference_month, e.is_ignored, e.created_at,
	       COALESCE(t.amount_cents, 0), COALESCE(t.memo, ''), COALESCE(a.name, ''),
	       COALESCE(c.name, ''), COALESCE(s.name, '')
	FROM expenses e
	LEFT JOIN transactions t ON t.id = e.transaction_id
	LEFT JOIN accounts a ON a.id = t.account_id
	LEFT JOIN subcategories s ON s.id = e.subcategory_id
	LEFT JOIN categories c ON c.id = s.category_id
	WHERE `+cond+`
	ORDER BY e.reference_month DESC, e.created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExpenseRow
	for rows.Next() {
		var er ExpenseRow
		var txID, subID sql.NullString
		var ignored int
		var cents int64
		if err := rows.Scan(&er.ID, &txID, &er.Description, &subID, &er.ReferenceMonth, &ignored, &er.CreatedAt,
			&cents, &er.Memo, &er.AccountName, &er.CategoryName, &er.SubcategoryName); err != nil {
			return nil, err
		}
		if txID.Valid {
			er.TransactionID = &txID.String
		}
		if subID.Valid {
			er.SubcategoryID = &subID.String
		}
		er.IsIgnored = ignored != 0
		er.Amount = centsToDecimal(cents)
		out = append(out, er)
	}
	return out, rows.Err()
}

// GroupBy selects the aggregation axis for SumGrouped.
type GroupBy string

const (
	GroupByCategory    GroupBy = "category"
	GroupBySubcategory GroupBy = "subcategory"
	GroupByAccount     GroupBy = "account"
	GroupByMonth       GroupBy = "month"
)

// Total is a signed sum for one group. Uncategorized groups report an empty key.
type Total struct {
	Key string
	Sum decimal.Decimal
}

// SumGrouped sums transaction amounts of matching expenses, grouped by the
// requested axis. Sums are signed; expenses are stored negative and rendered
// positive by the presentation layer. Manual expenses carry no bank amount and
// do not contribute.
func (r *ExpenseRepo) SumGrouped(ctx context.Context, f ExpenseFilters, by GroupBy) ([]Total, error) {
	var key string
	switch by {
	case GroupByCategory:
		key = "COALESCE(c.name, '')"
	case GroupBySubcategory:
		key = "COALESCE(s.name, '')"
	case GroupByAccount:
		key = "COALESCE(a.name, '')"
	case GroupByMonth:
		key = "strftime('%Y-%m', e.reference_month)"
	default:
		key = "COALESCE(c.name, '')"
	}
	cond, args := f.where()
	rows, err := r.db.QueryContext(ctx, `
	SELECT `+key+` AS grp, SUM(t.amount_cents) AS total
	FROM expenses e
	JOIN transactions t ON t.id = e.transaction_id
	LEFT JOIN accounts a ON a.id = t.account_id
	LEFT JOIN subcategories s ON s.id = e.subcategory_id
	LEFT JOIN categories c ON c.id = s.category_id
	WHERE `+cond+`
	GROUP BY grp
	ORDER BY total ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Total
	for rows.Next() {
		var t Total
		var cents int64
		if err := rows.Scan(&t.Key, &cents); err != nil {
			return nil, err
		}
		t.Sum = centsToDecimal(cents)
		out = append(out, t)
	}
	return out, rows.Err()
}
