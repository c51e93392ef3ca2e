package repository

import (
	"context"
	"database/sql"
)

// SuggestionRepo handles AI categorization suggestions.
type SuggestionRepo struct {
	db DBTX
}

func NewSuggestionRepo(db DBTX) *SuggestionRepo { return &SuggestionRepo{db: db} }

func (r *SuggestionRepo) Insert(ctx context.Context, s Suggestion) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO suggestions(id, transaction_id, category_id, subcategory_id, description, status, created_at)
	VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, s.ID, s.TransactionID, s.CategoryID, s.SubcategoryID, s.Description, s.Status)
	return err
}

func (r *SuggestionRepo) GetByTransaction(ctx context.Context, transactionID string) (*Suggestion, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, transaction_id, category_id, subcategory_id, description, status, created_at FROM suggestions WHERE transaction_id = ?`, transactionID)
	return scanSuggestion(row)
}

func (r *SuggestionRepo) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE suggestions SET status = ? WHERE id = ?`, status, id)
	return err
}

// ListPending returns suggestions awaiting review, oldest transaction first.
func (r *SuggestionRepo) ListPending(ctx context.Context) ([]Suggestion, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT s.id, s.transaction_id, s.category_id, s.subcategory_id, s.description, s.status, s.created_at
	FROM suggestions s
	JOIN transactions t ON t.id = s.transaction_id
	WHERE s.status = ?
	ORDER BY t.date ASC, t.created_at ASC`, SuggestionPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Suggestion
	for rows.Next() {
		s, err := scanSuggestionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSuggestion(row *sql.Row) (*Suggestion, error) {
	s, err := scanSuggestionRows(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func scanSuggestionRows(row scanner) (Suggestion, error) {
	var s Suggestion
	var cat, sub, desc sql.NullString
	if err := row.Scan(&s.ID, &s.TransactionID, &cat, &sub, &desc, &s.Status, &s.CreatedAt); err != nil {
		return Suggestion{}, err
	}
	if cat.Valid {
		s.CategoryID = &cat.String
	}
	if sub.Valid {
		s.SubcategoryID = &sub.String
	}
	if desc.Valid {
		s.Description = &desc.String
	}
	return s, nil
}
