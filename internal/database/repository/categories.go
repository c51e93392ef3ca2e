package repository

import (
	"context"
	"database/sql"
)

// CatalogEntry pairs a category with its subcategories.
type CatalogEntry struct {
	Category      Category
	Subcategories []SubCategory
}

// CategoryRepo handles categories and their subcategories.
type CategoryRepo struct {
	db DBTX
}

func NewCategoryRepo(db DBTX) *CategoryRepo { return &CategoryRepo{db: db} }

func (r *CategoryRepo) Insert(ctx context.Context, c Category) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO categories(id, name) VALUES(?, ?)`, c.ID, c.Name)
	return err
}

func (r *CategoryRepo) InsertSub(ctx context.Context, s SubCategory) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO subcategories(id, category_id, name) VALUES(?, ?, ?)`, s.ID, s.CategoryID, s.Name)
	return err
}

func (r *CategoryRepo) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CategoryRepo) ListSubs(ctx context.Context, categoryID string) ([]SubCategory, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, category_id, name FROM subcategories WHERE category_id = ? ORDER BY name`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SubCategory
	for rows.Next() {
		var s SubCategory
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListCatalog returns every category with its subcategories, ordered by name.
// Name resolution happens in the service layer where Unicode case folding is
// applied; SQLite's NOCASE collation mishandles accented uppercase.
func (r *CategoryRepo) ListCatalog(ctx context.Context) ([]CatalogEntry, error) {
	cats, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, category_id, name FROM subcategories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subsByCat := make(map[string][]SubCategory)
	for rows.Next() {
		var s SubCategory
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name); err != nil {
			return nil, err
		}
		subsByCat[s.CategoryID] = append(subsByCat[s.CategoryID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]CatalogEntry, 0, len(cats))
	for _, c := range cats {
		out = append(out, CatalogEntry{Category: c, Subcategories: subsByCat[c.ID]})
	}
	return out, nil
}

func (r *CategoryRepo) GetSub(ctx context.Context, id string) (*SubCategory, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, category_id, name FROM subcategories WHERE id = ?`, id)
	var s SubCategory
	if err := row.Scan(&s.ID, &s.CategoryID, &s.Name); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
