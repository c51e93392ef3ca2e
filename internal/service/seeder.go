package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/jask/orcamento/internal/database"
	"github.com/jask/orcamento/internal/database/repository"
	"github.com/jask/orcamento/internal/logger"
	"github.com/jask/orcamento/internal/textnorm"
)

// SeederService bootstraps the category catalog from a JSON file.
type SeederService struct {
	DB *sql.DB
}

type catalogFileEntry struct {
	Category      string   `json:"category"`
	Subcategories []string `json:"subcategories"`
}

// SeedResult counts catalog rows created by one load. Duplicates are no-ops.
type SeedResult struct {
	Categories    int
	Subcategories int
}

// LoadCatalog reads `{category, subcategories: [...]}` entries from path and
// creates any missing rows. The whole load runs in one transaction.
func (s *SeederService) LoadCatalog(ctx context.Context, path string) (SeedResult, error) {
	log := logger.FromContext(ctx)
	res := SeedResult{}

	raw, err := os.ReadFile(path)
	if err != nil {
		return res, err
	}
	var entries []catalogFileEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return res, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	err = database.WithTx(s.DB, func(dbtx *sql.Tx) error {
		categories := repository.NewCategoryRepo(dbtx)
		existing, err := categories.ListCatalog(ctx)
		if err != nil {
			return err
		}
		idx := newCatalogIndex(existing)

		for _, entry := range entries {
			cat := idx.resolveCategory(entry.Category)
			if cat == nil {
				created := repository.Category{ID: uuid.NewString(), Name: entry.Category}
				if err := categories.Insert(ctx, created); err != nil {
					return err
				}
				cat = &created
				res.Categories++
			}
			subs, err := categories.ListSubs(ctx, cat.ID)
			if err != nil {
				return err
			}
			for _, name := range entry.Subcategories {
				if containsSubName(subs, name) {
					continue
				}
				sub := repository.SubCategory{ID: uuid.NewString(), CategoryID: cat.ID, Name: name}
				if err := categories.InsertSub(ctx, sub); err != nil {
					return err
				}
				subs = append(subs, sub)
				res.Subcategories++
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	log.Info().Str("path", path).Int("categories", res.Categories).
		Int("subcategories", res.Subcategories).Msg("catalog loaded")
	return res, nil
}

func containsSubName(subs []repository.SubCategory, name string) bool {
	for _, s := range subs {
		if textnorm.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}
