package service

import (
	"github.com/jask/orcamento/internal/database/repository"
	"github.com/jask/orcamento/internal/textnorm"
)

// catalogIndex resolves category and subcategory names with Unicode case
// folding. Resolution lives here instead of in SQL because SQLite's collation
// mishandles accented uppercase.
type catalogIndex struct {
	entries []repository.CatalogEntry
}

func newCatalogIndex(entries []repository.CatalogEntry) catalogIndex {
	return catalogIndex{entries: entries}
}

func (c catalogIndex) resolveCategory(name string) *repository.Category {
	if name == "" {
		return nil
	}
	for i := range c.entries {
		if textnorm.EqualFold(c.entries[i].Category.Name, name) {
			return &c.entries[i].Category
		}
	}
	return nil
}

func (c catalogIndex) resolveSubcategory(categoryID, name string) *repository.SubCategory {
	if name == "" {
		return nil
	}
	for i := range c.entries {
		if c.entries[i].Category.ID != categoryID {
			continue
		}
		for j := range c.entries[i].Subcategories {
			if textnorm.EqualFold(c.entries[i].Subcategories[j].Name, name) {
				return &c.entries[i].Subcategories[j]
			}
		}
	}
	return nil
}
