package service

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for missing referenced records.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrSuggestionNotFound  = errors.New("no suggestion for transaction")
)

// CategoryNotFoundError reports an unresolvable category name. The name is
// echoed back so the caller can re-prompt the user.
type CategoryNotFoundError struct {
	Name string
}

func (e *CategoryNotFoundError) Error() string {
	return fmt.Sprintf("category %q not found", e.Name)
}

// SubcategoryNotFoundError reports a subcategory name that is absent from the
// attempted category, including when it exists under a different one.
type SubcategoryNotFoundError struct {
	Name         string
	CategoryName string
}

func (e *SubcategoryNotFoundError) Error() string {
	return fmt.Sprintf("subcategory %q not found in category %q", e.Name, e.CategoryName)
}

// AlreadyConsolidatedError reports a second consolidation attempt on the same
// transaction. The 1:1 constraint on expenses is the sole guard.
type AlreadyConsolidatedError struct {
	TransactionID string
}

func (e *AlreadyConsolidatedError) Error() string {
	return fmt.Sprintf("transaction %s already consolidated", e.TransactionID)
}

// isUniqueViolation sniffs sqlite unique-constraint failures the same way the
// importer does for duplicate external ids.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE")
}
