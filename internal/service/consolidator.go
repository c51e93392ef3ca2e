package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/jask/orcamento/internal/database"
	"github.com/jask/orcamento/internal/database/repository"
	"github.com/jask/orcamento/internal/logger"
)

// ConsolidatorService turns transactions into expenses. It is the only state
// transition authority: an expense is created at most once per transaction,
// guarded solely by the UNIQUE constraint on expenses.transaction_id.
type ConsolidatorService struct {
	DB           *sql.DB
	Transactions *repository.TransactionRepo
	Expenses     *repository.ExpenseRepo
	Suggestions  *repository.SuggestionRepo
	Categories   *repository.CategoryRepo
}

// Consolidate creates the expense bound to the transaction. Category and
// subcategory names are resolved case-insensitively (accent-safe); a
// subcategory living under a different category is rejected, not coerced.
// The edited flag is supplied by the caller when any field diverges from the
// suggested values.
func (s *ConsolidatorService) Consolidate(ctx context.Context, transactionID, categoryName, subcategoryName, description string, referenceMonth time.Time, edited bool) (*repository.Expense, error) {
	log := logger.FromContext(ctx)

	tx, err := s.Transactions.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}

	if existing, err := s.Expenses.GetByTransaction(ctx, transactionID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, &AlreadyConsolidatedError{TransactionID: transactionID}
	}

	entries, err := s.Categories.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}
	idx := newCatalogIndex(entries)

	cat := idx.resolveCategory(categoryName)
	if cat == nil {
		return nil, &CategoryNotFoundError{Name: categoryName}
	}
	sub := idx.resolveSubcategory(cat.ID, subcategoryName)
	if sub == nil {
		return nil, &SubcategoryNotFoundError{Name: subcategoryName, CategoryName: cat.Name}
	}

	expense := repository.Expense{
		ID:             uuid.NewString(),
		TransactionID:  &tx.ID,
		Description:    description,
		SubcategoryID:  &sub.ID,
		ReferenceMonth: repository.MonthStart(referenceMonth),
		IsIgnored:      false,
	}

	err = database.WithTx(s.DB, func(dbtx *sql.Tx) error {
		expenses := repository.NewExpenseRepo(dbtx)
		suggestions := repository.NewSuggestionRepo(dbtx)

		if err := expenses.Insert(ctx, expense); err != nil {
			return err
		}
		sugg, err := suggestions.GetByTransaction(ctx, tx.ID)
		if err != nil {
			return err
		}
		if sugg != nil {
			status := repository.SuggestionAccepted
			if edited {
				status = repository.SuggestionEdited
			}
			return suggestions.UpdateStatus(ctx, sugg.ID, status)
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			// two concurrent attempts; the constraint decides the winner
			return nil, &AlreadyConsolidatedError{TransactionID: transactionID}
		}
		return nil, err
	}

	log.Info().Str("transaction", tx.ID).Str("expense", expense.ID).Msg("transaction consolidated")
	return &expense, nil
}

// ConsolidateAllPending is the degenerate bulk fallback: every unconsolidated
// transaction becomes an uncategorized expense using the raw memo as
// description. Not the primary path.
func (s *ConsolidatorService) ConsolidateAllPending(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	txs, err := s.Transactions.ListUnconsolidated(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, tx := range txs {
		ref := tx.Date
		if tx.ReferenceDate != nil {
			ref = *tx.ReferenceDate
		}
		expense := repository.Expense{
			ID:             uuid.NewString(),
			TransactionID:  &tx.ID,
			Description:    tx.Memo,
			ReferenceMonth: repository.MonthStart(ref),
		}
		if err := s.Expenses.Insert(ctx, expense); err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return count, err
		}
		count++
	}
	log.Info().Int("consolidated", count).Msg("bulk consolidation finished")
	return count, nil
}

// Reject marks the transaction's suggestion as rejected without consolidating.
func (s *ConsolidatorService) Reject(ctx context.Context, transactionID string) error {
	sugg, err := s.Suggestions.GetByTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if sugg == nil {
		return ErrSuggestionNotFound
	}
	return s.Suggestions.UpdateStatus(ctx, sugg.ID, repository.SuggestionRejected)
}

// ListPending returns transactions still awaiting consolidation, oldest first.
func (s *ConsolidatorService) ListPending(ctx context.Context) ([]repository.Transaction, error) {
	return s.Transactions.ListUnconsolidated(ctx)
}
