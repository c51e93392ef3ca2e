package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so repositories can run
// standalone or inside a transaction opened with database.WithTx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Account types. Two-valued: bank accounts are debit-like, cards credit-like.
const (
	AccountTypeDebit  = "DEBIT"
	AccountTypeCredit = "CREDIT"
)

// Suggestion statuses.
const (
	SuggestionPending  = "PENDING"
	SuggestionAccepted = "ACCEPTED"
	SuggestionRejected = "REJECTED"
	SuggestionEdited   = "EDITED"
)

// Account represents an account row. Immutable once transactions reference it.
type Account struct {
	ID        string
	Name      string
	Type      string
	CreatedAt time.Time
}

// Category represents a category row.
type Category struct {
	ID   string
	Name string
}

// SubCategory represents a subcategory row, owned by a category.
type SubCategory struct {
	ID         string
	CategoryID string
	Name       string
}

// Transaction represents an imported statement transaction. Rows are created
// only by the importer and never mutated afterwards.
type Transaction struct {
	ID            string
	ExternalID    string
	AccountID     string
	Amount        decimal.Decimal
	Date          time.Time
	ReferenceDate *time.Time
	Memo          string
	CreatedAt     time.Time
}

// Expense represents a consolidated expense. TransactionID is nil for
// manually entered expenses and immutable after creation.
type Expense struct {
	ID             string
	TransactionID  *string
	Description    string
	SubcategoryID  *string
	ReferenceMonth time.Time
	IsIgnored      bool
	CreatedAt      time.Time
}

// Suggestion represents an AI categorization proposal for a transaction.
// Category/subcategory are nil when the model's answer did not match the
// catalog.
type Suggestion struct {
	ID            string
	TransactionID string
	CategoryID    *string
	SubcategoryID *string
	Description   *string
	Status        string
	CreatedAt     time.Time
}

// Amounts are persisted as integer cents; decimals cross the repo boundary.

func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func decimalToCents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}
