package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/orcamento/internal/database"
	"github.com/jask/orcamento/internal/database/repository"
	"github.com/jask/orcamento/internal/llm"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrations(db))
	return db
}

func mkAccount(t *testing.T, db *sql.DB, name string) repository.Account {
	t.Helper()
	a := repository.Account{ID: uuid.NewString(), Name: name, Type: repository.AccountTypeCredit}
	require.NoError(t, repository.NewAccountRepo(db).Insert(context.Background(), a))
	return a
}

func mkTransaction(t *testing.T, db *sql.DB, accountID, externalID, memo, amount string, date time.Time) repository.Transaction {
	t.Helper()
	tx := repository.Transaction{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		AccountID:  accountID,
		Amount:     decimal.RequireFromString(amount),
		Date:       date,
		Memo:       memo,
	}
	require.NoError(t, repository.NewTransactionRepo(db).Insert(context.Background(), tx))
	return tx
}

// seedCatalog creates a small Brazilian-flavored catalog and returns it.
func seedCatalog(t *testing.T, db *sql.DB) []repository.CatalogEntry {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewCategoryRepo(db)
	catalog := map[string][]string{
		"Alimentação": {"Mercado", "Restaurante"},
		"Transporte":  {"Aplicativo", "Combustível"},
		"Saúde":       {"Farmácia"},
	}
	for name, subs := range catalog {
		c := repository.Category{ID: uuid.NewString(), Name: name}
		require.NoError(t, repo.Insert(ctx, c))
		for _, sub := range subs {
			require.NoError(t, repo.InsertSub(ctx, repository.SubCategory{ID: uuid.NewString(), CategoryID: c.ID, Name: sub}))
		}
	}
	entries, err := repo.ListCatalog(ctx)
	require.NoError(t, err)
	return entries
}

// fakeProvider is a canned llm.Provider for suggester tests.
type fakeProvider struct {
	resp    llm.SuggestResponse
	err     error
	calls   int
	prompts []string
}

func (f *fakeProvider) Suggest(_ context.Context, prompt string) (llm.SuggestResponse, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return llm.SuggestResponse{}, f.err
	}
	return f.resp, nil
}
