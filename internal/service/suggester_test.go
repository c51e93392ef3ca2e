package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jask/orcamento/internal/database/repository"
	"github.com/jask/orcamento/internal/llm"
)

func newSuggester(db *sql.DB, provider llm.Provider) *SuggesterService {
	return &SuggesterService{
		Transactions: repository.NewTransactionRepo(db),
		Expenses:     repository.NewExpenseRepo(db),
		Suggestions:  repository.NewSuggestionRepo(db),
		Categories:   repository.NewCategoryRepo(db),
		Provider:     provider,
	}
}

func TestGenerateResolvesCatalogNames(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	seedCatalog(t, db)
	acct := mkAccount(t, db, "Nubank")
	tx := mkTransaction(t, db, acct.ID, "T1", "Supermercado Carrefour", "-125.50", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

	provider := &fakeProvider{resp: llm.SuggestResponse{
		Category:    "alimentação",
		Subcategory: "MERCADO",
		Description: "Compras no Carrefour",
	}}
	svc := newSuggester(db, provider)

	sugg, err := svc.Generate(ctx, tx)
	require.NoError(t, err)
	require.NotNil(t, sugg)
	require.Equal(t, repository.SuggestionPending, sugg.Status)
	require.NotNil(t, sugg.CategoryID)
	require.NotNil(t, sugg.SubcategoryID)
	require.NotNil(t, sugg.Description)
	require.Equal(t, "Compras no Carrefour", *sugg.Description)

	// the folded names point at the real catalog rows
	sub, err := svc.Categories.GetSub(ctx, *sugg.SubcategoryID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.Equal(t, "Mercado", sub.Name)
	require.Equal(t, *sugg.CategoryID, sub.CategoryID)
}

func TestGenerateIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	seedCatalog(t, db)
	acct := mkAccount(t, db, "Nubank")
	tx := mkTransaction(t, db, acct.ID, "T1", "Uber Trip", "-20.00", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

	provider := &fakeProvider{resp: llm.SuggestResponse{Category: "Transporte", Subcategory: "Aplicativo", Description: "Corrida"}}
	svc := newSuggester(db, provider)

	first, err := svc.Generate(ctx, tx)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.Generate(ctx, tx)
	require.NoError(t, err)
	require.NotNil(t, second)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, provider.calls)
}

func TestGenerateUnmatchedNamesDegradeToNil(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	seedCatalog(t, db)
	acct := mkAccount(t, db, "Nubank")
	tx := mkTransaction(t, db, acct.ID, "T1", "Loja Obscura", "-10.00", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

	provider := &fakeProvider{resp: llm.SuggestResponse{Category: "Inventada", Subcategory: "Nenhuma", Description: "algo"}}
	svc := newSuggester(db, provider)

	sugg, err := svc.Generate(ctx, tx)
	require.NoError(t, err)
	require.NotNil(t, sugg)
	require.Nil(t, sugg.CategoryID)
	require.Nil(t, sugg.SubcategoryID)
	require.NotNil(t, sugg.Description)
}

func TestGenerateBackendFailureDegrades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	seedCatalog(t, db)
	acct := mkAccount(t, db, "Nubank")
	tx := mkTransaction(t, db, acct.ID, "T1", "memo", "-10.00", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

	provider := &fakeProvider{err: errors.New("connection refused")}
	svc := newSuggester(db, provider)

	sugg, err := svc.Generate(ctx, tx)
	require.NoError(t, err)
	require.Nil(t, sugg)

	stored, err := svc.Suggestions.GetByTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestGenerateBatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	seedCatalog(t, db)
	acct := mkAccount(t, db, "Nubank")
	mkTransaction(t, db, acct.ID, "T1", "Supermercado Pão de Açúcar", "-80.00", time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC))
	mkTransaction(t, db, acct.ID, "T2", "Uber Trip", "-20.00", time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC))

	provider := &fakeProvider{resp: llm.SuggestResponse{Category: "Alimentação", Subcategory: "Mercado", Description: "Compras"}}
	svc := newSuggester(db, provider)

	res, err := svc.GenerateBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, res.Generated)
	require.Equal(t, 0, res.Failed)
	require.Equal(t, 2, provider.calls)

	// re-running skips everything already suggested
	res, err = svc.GenerateBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, res.Generated)
	require.Equal(t, 2, provider.calls)
}

func TestGenerateBatchCountsFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	seedCatalog(t, db)
	acct := mkAccount(t, db, "Nubank")
	mkTransaction(t, db, acct.ID, "T1", "memo", "-10.00", time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC))

	provider := &fakeProvider{err: errors.New("boom")}
	svc := newSuggester(db, provider)

	res, err := svc.GenerateBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, res.Generated)
	require.Equal(t, 1, res.Failed)
}

func TestPromptIncludesSimilarExamples(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	catalog := seedCatalog(t, db)
	acct := mkAccount(t, db, "Nubank")

	// consolidated history: a past Carrefour purchase
	past := mkTransaction(t, db, acct.ID, "OLD1", "Supermercado Carrefour SP", "-90.00", time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC))
	idx := newCatalogIndex(catalog)
	cat := idx.resolveCategory("Alimentação")
	sub := idx.resolveSubcategory(cat.ID, "Mercado")
	require.NoError(t, repository.NewExpenseRepo(db).Insert(ctx, repository.Expense{
		ID:             uuid.NewString(),
		TransactionID:  &past.ID,
		Description:    "Compras do mês",
		SubcategoryID:  &sub.ID,
		ReferenceMonth: repository.MonthStart(past.Date),
	}))

	tx := mkTransaction(t, db, acct.ID, "T1", "Supermercado Carrefour", "-125.50", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

	provider := &fakeProvider{resp: llm.SuggestResponse{Category: "Alimentação", Subcategory: "Mercado", Description: "Compras"}}
	svc := newSuggester(db, provider)

	_, err := svc.Generate(ctx, tx)
	require.NoError(t, err)
	require.Len(t, provider.prompts, 1)
	prompt := provider.prompts[0]
	require.Contains(t, prompt, "Supermercado Carrefour SP")
	require.Contains(t, prompt, "Compras do mês")
	require.Contains(t, prompt, "Alimentação")
	require.Contains(t, prompt, `"category"`)
}

func TestFindSimilarExpenses(t *testing.T) {
	t.Parallel()

	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candidates := []repository.SimilarCandidate{
		{Description: "d1", Memo: "SUPERMERCADO CARREFOUR SP", ReferenceMonth: jan},
		{Description: "d2", Memo: "Supermercado Carrefour SP ", ReferenceMonth: jan},
		{Description: "d3", Memo: "Supermercado Extra", ReferenceMonth: jan},
		{Description: "d4", Memo: "Posto Shell", ReferenceMonth: jan},
		{Description: "d5", Memo: "Mercado Municipal", ReferenceMonth: jan},
	}

	got := findSimilarExpenses("Supermercado Carrefour", candidates, 3)
	require.Len(t, got, 2)
	require.Equal(t, "d1", got[0].Description)
	// d2 is a near-duplicate of d1 and gets suppressed
	require.Equal(t, "d3", got[1].Description)
}

func TestFindSimilarExpensesMatchesOnFirstWords(t *testing.T) {
	t.Parallel()

	dec := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	nov := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	candidates := []repository.SimilarCandidate{
		{Description: "groceries", Memo: "Supermercado Carrefour", ReferenceMonth: dec},
		{Description: "ride", Memo: "Uber", ReferenceMonth: nov},
	}

	got := findSimilarExpenses("Supermercado Pão de Açúcar", candidates, 3)
	require.Len(t, got, 1)
	require.Equal(t, "groceries", got[0].Description)
}

func TestFindSimilarExpensesShortWords(t *testing.T) {
	t.Parallel()

	candidates := []repository.SimilarCandidate{
		{Description: "d1", Memo: "X A something"},
	}
	// both words too short to be meaningful
	require.Empty(t, findSimilarExpenses("X A", candidates, 3))
	require.Empty(t, findSimilarExpenses("", candidates, 3))
}

func TestFindSimilarExpensesAccentFold(t *testing.T) {
	t.Parallel()

	candidates := []repository.SimilarCandidate{
		{Description: "d1", Memo: "padaria PÃO DE AÇÚCAR"},
	}
	got := findSimilarExpenses("Pão de Açúcar", candidates, 3)
	require.Len(t, got, 1)
}
