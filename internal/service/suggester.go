package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"github.com/jask/orcamento/internal/database/repository"
	"github.com/jask/orcamento/internal/llm"
	"github.com/jask/orcamento/internal/logger"
	"github.com/jask/orcamento/internal/textnorm"
)

const (
	similarExpenseLimit = 3
	// minimum word length considered meaningful for similarity search
	minSimilarWordLen = 3
	// memos closer than this (normalized levenshtein) are near-duplicates and
	// add nothing as a second prompt example
	nearDuplicateRatio = 0.25
)

// SuggesterService generates AI categorization suggestions, one per
// transaction. Backend failures degrade to "no suggestion" so batch runs keep
// going.
type SuggesterService struct {
	Transactions *repository.TransactionRepo
	Expenses     *repository.ExpenseRepo
	Suggestions  *repository.SuggestionRepo
	Categories   *repository.CategoryRepo
	Provider     llm.Provider
}

// Generate produces and persists a pending suggestion for tx. If one already
// exists it is returned unchanged. A nil suggestion with a nil error means the
// backend produced nothing usable.
func (s *SuggesterService) Generate(ctx context.Context, tx repository.Transaction) (*repository.Suggestion, error) {
	log := logger.FromContext(ctx)

	existing, err := s.Suggestions.GetByTransaction(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	candidates, err := s.Expenses.ListSimilarCandidates(ctx)
	if err != nil {
		return nil, err
	}
	similar := findSimilarExpenses(tx.Memo, candidates, similarExpenseLimit)

	entries, err := s.Categories.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(tx, similar, entries)

	resp, err := s.Provider.Suggest(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Str("transaction", tx.ID).Msg("no suggestion produced")
		return nil, nil
	}

	// unmatched names degrade to null references, not errors
	idx := newCatalogIndex(entries)
	sugg := repository.Suggestion{
		ID:            uuid.NewString(),
		TransactionID: tx.ID,
		Status:        repository.SuggestionPending,
	}
	if cat := idx.resolveCategory(resp.Category); cat != nil {
		sugg.CategoryID = &cat.ID
		if sub := idx.resolveSubcategory(cat.ID, resp.Subcategory); sub != nil {
			sugg.SubcategoryID = &sub.ID
		}
	}
	if resp.Description != "" {
		desc := resp.Description
		sugg.Description = &desc
	}

	if err := s.Suggestions.Insert(ctx, sugg); err != nil {
		if isUniqueViolation(err) {
			// lost a race with a concurrent run; the stored one wins
			return s.Suggestions.GetByTransaction(ctx, tx.ID)
		}
		return nil, err
	}
	log.Info().Str("transaction", tx.ID).Msg("suggestion generated")
	return &sugg, nil
}

// BatchResult counts per-item outcomes of a suggestion run.
type BatchResult struct {
	Generated int
	Failed    int
}

// GenerateBatch runs Generate over every unconsolidated transaction without a
// suggestion. One failing item never aborts the batch; re-running later is
// safe because Generate skips transactions that already have one.
func (s *SuggesterService) GenerateBatch(ctx context.Context) (BatchResult, error) {
	log := logger.FromContext(ctx)
	res := BatchResult{}

	txs, err := s.Transactions.ListSuggestable(ctx)
	if err != nil {
		return res, err
	}
	for _, tx := range txs {
		sugg, err := s.Generate(ctx, tx)
		if err != nil {
			return res, err
		}
		if sugg == nil {
			res.Failed++
			continue
		}
		res.Generated++
	}
	log.Info().Int("generated", res.Generated).Int("failed", res.Failed).Msg("suggestion batch finished")
	return res, nil
}

// findSimilarExpenses matches consolidated expenses whose transaction memo
// contains one of the meaningful words from the first two words of memo.
// Candidates arrive ordered by most recent reference month. Near-identical
// memos are suppressed so the prompt shows variety.
func findSimilarExpenses(memo string, candidates []repository.SimilarCandidate, limit int) []repository.SimilarCandidate {
	var words []string
	for _, w := range firstWords(memo, 2) {
		if utf8.RuneCountInString(w) >= minSimilarWordLen {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil
	}

	var out []repository.SimilarCandidate
	for _, cand := range candidates {
		if !matchesAnyWord(cand.Memo, words) {
			continue
		}
		if isNearDuplicate(cand.Memo, out) {
			continue
		}
		out = append(out, cand)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func firstWords(s string, n int) []string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return fields
}

func matchesAnyWord(memo string, words []string) bool {
	for _, w := range words {
		if textnorm.ContainsFold(memo, w) {
			return true
		}
	}
	return false
}

func isNearDuplicate(memo string, picked []repository.SimilarCandidate) bool {
	folded := textnorm.Fold(memo)
	for _, p := range picked {
		other := textnorm.Fold(p.Memo)
		longest := len(folded)
		if len(other) > longest {
			longest = len(other)
		}
		if longest == 0 {
			continue
		}
		dist := levenshtein.ComputeDistance(folded, other)
		if float64(dist)/float64(longest) < nearDuplicateRatio {
			return true
		}
	}
	return false
}

// buildPrompt embeds the transaction, past examples and the full catalog, and
// demands a strict JSON answer.
func buildPrompt(tx repository.Transaction, similar []repository.SimilarCandidate, entries []repository.CatalogEntry) string {
	var b strings.Builder

	b.WriteString("Analyze the following bank transaction and suggest a Category, Subcategory and a friendly Description.\n\n")
	b.WriteString("Transaction:\n")
	fmt.Fprintf(&b, "- Memo: %s\n", tx.Memo)
	fmt.Fprintf(&b, "- Amount: %s\n", tx.Amount.StringFixed(2))
	fmt.Fprintf(&b, "- Date: %s\n\n", tx.Date.Format("2006-01-02"))

	if len(similar) > 0 {
		b.WriteString("Examples of similar past transactions:\n")
		for _, ex := range similar {
			fmt.Fprintf(&b, "- Memo: %q -> Category: %q, Subcategory: %q, Description: %q\n",
				ex.Memo, ex.CategoryName, ex.SubcategoryName, ex.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("Available categories:\n")
	for _, entry := range entries {
		subs := make([]string, 0, len(entry.Subcategories))
		for _, sub := range entry.Subcategories {
			subs = append(subs, sub.Name)
		}
		fmt.Fprintf(&b, "- %s: [%s]\n", entry.Category.Name, strings.Join(subs, ", "))
	}

	b.WriteString("\nAnswer ONLY with strict JSON in the following format, without markdown or explanations:\n")
	b.WriteString(`{"category": "Category name", "subcategory": "Subcategory name", "description": "Suggested description"}`)
	b.WriteString("\n")
	return b.String()
}
