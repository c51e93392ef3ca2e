package llm

import "context"

// Provider is the categorization backend used by the suggestion engine. The
// backend is untrusted and possibly unavailable; callers downgrade every
// failure to "no suggestion".
type Provider interface {
	Suggest(ctx context.Context, prompt string) (SuggestResponse, error)
}

// SuggestResponse is the strict JSON contract the backend must answer with.
// Names are resolved against the catalog by the caller; unmatched names
// degrade to nil references, not errors.
type SuggestResponse struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Description string `json:"description"`
}
