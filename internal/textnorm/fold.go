// Package textnorm provides Unicode-aware case folding for name and memo
// matching. SQLite's lower() only folds ASCII, so accented uppercase letters
// ("ALIMENTAÇÃO") must be normalized at the application layer before any
// case-insensitive comparison.
package textnorm

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns s case-folded for caseless comparison.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// EqualFold reports whether a and b are equal under Unicode case folding.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// ContainsFold reports whether s contains substr under Unicode case folding.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}
