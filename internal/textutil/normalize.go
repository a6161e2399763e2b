// Package textutil normalizes workbook text before it is used as a retrieval
// query. Interface definitions frequently mix full-width and half-width
// characters, so everything is folded to NFKC before embedding lookups.
package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalize trims, collapses internal whitespace, folds width variants and
// applies NFKC normalization.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Join(strings.Fields(s), " ")
	s = width.Fold.String(s)
	return norm.NFKC.String(s)
}

// UniqueNormalized normalizes each label and drops empties and duplicates,
// preserving first-seen order.
func UniqueNormalized(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		n := Normalize(label)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// EscapeQuotes doubles single and double quotes so normalized text is safe to
// embed in a quoted SQL literal passed to the vector engine.
func EscapeQuotes(s string) string {
	s = strings.ReplaceAll(s, "'", "''")
	return strings.ReplaceAll(s, `"`, `""`)
}
