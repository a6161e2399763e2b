// Package retrieval defines the reference-index lookup port and its
// PostgreSQL implementation. The resolver only ever sees the Port interface;
// everything vector- or SQL-shaped stays on this side of the boundary.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/crosslogic/fieldmap-cli/internal/model"
)

// IndexKind selects which reference index an operation targets.
type IndexKind string

const (
	IndexCustomFields IndexKind = "custom_fields"
	IndexScenarios    IndexKind = "scenarios"
	IndexViews        IndexKind = "views"
	IndexViewFields   IndexKind = "view_fields"
)

// Port is the retrieval capability consumed by the resolver. Implementations
// must be safe for concurrent use; an empty result is a valid answer, not an
// error.
type Port interface {
	// SearchSimilar runs a vector similarity search against the given index
	// and returns candidates ordered by descending score, ties broken by
	// qualifier ascending.
	SearchSimilar(ctx context.Context, query string, kind IndexKind, topK int) ([]model.CandidateMatch, error)

	// LookupExact returns the single entry whose key matches exactly, or nil.
	LookupExact(ctx context.Context, key string, kind IndexKind) (*model.CandidateMatch, error)

	// SearchScenarios returns the top scenario candidates for a field query.
	SearchScenarios(ctx context.Context, query string, topK int) ([]model.ScenarioCandidate, error)

	// ViewsByCategory lists the views belonging to a scenario's view category.
	ViewsByCategory(ctx context.Context, category string) ([]model.ViewCandidate, error)

	// ViewFields lists the field catalog of one view.
	ViewFields(ctx context.Context, view string) ([]model.ViewField, error)

	// CustomViewFields lists the curated custom-extension field catalog.
	CustomViewFields(ctx context.Context) ([]model.ViewField, error)
}

// UnavailableError marks a retrieval failure caused by the backing store or
// its transport. These are retryable by the caller.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("retrieval unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err (or anything it wraps) is an
// UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// SortCandidates orders matches by descending score with a deterministic
// tie-break on the view.field qualifier. Stub ports in tests rely on this to
// honor the same ordering contract as the SQL implementation.
func SortCandidates(cc []model.CandidateMatch) {
	sort.SliceStable(cc, func(i, j int) bool {
		if cc[i].Score != cc[j].Score {
			return cc[i].Score > cc[j].Score
		}
		return cc[i].Qualifier() < cc[j].Qualifier()
	})
}
