package resolve

import (
	"context"

	"go.uber.org/zap"

	"github.com/crosslogic/fieldmap-cli/internal/model"
	"github.com/crosslogic/fieldmap-cli/internal/retrieval"
)

// CustomMatcher attempts the priority short-circuit against the curated
// custom-field index. An accepted match skips the standard path entirely,
// which is what keeps near-exact custom mappings away from the LLM.
type CustomMatcher struct {
	index     retrieval.Port
	threshold float64
}

// NewCustomMatcher creates the matcher with the acceptance threshold.
func NewCustomMatcher(index retrieval.Port, threshold float64) *CustomMatcher {
	return &CustomMatcher{index: index, threshold: threshold}
}

// Match returns an accepted custom match or nil when the field should fall
// through to the standard path. A miss is not an error.
func (m *CustomMatcher) Match(ctx context.Context, field model.InterfaceField) (*model.CandidateMatch, error) {
	if exact, err := m.index.LookupExact(ctx, field.FieldName, retrieval.IndexCustomFields); err != nil {
		return nil, err
	} else if exact != nil {
		zap.L().Debug("custom exact hit",
			zap.String("field", field.FieldName),
			zap.String("target", exact.Qualifier()))
		return exact, nil
	}

	candidates, err := m.index.SearchSimilar(ctx, field.QueryString(), retrieval.IndexCustomFields, 1)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	top := candidates[0]
	if top.Score < m.threshold {
		zap.L().Debug("custom candidate below threshold",
			zap.String("field", field.FieldName),
			zap.String("target", top.Qualifier()),
			zap.Float64("score", top.Score),
			zap.Float64("threshold", m.threshold))
		return nil, nil
	}

	top.Provenance = model.ProvenanceCustom
	return &top, nil
}
