package resolve

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/crosslogic/fieldmap-cli/internal/completion"
	"github.com/crosslogic/fieldmap-cli/internal/model"
	"github.com/crosslogic/fieldmap-cli/internal/retrieval"
)

// Qualitative confidence labels normalized onto the [0,1] scale. Fixed so
// aggregation stays deterministic across providers.
const (
	scoreHigh   = 0.9
	scoreMedium = 0.6
	scoreLow    = 0.3
)

// FieldMapper runs the standard-path mapping: gather field catalogs for the
// selected views, ask the completion port for mappings, normalize and pick
// the best one.
type FieldMapper struct {
	index     retrieval.Port
	completer completion.Port
	threshold float64
}

// NewFieldMapper creates the mapper with the standard acceptance threshold.
func NewFieldMapper(index retrieval.Port, completer completion.Port, threshold float64) *FieldMapper {
	return &FieldMapper{index: index, completer: completer, threshold: threshold}
}

// Map returns the best accepted mapping or nil for unmatched. A score below
// the threshold is unmatched, not an error.
func (m *FieldMapper) Map(ctx context.Context, field model.InterfaceField, views []model.ViewCandidate) (*model.CandidateMatch, error) {
	candidates, err := m.gatherCandidates(ctx, views)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	mappings, err := m.completer.MapFields(ctx, completion.MapFieldsRequest{
		Field:      field,
		Candidates: candidates,
	})
	if err != nil {
		return nil, err
	}

	best := pickBest(field, mappings, candidates)
	if best == nil || best.Score < m.threshold {
		if best != nil {
			zap.L().Debug("mapping below threshold",
				zap.String("field", field.FieldName),
				zap.String("target", best.Qualifier()),
				zap.Float64("score", best.Score),
				zap.Float64("threshold", m.threshold))
		}
		return nil, nil
	}
	return best, nil
}

// gatherCandidates collects field detail for the selected views and merges
// the custom-extension catalog so custom fields stay visible to the mapping
// prompt even on the standard path.
func (m *FieldMapper) gatherCandidates(ctx context.Context, views []model.ViewCandidate) ([]model.ViewField, error) {
	seen := make(map[string]bool)
	var out []model.ViewField

	add := func(ff []model.ViewField) {
		for _, f := range ff {
			key := f.View + "." + f.Name
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, f)
		}
	}

	for _, v := range views {
		ff, err := m.index.ViewFields(ctx, v.Name)
		if err != nil {
			return nil, err
		}
		add(ff)
	}

	custom, err := m.index.CustomViewFields(ctx)
	if err != nil {
		return nil, err
	}
	add(custom)

	return out, nil
}

// pickBest normalizes mapping confidences and returns the highest-scoring
// candidate, ties broken by qualifier ascending. Mappings naming targets
// outside the candidate list or carrying unparseable confidence are dropped.
func pickBest(field model.InterfaceField, mappings []completion.FieldMapping, candidates []model.ViewField) *model.CandidateMatch {
	byKey := make(map[string]model.ViewField, len(candidates))
	for _, c := range candidates {
		byKey[c.View+"."+c.Name] = c
	}

	var matches []model.CandidateMatch
	for _, mp := range mappings {
		vf, ok := byKey[mp.View+"."+mp.Field]
		if !ok {
			zap.L().Warn("mapped target not in candidate list",
				zap.String("field", field.FieldName),
				zap.String("target", mp.View+"."+mp.Field))
			continue
		}
		score, ok := NormalizeConfidence(mp.Confidence)
		if !ok {
			zap.L().Warn("unparseable mapping confidence",
				zap.String("field", field.FieldName),
				zap.String("confidence", mp.Confidence))
			continue
		}
		matches = append(matches, model.CandidateMatch{
			View:        vf.View,
			Field:       vf.Name,
			Score:       score,
			Provenance:  model.ProvenanceLLMSelected,
			Rationale:   mp.Rationale,
			FieldDesc:   vf.Desc,
			IsKey:       vf.IsKey,
			DataType:    vf.DataType,
			LengthTotal: vf.LengthTotal,
			LengthDec:   vf.LengthDec,
		})
	}
	if len(matches) == 0 {
		return nil
	}

	retrieval.SortCandidates(matches)
	return &matches[0]
}

// NormalizeConfidence maps a model-produced confidence onto [0,1]. Accepts a
// numeric string or one of the qualitative labels.
func NormalizeConfidence(raw string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return scoreHigh, true
	case "medium", "mid":
		return scoreMedium, true
	case "low":
		return scoreLow, true
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 || v > 1 {
		return 0, false
	}
	return v, true
}
