package resolve

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/crosslogic/fieldmap-cli/internal/completion"
	"github.com/crosslogic/fieldmap-cli/internal/model"
	"github.com/crosslogic/fieldmap-cli/internal/retrieval"
	"github.com/crosslogic/fieldmap-cli/internal/textutil"
)

// ViewSelector discovers candidate views for a field: scenario similarity
// search, category fan-out, then LLM narrowing.
type ViewSelector struct {
	index     retrieval.Port
	completer completion.Port
	topN      int
	maxViews  int
}

// NewViewSelector creates the selector. topN bounds the scenario search,
// maxViews caps the candidate list sent to the completion port.
func NewViewSelector(index retrieval.Port, completer completion.Port, topN, maxViews int) *ViewSelector {
	return &ViewSelector{index: index, completer: completer, topN: topN, maxViews: maxViews}
}

// Select returns the views relevant to the field's intent, best first. An
// empty result is valid and means the standard path cannot resolve the field.
func (s *ViewSelector) Select(ctx context.Context, field model.InterfaceField) ([]model.ViewCandidate, error) {
	scenarios, err := s.index.SearchScenarios(ctx, field.ContextString()+" "+field.QueryString(), s.topN)
	if err != nil {
		return nil, err
	}
	if len(scenarios) == 0 {
		return nil, nil
	}

	candidates, err := s.gatherViews(ctx, scenarios)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	candidates = truncateViews(candidates, s.maxViews)

	selections, err := s.completer.SelectViews(ctx, completion.SelectViewsRequest{
		Field:     field,
		Scenarios: scenarios,
		Views:     candidates,
	})
	if err != nil {
		return nil, err
	}

	byName := make(map[string]model.ViewCandidate, len(candidates))
	for _, c := range candidates {
		byName[c.Name] = c
	}

	selected := make([]model.ViewCandidate, 0, len(selections))
	for _, sel := range selections {
		c, ok := byName[sel.Name]
		if !ok {
			// Hallucinated view names are dropped, not failed.
			zap.L().Warn("selected view not in candidate list",
				zap.String("field", field.FieldName),
				zap.String("view", sel.Name))
			continue
		}
		selected = append(selected, c)
	}
	return selected, nil
}

// gatherViews fans out from scenarios to their category views, deduplicating
// by view name and keeping the best scenario score per view. Categories are
// normalized and queried once each, so scenarios sharing a category (or
// differing only in width variants) cost one lookup.
func (s *ViewSelector) gatherViews(ctx context.Context, scenarios []model.ScenarioCandidate) ([]model.ViewCandidate, error) {
	categories := make([]string, 0, len(scenarios))
	catScore := make(map[string]float64, len(scenarios))
	for _, sc := range scenarios {
		categories = append(categories, sc.ViewCategory)
		n := textutil.Normalize(sc.ViewCategory)
		if sc.Score > catScore[n] {
			catScore[n] = sc.Score
		}
	}

	best := make(map[string]model.ViewCandidate)
	for _, cat := range textutil.UniqueNormalized(categories) {
		views, err := s.index.ViewsByCategory(ctx, cat)
		if err != nil {
			return nil, err
		}
		for _, v := range views {
			v.Score = catScore[cat]
			if cur, ok := best[v.Name]; !ok || v.Score > cur.Score {
				best[v.Name] = v
			}
		}
	}

	out := make([]model.ViewCandidate, 0, len(best))
	for _, v := range best {
		out = append(out, v)
	}
	sortViews(out)
	return out, nil
}

// sortViews orders by descending score with a name tie-break, matching the
// deterministic ordering contract of the retrieval port.
func sortViews(vv []model.ViewCandidate) {
	sort.SliceStable(vv, func(i, j int) bool {
		if vv[i].Score != vv[j].Score {
			return vv[i].Score > vv[j].Score
		}
		return vv[i].Name < vv[j].Name
	})
}

// truncateViews bounds prompt cost: keep the top max views after sorting.
func truncateViews(vv []model.ViewCandidate, max int) []model.ViewCandidate {
	if max > 0 && len(vv) > max {
		return vv[:max]
	}
	return vv
}
