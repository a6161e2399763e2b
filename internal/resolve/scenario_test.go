package resolve

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslogic/fieldmap-cli/internal/completion"
	"github.com/crosslogic/fieldmap-cli/internal/model"
)

func TestSelect_DedupesAcrossScenarios(t *testing.T) {
	index := &stubIndex{
		scenarios: []model.ScenarioCandidate{
			{ID: "s1", Scenario: "SD_SALES", ViewCategory: "SD", Score: 0.8},
			{ID: "s2", Scenario: "SD_DELIVERY", ViewCategory: "SD2", Score: 0.6},
		},
		viewsByCat: map[string][]model.ViewCandidate{
			"SD":  {{Name: "I_SalesOrder"}, {Name: "I_Customer"}},
			"SD2": {{Name: "I_SalesOrder"}, {Name: "I_Delivery"}},
		},
	}
	completer := &stubCompleter{selections: []completion.ViewSelection{
		{Name: "I_SalesOrder"},
		{Name: "I_Delivery"},
	}}
	sel := NewViewSelector(index, completer, 3, 20)

	got, err := sel.Select(context.Background(), field("f1", "SalesOrder"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	// I_SalesOrder keeps the better scenario score.
	assert.Equal(t, "I_SalesOrder", got[0].Name)
	assert.InDelta(t, 0.8, got[0].Score, 1e-9)
	assert.Equal(t, "I_Delivery", got[1].Name)
}

func TestSelect_SharedCategoryQueriedOnce(t *testing.T) {
	index := &stubIndex{
		scenarios: []model.ScenarioCandidate{
			{ID: "s1", Scenario: "SD_SALES", ViewCategory: "SD", Score: 0.8},
			{ID: "s2", Scenario: "SD_DELIVERY", ViewCategory: "ＳＤ", Score: 0.6},
		},
		viewsByCat: map[string][]model.ViewCandidate{
			"SD": {{Name: "I_SalesOrder"}},
		},
	}
	completer := &stubCompleter{selections: []completion.ViewSelection{{Name: "I_SalesOrder"}}}
	sel := NewViewSelector(index, completer, 3, 20)

	got, err := sel.Select(context.Background(), field("f1", "SalesOrder"))
	require.NoError(t, err)
	require.Len(t, got, 1)

	// The full-width variant folds to the same category, one lookup total,
	// and the view keeps the better scenario score.
	assert.Equal(t, 1, index.categoryCalls["SD"])
	assert.InDelta(t, 0.8, got[0].Score, 1e-9)
}

func TestSelect_CapsCandidateListDeterministically(t *testing.T) {
	many := make([]model.ViewCandidate, 30)
	for i := range many {
		many[i] = model.ViewCandidate{Name: fmt.Sprintf("I_View_%02d", i)}
	}
	index := &stubIndex{
		scenarios:  []model.ScenarioCandidate{{ID: "s1", ViewCategory: "SD", Score: 0.9}},
		viewsByCat: map[string][]model.ViewCandidate{"SD": many},
	}
	var sent int
	completer := &recordingCompleter{onSelect: func(req completion.SelectViewsRequest) {
		sent = len(req.Views)
	}}
	sel := NewViewSelector(index, completer, 3, 20)

	_, err := sel.Select(context.Background(), field("f1", "X"))
	require.NoError(t, err)
	assert.Equal(t, 20, sent, "candidate list must be capped before the completion call")
}

func TestSelect_DropsHallucinatedViews(t *testing.T) {
	index := &stubIndex{
		scenarios:  []model.ScenarioCandidate{{ID: "s1", ViewCategory: "SD", Score: 0.9}},
		viewsByCat: map[string][]model.ViewCandidate{"SD": {{Name: "I_SalesOrder"}}},
	}
	completer := &stubCompleter{selections: []completion.ViewSelection{
		{Name: "I_DoesNotExist"},
		{Name: "I_SalesOrder"},
	}}
	sel := NewViewSelector(index, completer, 3, 20)

	got, err := sel.Select(context.Background(), field("f1", "X"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "I_SalesOrder", got[0].Name)
}

func TestSelect_EmptySelectionIsValid(t *testing.T) {
	index := &stubIndex{
		scenarios:  []model.ScenarioCandidate{{ID: "s1", ViewCategory: "SD", Score: 0.9}},
		viewsByCat: map[string][]model.ViewCandidate{"SD": {{Name: "I_SalesOrder"}}},
	}
	completer := &stubCompleter{}
	sel := NewViewSelector(index, completer, 3, 20)

	got, err := sel.Select(context.Background(), field("f1", "X"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

// recordingCompleter inspects requests without producing selections.
type recordingCompleter struct {
	onSelect func(completion.SelectViewsRequest)
}

func (r *recordingCompleter) SelectViews(_ context.Context, req completion.SelectViewsRequest) ([]completion.ViewSelection, error) {
	if r.onSelect != nil {
		r.onSelect(req)
	}
	return nil, nil
}

func (r *recordingCompleter) MapFields(context.Context, completion.MapFieldsRequest) ([]completion.FieldMapping, error) {
	return nil, nil
}
