package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslogic/fieldmap-cli/internal/completion"
	"github.com/crosslogic/fieldmap-cli/internal/model"
)

func TestMap_MergesCustomCatalog(t *testing.T) {
	index := &stubIndex{
		viewFields: map[string][]model.ViewField{
			"I_SalesOrder": {{View: "I_SalesOrder", Name: "SalesOrder", DataType: "CHAR"}},
		},
		customFields: []model.ViewField{
			{View: "ZCUSTOM", Name: "ZZREF", Desc: "Custom reference", DataType: "CHAR"},
		},
	}
	completer := &stubCompleter{mappings: []completion.FieldMapping{
		{View: "ZCUSTOM", Field: "ZZREF", Confidence: "high", Rationale: "custom ext"},
	}}
	m := NewFieldMapper(index, completer, 0.5)

	got, err := m.Map(context.Background(), field("f1", "ZZ_Ref"), []model.ViewCandidate{{Name: "I_SalesOrder"}})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ZCUSTOM.ZZREF", got.Qualifier())
	assert.Equal(t, model.ProvenanceLLMSelected, got.Provenance)
	assert.InDelta(t, 0.9, got.Score, 1e-9)
}

func TestMap_NoCandidatesIsUnmatched(t *testing.T) {
	index := &stubIndex{}
	completer := standardCompleter("high")
	m := NewFieldMapper(index, completer, 0.5)

	got, err := m.Map(context.Background(), field("f1", "X"), []model.ViewCandidate{{Name: "I_Empty"}})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, completer.totalCalls(), "no candidates means no completion call")
}

func TestMap_DropsUnknownTargetsAndBadConfidence(t *testing.T) {
	index := &stubIndex{
		viewFields: map[string][]model.ViewField{
			"I_SalesOrder": {
				{View: "I_SalesOrder", Name: "SalesOrder"},
				{View: "I_SalesOrder", Name: "SoldToParty"},
			},
		},
	}
	completer := &stubCompleter{mappings: []completion.FieldMapping{
		{View: "I_Invented", Field: "Nope", Confidence: "high"},
		{View: "I_SalesOrder", Field: "SalesOrder", Confidence: "certainly"},
		{View: "I_SalesOrder", Field: "SoldToParty", Confidence: "0.7"},
	}}
	m := NewFieldMapper(index, completer, 0.5)

	got, err := m.Map(context.Background(), field("f1", "Customer"), []model.ViewCandidate{{Name: "I_SalesOrder"}})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "I_SalesOrder.SoldToParty", got.Qualifier())
}

func TestMap_TieBrokenByQualifier(t *testing.T) {
	index := &stubIndex{
		viewFields: map[string][]model.ViewField{
			"I_A": {{View: "I_A", Name: "F"}},
			"I_B": {{View: "I_B", Name: "F"}},
		},
	}
	completer := &stubCompleter{mappings: []completion.FieldMapping{
		{View: "I_B", Field: "F", Confidence: "0.8"},
		{View: "I_A", Field: "F", Confidence: "0.8"},
	}}
	m := NewFieldMapper(index, completer, 0.5)

	got, err := m.Map(context.Background(), field("f1", "X"), []model.ViewCandidate{{Name: "I_A"}, {Name: "I_B"}})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "I_A.F", got.Qualifier())
}
