package completion

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Schema is the provider-neutral response contract: a JSON Schema object
// expressed as a properties map plus required keys. The anthropic adapter
// passes it through as a tool input schema; the gemini adapter converts it to
// a genai response schema.
type Schema struct {
	Properties map[string]any
	Required   []string
}

func selectViewsSchema() Schema {
	return Schema{
		Properties: map[string]any{
			"views": map[string]any{
				"type":        "array",
				"description": "Views relevant to the input field, most relevant first.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":   map[string]any{"type": "string", "description": "View name exactly as listed."},
						"reason": map[string]any{"type": "string", "description": "Short justification."},
					},
					"required": []string{"name"},
				},
			},
		},
		Required: []string{"views"},
	}
}

func mapFieldsSchema() Schema {
	return Schema{
		Properties: map[string]any{
			"matches": map[string]any{
				"type":        "array",
				"description": "Candidate mappings for the input field, best first.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"view":       map[string]any{"type": "string", "description": "View name exactly as listed."},
						"field":      map[string]any{"type": "string", "description": "Field name exactly as listed."},
						"confidence": map[string]any{"type": "string", "description": "Number between 0 and 1, or one of: high, medium, low."},
						"rationale":  map[string]any{"type": "string", "description": "Short justification."},
					},
					"required": []string{"view", "field", "confidence"},
				},
			},
		},
		Required: []string{"matches"},
	}
}

type viewsEnvelope struct {
	Views []ViewSelection `json:"views"`
}

type matchesEnvelope struct {
	Matches []FieldMapping `json:"matches"`
}

// decodeViewSelections validates a selectViews response. An empty list is a
// valid answer; entries without a name are not.
func decodeViewSelections(raw json.RawMessage) ([]ViewSelection, error) {
	var env viewsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, eris.Wrap(err, "completion: decode views")
	}
	if env.Views == nil {
		return nil, eris.New(`completion: missing "views" array`)
	}
	for i, v := range env.Views {
		if v.Name == "" {
			return nil, eris.Errorf("completion: views[%d] has no name", i)
		}
	}
	return env.Views, nil
}

// decodeFieldMappings validates a mapFields response. An empty list is a
// valid answer; entries missing view, field, or confidence are not.
func decodeFieldMappings(raw json.RawMessage) ([]FieldMapping, error) {
	var env matchesEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, eris.Wrap(err, "completion: decode matches")
	}
	if env.Matches == nil {
		return nil, eris.New(`completion: missing "matches" array`)
	}
	for i, m := range env.Matches {
		if m.View == "" || m.Field == "" {
			return nil, eris.Errorf("completion: matches[%d] lacks a view.field target", i)
		}
		if m.Confidence == "" {
			return nil, eris.Errorf("completion: matches[%d] lacks a confidence", i)
		}
	}
	return env.Matches, nil
}
