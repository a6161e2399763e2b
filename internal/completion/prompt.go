package completion

import (
	"fmt"
	"strings"
)

const selectViewsSystem = `You are an SAP integration analyst. Given one interface field and a list of candidate CDS views, pick only the views that could plausibly contain the canonical counterpart of the field. Use the view names exactly as listed. Return an empty list if none fit.`

const mapFieldsSystem = `You are an SAP integration analyst. Given one interface field and a catalog of candidate schema fields, propose the best matching fields. Use view and field names exactly as listed. Confidence is a number between 0 and 1, or one of: high, medium, low. Return an empty list if nothing fits.`

func buildSelectViewsPrompt(req SelectViewsRequest) string {
	var b strings.Builder

	b.WriteString("Interface field:\n")
	b.WriteString(req.Field.QueryString())
	if ctx := req.Field.ContextString(); ctx != "" {
		b.WriteString("\nInterface context: ")
		b.WriteString(ctx)
	}

	if len(req.Scenarios) > 0 {
		b.WriteString("\n\nBusiness scenarios suggested by similarity search:\n")
		for _, s := range req.Scenarios {
			fmt.Fprintf(&b, "- %s: %s\n", s.Scenario, s.Description)
		}
	}

	b.WriteString("\nCandidate views:\n")
	for _, v := range req.Views {
		fmt.Fprintf(&b, "- %s: %s\n", v.Name, v.Description)
	}

	b.WriteString("\nSelect the relevant views.")
	return b.String()
}

func buildMapFieldsPrompt(req MapFieldsRequest) string {
	var b strings.Builder

	b.WriteString("Interface field:\n")
	b.WriteString(req.Field.QueryString())
	if ctx := req.Field.ContextString(); ctx != "" {
		b.WriteString("\nInterface context: ")
		b.WriteString(ctx)
	}

	b.WriteString("\n\nCandidate schema fields:\n")
	for _, f := range req.Candidates {
		fmt.Fprintf(&b, "- %s.%s (%s", f.View, f.Name, f.DataType)
		if f.IsKey {
			b.WriteString(", key")
		}
		b.WriteString("): ")
		b.WriteString(f.Desc)
		b.WriteString("\n")
	}

	b.WriteString("\nPropose the best mappings for the interface field.")
	return b.String()
}

// correctivePrompt appends the validation failure to the original prompt so
// the follow-up attempt can fix its output shape.
func correctivePrompt(original string, validationErr error) string {
	return original + "\n\nYour previous answer did not match the required JSON shape (" +
		validationErr.Error() + "). Answer again, strictly following the schema."
}
