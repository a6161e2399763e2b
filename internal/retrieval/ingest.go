package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/crosslogic/fieldmap-cli/internal/db"
	"github.com/crosslogic/fieldmap-cli/internal/model"
	"github.com/crosslogic/fieldmap-cli/internal/textutil"
	"github.com/crosslogic/fieldmap-cli/internal/usage"
)

// CatalogEntry is one row of a reference catalog export destined for the
// custom-field or view-field index.
type CatalogEntry struct {
	View        string
	ViewDesc    string
	Field       string
	Description string
	IsKey       bool
	Obligatory  bool
	DataType    string
	LengthTotal string
	LengthDec   string
	Custom      bool
}

// ScenarioEntry is one row of the scenario catalog export.
type ScenarioEntry struct {
	ID           string
	Scenario     string
	Description  string
	ViewCategory string
}

// ViewEntry is one row of the view catalog export.
type ViewEntry struct {
	Name         string
	Description  string
	ViewCategory string
}

// LoadCustomFields rebuilds the custom-field index from a catalog export,
// embedding each entry's searchable text.
func (p *PostgresIndex) LoadCustomFields(ctx context.Context, entries []CatalogEntry) (int64, error) {
	columns := []string{"view_name", "field_name", "description", "is_key", "obligatory", "data_type", "length_total", "length_dec", "embedding"}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		vec, err := p.embedEntry(ctx, e.Field+" "+e.Description)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{e.View, e.Field, e.Description, e.IsKey, e.Obligatory, e.DataType, e.LengthTotal, e.LengthDec, vec})
	}

	n, err := db.ReplaceAll(ctx, p.pool, "custom_fields", columns, rows)
	if err == nil {
		zap.L().Info("custom-field index rebuilt", zap.Int64("rows", n))
	}
	return n, err
}

// LoadViewFields rebuilds the view-field index. Custom-extension fields are
// flagged so CustomViewFields can serve them separately.
func (p *PostgresIndex) LoadViewFields(ctx context.Context, entries []CatalogEntry) (int64, error) {
	columns := []string{"view_name", "view_desc", "field_name", "description", "is_key", "data_type", "length_total", "length_dec", "is_custom", "embedding"}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		vec, err := p.embedEntry(ctx, e.Field+" "+e.Description)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{e.View, e.ViewDesc, e.Field, e.Description, e.IsKey, e.DataType, e.LengthTotal, e.LengthDec, e.Custom, vec})
	}

	n, err := db.ReplaceAll(ctx, p.pool, "view_fields", columns, rows)
	if err == nil {
		zap.L().Info("view-field index rebuilt", zap.Int64("rows", n))
	}
	return n, err
}

// LoadScenarios rebuilds the scenario index. Categories are stored
// normalized so category lookups fold width and whitespace variants.
func (p *PostgresIndex) LoadScenarios(ctx context.Context, entries []ScenarioEntry) (int64, error) {
	columns := []string{"id", "scenario", "description", "view_category", "embedding"}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		vec, err := p.embedEntry(ctx, e.Scenario+" "+e.Description)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{e.ID, e.Scenario, e.Description, textutil.Normalize(e.ViewCategory), vec})
	}

	n, err := db.ReplaceAll(ctx, p.pool, "scenarios", columns, rows)
	if err == nil {
		zap.L().Info("scenario index rebuilt", zap.Int64("rows", n))
	}
	return n, err
}

// LoadViews rebuilds the view catalog. Views carry no embedding; they are
// reached through their category, never by similarity.
func (p *PostgresIndex) LoadViews(ctx context.Context, entries []ViewEntry) (int64, error) {
	columns := []string{"name", "description", "view_category"}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{e.Name, e.Description, textutil.Normalize(e.ViewCategory)})
	}

	n, err := db.ReplaceAll(ctx, p.pool, "views", columns, rows)
	if err == nil {
		zap.L().Info("view catalog rebuilt", zap.Int64("rows", n))
	}
	return n, err
}

func (p *PostgresIndex) embedEntry(ctx context.Context, text string) (string, error) {
	vec, tokens, err := p.embedder.Embed(ctx, textutil.Normalize(text))
	if err != nil {
		return "", &UnavailableError{Err: err}
	}
	// Index loads funnel through the same observer as query-time embeds.
	usage.Notify(p.observer, p.provider, model.TokenUsage{EmbeddingTokens: tokens})
	return vectorLiteral(vec), nil
}
