package retrieval

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/crosslogic/fieldmap-cli/internal/db"
	"github.com/crosslogic/fieldmap-cli/internal/model"
	"github.com/crosslogic/fieldmap-cli/internal/textutil"
	"github.com/crosslogic/fieldmap-cli/internal/usage"
)

// Embedder turns query text into a vector. Implementations report how many
// tokens the embedding call consumed.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, int64, error)
}

// PostgresIndex implements Port over the pgvector-backed reference database.
type PostgresIndex struct {
	pool     db.Pool
	embedder Embedder
	provider string
	observer usage.Observer
}

// NewPostgresIndex wires an index over an existing pool. The observer may be
// nil; embedding token counts are then discarded.
func NewPostgresIndex(pool db.Pool, embedder Embedder, provider string, observer usage.Observer) *PostgresIndex {
	return &PostgresIndex{pool: pool, embedder: embedder, provider: provider, observer: observer}
}

// similarity queries per index kind. Scores come back in [0,1] via
// 1 - cosine distance; ORDER BY keeps the port's deterministic ordering
// contract inside the database.
var similarityQueries = map[IndexKind]string{
	IndexCustomFields: `SELECT view_name, field_name, description, is_key, obligatory, data_type, length_total, length_dec,
		1 - (embedding <=> $1::vector) AS score
		FROM custom_fields
		ORDER BY score DESC, view_name ASC, field_name ASC
		LIMIT $2`,
	IndexViewFields: `SELECT view_name, field_name, description, is_key, obligatory, data_type, length_total, length_dec,
		1 - (embedding <=> $1::vector) AS score
		FROM view_fields
		ORDER BY score DESC, view_name ASC, field_name ASC
		LIMIT $2`,
}

// SearchSimilar embeds the query text and runs a cosine similarity search.
func (p *PostgresIndex) SearchSimilar(ctx context.Context, query string, kind IndexKind, topK int) ([]model.CandidateMatch, error) {
	sql, ok := similarityQueries[kind]
	if !ok {
		return nil, eris.Errorf("retrieval: no similarity index for kind %q", kind)
	}
	if topK < 1 {
		return nil, eris.New("retrieval: topK must be >= 1")
	}

	vec, err := p.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, sql, vec, topK)
	if err != nil {
		return nil, &UnavailableError{Err: eris.Wrapf(err, "retrieval: similarity search %s", kind)}
	}
	defer rows.Close()

	provenance := model.ProvenanceStandardVector
	if kind == IndexCustomFields {
		provenance = model.ProvenanceCustom
	}

	var out []model.CandidateMatch
	for rows.Next() {
		var m model.CandidateMatch
		if err := rows.Scan(&m.View, &m.Field, &m.FieldDesc, &m.IsKey, &m.Obligatory, &m.DataType, &m.LengthTotal, &m.LengthDec, &m.Score); err != nil {
			return nil, &UnavailableError{Err: eris.Wrap(err, "retrieval: scan candidate")}
		}
		m.Provenance = provenance
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Err: eris.Wrap(err, "retrieval: iterate candidates")}
	}
	return out, nil
}

// LookupExact matches a field name (width-folded, case-insensitive) against
// the custom index. Returns nil when no entry matches.
func (p *PostgresIndex) LookupExact(ctx context.Context, key string, kind IndexKind) (*model.CandidateMatch, error) {
	if kind != IndexCustomFields {
		return nil, eris.Errorf("retrieval: no exact index for kind %q", kind)
	}

	const sql = `SELECT view_name, field_name, description, is_key, obligatory, data_type, length_total, length_dec
		FROM custom_fields
		WHERE lower(field_name) = lower($1)
		ORDER BY view_name ASC
		LIMIT 1`

	var m model.CandidateMatch
	err := p.pool.QueryRow(ctx, sql, textutil.Normalize(key)).Scan(
		&m.View, &m.Field, &m.FieldDesc, &m.IsKey, &m.Obligatory, &m.DataType, &m.LengthTotal, &m.LengthDec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &UnavailableError{Err: eris.Wrap(err, "retrieval: exact lookup")}
	}
	m.Score = 1.0
	m.Provenance = model.ProvenanceCustom
	return &m, nil
}

// SearchScenarios returns the closest business scenarios for the query text.
func (p *PostgresIndex) SearchScenarios(ctx context.Context, query string, topK int) ([]model.ScenarioCandidate, error) {
	if topK < 1 {
		return nil, eris.New("retrieval: topK must be >= 1")
	}

	vec, err := p.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	const sql = `SELECT id, scenario, description, view_category,
		1 - (embedding <=> $1::vector) AS score
		FROM scenarios
		ORDER BY score DESC, scenario ASC
		LIMIT $2`

	rows, err := p.pool.Query(ctx, sql, vec, topK)
	if err != nil {
		return nil, &UnavailableError{Err: eris.Wrap(err, "retrieval: scenario search")}
	}
	defer rows.Close()

	var out []model.ScenarioCandidate
	for rows.Next() {
		var s model.ScenarioCandidate
		if err := rows.Scan(&s.ID, &s.Scenario, &s.Description, &s.ViewCategory, &s.Score); err != nil {
			return nil, &UnavailableError{Err: eris.Wrap(err, "retrieval: scan scenario")}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Err: eris.Wrap(err, "retrieval: iterate scenarios")}
	}
	return out, nil
}

// ViewsByCategory lists views in a scenario's category, alphabetically.
func (p *PostgresIndex) ViewsByCategory(ctx context.Context, category string) ([]model.ViewCandidate, error) {
	const sql = `SELECT name, description FROM views WHERE view_category = $1 ORDER BY name ASC`

	rows, err := p.pool.Query(ctx, sql, category)
	if err != nil {
		return nil, &UnavailableError{Err: eris.Wrapf(err, "retrieval: views for category %s", category)}
	}
	defer rows.Close()

	var out []model.ViewCandidate
	for rows.Next() {
		var v model.ViewCandidate
		if err := rows.Scan(&v.Name, &v.Description); err != nil {
			return nil, &UnavailableError{Err: eris.Wrap(err, "retrieval: scan view")}
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Err: eris.Wrap(err, "retrieval: iterate views")}
	}
	return out, nil
}

// ViewFields lists the standard field catalog for one view.
func (p *PostgresIndex) ViewFields(ctx context.Context, view string) ([]model.ViewField, error) {
	const sql = `SELECT view_name, view_desc, field_name, description, is_key, data_type, length_total, length_dec
		FROM view_fields
		WHERE view_name = $1 AND NOT is_custom
		ORDER BY field_name ASC`

	return p.queryViewFields(ctx, sql, view)
}

// CustomViewFields lists the curated custom-extension field catalog.
func (p *PostgresIndex) CustomViewFields(ctx context.Context) ([]model.ViewField, error) {
	const sql = `SELECT view_name, view_desc, field_name, description, is_key, data_type, length_total, length_dec
		FROM view_fields
		WHERE is_custom
		ORDER BY view_name ASC, field_name ASC`

	return p.queryViewFields(ctx, sql)
}

func (p *PostgresIndex) queryViewFields(ctx context.Context, sql string, args ...any) ([]model.ViewField, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, &UnavailableError{Err: eris.Wrap(err, "retrieval: view fields")}
	}
	defer rows.Close()

	var out []model.ViewField
	for rows.Next() {
		var f model.ViewField
		if err := rows.Scan(&f.View, &f.ViewDesc, &f.Name, &f.Desc, &f.IsKey, &f.DataType, &f.LengthTotal, &f.LengthDec); err != nil {
			return nil, &UnavailableError{Err: eris.Wrap(err, "retrieval: scan view field")}
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Err: eris.Wrap(err, "retrieval: iterate view fields")}
	}
	return out, nil
}

func (p *PostgresIndex) embed(ctx context.Context, text string) (string, error) {
	vec, tokens, err := p.embedder.Embed(ctx, textutil.Normalize(text))
	if err != nil {
		return "", &UnavailableError{Err: eris.Wrap(err, "retrieval: embed query")}
	}
	usage.Notify(p.observer, p.provider, model.TokenUsage{EmbeddingTokens: tokens})
	return vectorLiteral(vec), nil
}

// vectorLiteral renders a float slice in pgvector's input syntax so it can be
// bound as a plain text parameter and cast server-side.
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

var _ Port = (*PostgresIndex)(nil)
