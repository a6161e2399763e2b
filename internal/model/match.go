package model

import "time"

// Provenance identifies which strategy produced a CandidateMatch. Scores are
// comparable within a single provenance tag only.
type Provenance string

const (
	ProvenanceCustom         Provenance = "custom"
	ProvenanceStandardVector Provenance = "standard-vector"
	ProvenanceLLMSelected    Provenance = "llm-selected"
)

// CandidateMatch is one proposed resolution target for an InterfaceField.
type CandidateMatch struct {
	View        string     `json:"view"`
	Field       string     `json:"field"`
	Score       float64    `json:"score"`
	Provenance  Provenance `json:"provenance"`
	Rationale   string     `json:"rationale,omitempty"`
	FieldDesc   string     `json:"field_desc,omitempty"`
	IsKey       bool       `json:"is_key,omitempty"`
	Obligatory  bool       `json:"obligatory,omitempty"`
	DataType    string     `json:"data_type,omitempty"`
	LengthTotal string     `json:"length_total,omitempty"`
	LengthDec   string     `json:"length_dec,omitempty"`
}

// Qualifier returns the canonical "VIEW.FIELD" target identifier used for
// deterministic ordering and verification.
func (c CandidateMatch) Qualifier() string {
	if c.View == "" {
		return c.Field
	}
	return c.View + "." + c.Field
}

// MatchStatus is the terminal status of one field resolution.
type MatchStatus string

const (
	StatusMatched   MatchStatus = "matched"
	StatusUnmatched MatchStatus = "unmatched"
	StatusError     MatchStatus = "error"
)

// ErrKind classifies a failed resolution. Retryable kinds are retried by the
// orchestrator before the task settles as error.
type ErrKind string

const (
	ErrRetrievalUnavailable  ErrKind = "retrieval_unavailable"
	ErrCompletionUnavailable ErrKind = "completion_unavailable"
	ErrCompletionRateLimited ErrKind = "completion_rate_limited"
	ErrCompletionSchema      ErrKind = "completion_schema_invalid"
	ErrTimeout               ErrKind = "timeout"
	ErrCancelled             ErrKind = "cancelled"
)

// MatchResult is the resolved outcome for one InterfaceField. It is created
// exactly once per field per batch run and never mutated.
type MatchResult struct {
	Field     InterfaceField  `json:"field"`
	Match     *CandidateMatch `json:"match,omitempty"`
	Percent   int             `json:"percent"`
	Status    MatchStatus     `json:"status"`
	ErrKind   ErrKind         `json:"err_kind,omitempty"`
	ErrDetail string          `json:"err_detail,omitempty"`
	Verified  *bool           `json:"verified,omitempty"`
}

// BatchStats counts MatchResults by status for one input unit.
type BatchStats struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
	Errored   int `json:"errored"`
}

// BatchOutcome is the full result set for one input unit. Results preserve
// the original extraction order regardless of task completion order.
type BatchOutcome struct {
	Unit    string        `json:"unit"`
	Results []MatchResult `json:"results"`
	Stats   BatchStats    `json:"stats"`
	Elapsed time.Duration `json:"elapsed"`
}

// Success reports whether the batch completed with zero error-status results.
func (o *BatchOutcome) Success() bool {
	return o.Stats.Errored == 0
}

// ScenarioCandidate is an intermediate business-scenario hit from vector
// retrieval, scoped to a single resolution attempt.
type ScenarioCandidate struct {
	ID           string  `json:"id"`
	Scenario     string  `json:"scenario"`
	Description  string  `json:"description"`
	ViewCategory string  `json:"view_category"`
	Score        float64 `json:"score"`
}

// ViewCandidate is a reference schema view proposed for field mapping.
type ViewCandidate struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// ViewField is the field-level detail of a reference view, used as mapping
// context for the Completion Port.
type ViewField struct {
	View        string `json:"view"`
	ViewDesc    string `json:"view_desc"`
	Name        string `json:"name"`
	Desc        string `json:"desc"`
	IsKey       bool   `json:"is_key"`
	DataType    string `json:"data_type"`
	LengthTotal string `json:"length_total"`
	LengthDec   string `json:"length_dec"`
}
