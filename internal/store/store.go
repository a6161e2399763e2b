// Package store persists resolution runs, their results and the dead-letter
// records of fields that settled with an error status.
package store

import (
	"context"
	"time"

	"github.com/crosslogic/fieldmap-cli/internal/model"
)

// RunStatus is the lifecycle state of one workbook resolution run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one persisted workbook resolution.
type Run struct {
	ID        string                     `json:"id"`
	Unit      string                     `json:"unit"`
	Status    RunStatus                  `json:"status"`
	Stats     model.BatchStats           `json:"stats"`
	Usage     map[string]model.TokenUsage `json:"usage,omitempty"`
	CostUSD   float64                    `json:"cost_usd"`
	Elapsed   time.Duration              `json:"elapsed"`
	Detail    string                     `json:"detail,omitempty"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// DeadLetter records one field that ended a run with an error status, kept
// for later re-resolution.
type DeadLetter struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id"`
	FieldID   string        `json:"field_id"`
	FieldName string        `json:"field_name"`
	RowIndex  int           `json:"row_index"`
	ErrKind   model.ErrKind `json:"err_kind"`
	ErrDetail string        `json:"err_detail,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Unit   string    `json:"unit,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// Store defines run persistence.
type Store interface {
	CreateRun(ctx context.Context, unit string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, outcome *model.BatchOutcome, usage map[string]model.TokenUsage, costUSD float64) error
	FailRun(ctx context.Context, runID, detail string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	ListResults(ctx context.Context, runID string) ([]model.MatchResult, error)
	ListDeadLetters(ctx context.Context, limit int) ([]DeadLetter, error)

	Migrate(ctx context.Context) error
	Close() error
}
