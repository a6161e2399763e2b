// Package completion defines the structured-completion port used by the
// resolver for view selection and field mapping, plus the provider adapters
// that implement it.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crosslogic/fieldmap-cli/internal/model"
)

// ViewSelection is one view the model judged relevant to a field's intent.
type ViewSelection struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// FieldMapping is one proposed field mapping. Confidence arrives as the model
// produced it (a number in text form or a qualitative label); normalization
// to the [0,1] scale is the mapper's job, not the port's.
type FieldMapping struct {
	View       string `json:"view"`
	Field      string `json:"field"`
	Confidence string `json:"confidence"`
	Rationale  string `json:"rationale"`
}

// SelectViewsRequest asks the model to narrow candidate views to those
// relevant to the input field.
type SelectViewsRequest struct {
	Field     model.InterfaceField
	Scenarios []model.ScenarioCandidate
	Views     []model.ViewCandidate
}

// MapFieldsRequest asks the model to map the input field onto the candidate
// field catalog.
type MapFieldsRequest struct {
	Field      model.InterfaceField
	Candidates []model.ViewField
}

// Port is the completion capability consumed by the resolver. Implementations
// must be safe for concurrent use. A response failing schema validation is
// retried once internally with a corrective follow-up before surfacing a
// SchemaError.
type Port interface {
	SelectViews(ctx context.Context, req SelectViewsRequest) ([]ViewSelection, error)
	MapFields(ctx context.Context, req MapFieldsRequest) ([]FieldMapping, error)
}

// UnavailableError marks a transport-level completion failure. Retryable.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("completion unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// RateLimitedError signals the provider throttled the call. Retryable with a
// longer backoff floor.
type RateLimitedError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("completion rate limited: %v", e.Err)
}

func (e *RateLimitedError) Unwrap() error { return e.Err }

// SchemaError marks a response that failed schema validation even after the
// corrective retry. Terminal for the task.
type SchemaError struct {
	Err error
	Raw []byte
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("completion schema invalid: %v", e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err wraps an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// IsRateLimited reports whether err wraps a RateLimitedError.
func IsRateLimited(err error) bool {
	var re *RateLimitedError
	return errors.As(err, &re)
}

// IsSchemaError reports whether err wraps a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
