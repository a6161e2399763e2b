package resolve

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/crosslogic/fieldmap-cli/internal/completion"
	"github.com/crosslogic/fieldmap-cli/internal/model"
	"github.com/crosslogic/fieldmap-cli/internal/resilience"
	"github.com/crosslogic/fieldmap-cli/internal/retrieval"
)

// State names one step of the per-field resolution state machine.
type State string

const (
	StateStart             State = "start"
	StateCustomAttempted   State = "custom_attempted"
	StateStandardAttempted State = "standard_attempted"
	StateMatched           State = "matched"
	StateUnmatched         State = "unmatched"
	StateError             State = "error"
)

// Orchestrator resolves one field at a time: custom priority match first,
// then the scenario/view/mapping path. Port failures with a retryable kind
// get bounded retries before the task settles as error.
type Orchestrator struct {
	custom   *CustomMatcher
	selector *ViewSelector
	mapper   *FieldMapper
	retry    resilience.RetryConfig
}

// NewOrchestrator assembles the pipeline from its stages.
func NewOrchestrator(index retrieval.Port, completer completion.Port, opts Options) *Orchestrator {
	retry := opts.Retry
	retry.ShouldRetry = isRetryable
	return &Orchestrator{
		custom:   NewCustomMatcher(index, opts.CustomThreshold),
		selector: NewViewSelector(index, completer, opts.ScenarioTopN, opts.MaxCandidateViews),
		mapper:   NewFieldMapper(index, completer, opts.StandardThreshold),
		retry:    retry,
	}
}

// Resolve runs the state machine for one field and always produces exactly
// one MatchResult. Failures settle as error-status results, never as a
// returned error.
func (o *Orchestrator) Resolve(ctx context.Context, field model.InterfaceField) model.MatchResult {
	log := zap.L().With(zap.String("field", field.FieldName), zap.Int("row", field.RowIndex))

	// Start -> CustomAttempted
	state := StateCustomAttempted
	custom, err := resilience.DoVal(ctx, o.withLogger("custom"), func(ctx context.Context) (*model.CandidateMatch, error) {
		return o.custom.Match(ctx, field)
	})
	if err != nil {
		return o.errored(field, state, err, log)
	}
	if custom != nil {
		log.Info("resolved via custom index", zap.String("target", custom.Qualifier()), zap.Float64("score", custom.Score))
		return matched(field, custom)
	}

	// CustomAttempted -> StandardAttempted
	state = StateStandardAttempted
	views, err := resilience.DoVal(ctx, o.withLogger("select_views"), func(ctx context.Context) ([]model.ViewCandidate, error) {
		return o.selector.Select(ctx, field)
	})
	if err != nil {
		return o.errored(field, state, err, log)
	}
	if len(views) == 0 {
		log.Info("no candidate views, unmatched")
		return unmatched(field)
	}

	match, err := resilience.DoVal(ctx, o.withLogger("map_fields"), func(ctx context.Context) (*model.CandidateMatch, error) {
		return o.mapper.Map(ctx, field, views)
	})
	if err != nil {
		return o.errored(field, state, err, log)
	}
	if match == nil {
		log.Info("no mapping above threshold, unmatched")
		return unmatched(field)
	}

	log.Info("resolved via standard path", zap.String("target", match.Qualifier()), zap.Float64("score", match.Score))
	return matched(field, match)
}

func (o *Orchestrator) withLogger(operation string) resilience.RetryConfig {
	cfg := o.retry
	cfg.OnRetry = resilience.RetryLogger("resolve", operation)
	return cfg
}

func (o *Orchestrator) errored(field model.InterfaceField, state State, err error, log *zap.Logger) model.MatchResult {
	kind := classifyErr(err)
	log.Warn("field resolution failed",
		zap.String("state", string(state)),
		zap.String("kind", string(kind)),
		zap.Error(err))
	return model.MatchResult{
		Field:     field,
		Status:    model.StatusError,
		ErrKind:   kind,
		ErrDetail: err.Error(),
	}
}

func matched(field model.InterfaceField, match *model.CandidateMatch) model.MatchResult {
	return model.MatchResult{
		Field:   field,
		Match:   match,
		Percent: Percent(match.Score),
		Status:  model.StatusMatched,
	}
}

func unmatched(field model.InterfaceField) model.MatchResult {
	return model.MatchResult{
		Field:  field,
		Status: model.StatusUnmatched,
	}
}

// Percent renders a [0,1] score as a whole percentage.
func Percent(score float64) int {
	return int(math.Round(score * 100))
}

// isRetryable implements the retry policy: transport failures and rate
// limits retry, schema failures and cancellations do not.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if completion.IsSchemaError(err) {
		return false
	}
	return retrieval.IsUnavailable(err) ||
		completion.IsUnavailable(err) ||
		completion.IsRateLimited(err)
}

// classifyErr maps a settled failure onto the result error kinds.
func classifyErr(err error) model.ErrKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return model.ErrTimeout
	case errors.Is(err, context.Canceled):
		return model.ErrCancelled
	case completion.IsSchemaError(err):
		return model.ErrCompletionSchema
	case completion.IsRateLimited(err):
		return model.ErrCompletionRateLimited
	case completion.IsUnavailable(err):
		return model.ErrCompletionUnavailable
	case retrieval.IsUnavailable(err):
		return model.ErrRetrievalUnavailable
	default:
		return model.ErrCompletionUnavailable
	}
}
