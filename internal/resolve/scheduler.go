package resolve

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crosslogic/fieldmap-cli/internal/model"
)

// Scheduler drives the orchestrator concurrently over the fields of one
// input unit. Task failures are isolated: an errored field never cancels its
// siblings, and a BatchOutcome is always produced.
type Scheduler struct {
	orch          *Orchestrator
	concurrency   int
	taskTimeout   time.Duration
	batchDeadline time.Duration
}

// NewScheduler creates a scheduler. Concurrency must be at least 1; task
// timeout and batch deadline of zero disable the respective bound.
func NewScheduler(orch *Orchestrator, concurrency int, taskTimeout, batchDeadline time.Duration) (*Scheduler, error) {
	if concurrency < 1 {
		return nil, eris.Errorf("resolve: concurrency must be >= 1, got %d", concurrency)
	}
	return &Scheduler{
		orch:          orch,
		concurrency:   concurrency,
		taskTimeout:   taskTimeout,
		batchDeadline: batchDeadline,
	}, nil
}

// Run resolves every field of one unit and assembles the BatchOutcome. The
// result list preserves extraction order regardless of completion order.
func (s *Scheduler) Run(ctx context.Context, unit string, fields []model.InterfaceField) (*model.BatchOutcome, error) {
	start := time.Now()
	log := zap.L().With(zap.String("unit", unit), zap.Int("fields", len(fields)))
	log.Info("batch started", zap.Int("concurrency", s.concurrency))

	batchCtx := ctx
	if s.batchDeadline > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, s.batchDeadline)
		defer cancel()
	}

	// Each task writes only its own slot, so no mutex is needed around the
	// result slice.
	results := make([]model.MatchResult, len(fields))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, field := range fields {
		g.Go(func() error {
			// Tasks still queued when the batch deadline passes are recorded
			// as cancelled without being started.
			if batchCtx.Err() != nil {
				results[i] = model.MatchResult{
					Field:     field,
					Status:    model.StatusError,
					ErrKind:   model.ErrCancelled,
					ErrDetail: "batch deadline exceeded before task start",
				}
				return nil
			}

			taskCtx := batchCtx
			if s.taskTimeout > 0 {
				var cancel context.CancelFunc
				taskCtx, cancel = context.WithTimeout(batchCtx, s.taskTimeout)
				defer cancel()
			}

			results[i] = s.orch.Resolve(taskCtx, field)
			return nil
		})
	}

	// Task errors never surface through the group; Wait only synchronizes.
	_ = g.Wait()

	outcome := buildOutcome(unit, results, time.Since(start))
	log.Info("batch finished",
		zap.Int("matched", outcome.Stats.Matched),
		zap.Int("unmatched", outcome.Stats.Unmatched),
		zap.Int("errored", outcome.Stats.Errored),
		zap.Duration("elapsed", outcome.Elapsed))
	return outcome, nil
}
