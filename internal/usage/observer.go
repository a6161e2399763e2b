// Package usage implements the passive token-usage observer notified after
// every Completion Port call. Observers must never block or fail the
// pipeline; notification errors are logged and swallowed.
package usage

import (
	"sync"

	"go.uber.org/zap"

	"github.com/crosslogic/fieldmap-cli/internal/model"
)

// Observer receives a usage record after each completion call.
type Observer interface {
	Record(provider string, u model.TokenUsage) error
}

// Notify invokes obs with the record, swallowing panics and errors. A nil
// observer is a no-op.
func Notify(obs Observer, provider string, u model.TokenUsage) {
	if obs == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("usage: observer panicked", zap.Any("panic", r))
		}
	}()
	if err := obs.Record(provider, u); err != nil {
		zap.L().Warn("usage: observer error",
			zap.String("provider", provider),
			zap.Error(err),
		)
	}
}

// Recorder is a thread-safe Observer accumulating totals per provider.
type Recorder struct {
	mu         sync.Mutex
	total      model.TokenUsage
	byProvider map[string]model.TokenUsage
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{byProvider: make(map[string]model.TokenUsage)}
}

// Record accumulates a usage record under the given provider.
func (r *Recorder) Record(provider string, u model.TokenUsage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total.Add(u)
	p := r.byProvider[provider]
	p.Add(u)
	r.byProvider[provider] = p
	return nil
}

// Total returns the accumulated usage across all providers.
func (r *Recorder) Total() model.TokenUsage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// ByProvider returns a copy of per-provider totals.
func (r *Recorder) ByProvider() map[string]model.TokenUsage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]model.TokenUsage, len(r.byProvider))
	for k, v := range r.byProvider {
		out[k] = v
	}
	return out
}
