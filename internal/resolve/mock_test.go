package resolve

import (
	"context"
	"sync"
	"time"

	"github.com/crosslogic/fieldmap-cli/internal/completion"
	"github.com/crosslogic/fieldmap-cli/internal/model"
	"github.com/crosslogic/fieldmap-cli/internal/retrieval"
)

// sleepCtx waits for d honoring cancellation, so stub latency interacts with
// task timeouts the way a real port call would.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// stubIndex is a deterministic in-memory retrieval port.
type stubIndex struct {
	mu sync.Mutex

	exact        map[string]*model.CandidateMatch
	similar      map[retrieval.IndexKind][]model.CandidateMatch
	scenarios    []model.ScenarioCandidate
	viewsByCat   map[string][]model.ViewCandidate
	viewFields   map[string][]model.ViewField
	customFields []model.ViewField

	searchErr error
	delay     time.Duration

	searchCalls   int
	scenarioCalls int
	categoryCalls map[string]int
}

func (s *stubIndex) SearchSimilar(ctx context.Context, _ string, kind retrieval.IndexKind, topK int) ([]model.CandidateMatch, error) {
	s.mu.Lock()
	s.searchCalls++
	s.mu.Unlock()
	if err := sleepCtx(ctx, s.delay); err != nil {
		return nil, err
	}
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	cc := append([]model.CandidateMatch(nil), s.similar[kind]...)
	retrieval.SortCandidates(cc)
	if len(cc) > topK {
		cc = cc[:topK]
	}
	return cc, nil
}

func (s *stubIndex) LookupExact(ctx context.Context, key string, _ retrieval.IndexKind) (*model.CandidateMatch, error) {
	if err := sleepCtx(ctx, s.delay); err != nil {
		return nil, err
	}
	if m, ok := s.exact[key]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (s *stubIndex) SearchScenarios(ctx context.Context, _ string, topK int) ([]model.ScenarioCandidate, error) {
	s.mu.Lock()
	s.scenarioCalls++
	s.mu.Unlock()
	if err := sleepCtx(ctx, s.delay); err != nil {
		return nil, err
	}
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	out := append([]model.ScenarioCandidate(nil), s.scenarios...)
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *stubIndex) ViewsByCategory(ctx context.Context, category string) ([]model.ViewCandidate, error) {
	s.mu.Lock()
	if s.categoryCalls == nil {
		s.categoryCalls = make(map[string]int)
	}
	s.categoryCalls[category]++
	s.mu.Unlock()
	if err := sleepCtx(ctx, s.delay); err != nil {
		return nil, err
	}
	return append([]model.ViewCandidate(nil), s.viewsByCat[category]...), nil
}

func (s *stubIndex) ViewFields(ctx context.Context, view string) ([]model.ViewField, error) {
	if err := sleepCtx(ctx, s.delay); err != nil {
		return nil, err
	}
	return append([]model.ViewField(nil), s.viewFields[view]...), nil
}

func (s *stubIndex) CustomViewFields(ctx context.Context) ([]model.ViewField, error) {
	if err := sleepCtx(ctx, s.delay); err != nil {
		return nil, err
	}
	return append([]model.ViewField(nil), s.customFields...), nil
}

// stubCompleter is a deterministic in-memory completion port with
// concurrency instrumentation and a scripted error queue.
type stubCompleter struct {
	mu sync.Mutex

	selections []completion.ViewSelection
	mappings   []completion.FieldMapping

	// errQueue is consumed one error per call across both operations; nil
	// entries mean success.
	errQueue []error
	delay    time.Duration

	selectCalls int
	mapCalls    int
	inFlight    int
	peak        int
}

func (s *stubCompleter) enter() error {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	var err error
	if len(s.errQueue) > 0 {
		err = s.errQueue[0]
		s.errQueue = s.errQueue[1:]
	}
	s.mu.Unlock()
	return err
}

func (s *stubCompleter) leave() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}

func (s *stubCompleter) SelectViews(ctx context.Context, _ completion.SelectViewsRequest) ([]completion.ViewSelection, error) {
	s.mu.Lock()
	s.selectCalls++
	s.mu.Unlock()
	err := s.enter()
	defer s.leave()
	if werr := sleepCtx(ctx, s.delay); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	return append([]completion.ViewSelection(nil), s.selections...), nil
}

func (s *stubCompleter) MapFields(ctx context.Context, _ completion.MapFieldsRequest) ([]completion.FieldMapping, error) {
	s.mu.Lock()
	s.mapCalls++
	s.mu.Unlock()
	err := s.enter()
	defer s.leave()
	if werr := sleepCtx(ctx, s.delay); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	return append([]completion.FieldMapping(nil), s.mappings...), nil
}

func (s *stubCompleter) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectCalls + s.mapCalls
}

// standardIndex builds a stub index with one scenario, one view, and one
// mappable field, so the standard path resolves end to end.
func standardIndex() *stubIndex {
	return &stubIndex{
		scenarios: []model.ScenarioCandidate{
			{ID: "s1", Scenario: "SD_SALES", Description: "Sales processing", ViewCategory: "SD", Score: 0.8},
		},
		viewsByCat: map[string][]model.ViewCandidate{
			"SD": {{Name: "I_SalesOrder", Description: "Sales order header"}},
		},
		viewFields: map[string][]model.ViewField{
			"I_SalesOrder": {
				{View: "I_SalesOrder", Name: "SalesOrder", Desc: "Sales order number", IsKey: true, DataType: "CHAR"},
			},
		},
	}
}

// standardCompleter answers the standard path with one selection and one
// mapping at the given confidence.
func standardCompleter(confidence string) *stubCompleter {
	return &stubCompleter{
		selections: []completion.ViewSelection{{Name: "I_SalesOrder", Reason: "order context"}},
		mappings:   []completion.FieldMapping{{View: "I_SalesOrder", Field: "SalesOrder", Confidence: confidence, Rationale: "same key"}},
	}
}

// fastRetry keeps test retries in the millisecond range.
func fastRetry() Options {
	opts := DefaultOptions()
	opts.Retry.MaxAttempts = 3
	opts.Retry.InitialBackoff = time.Millisecond
	opts.Retry.MaxBackoff = 5 * time.Millisecond
	opts.Retry.RateLimitFloor = 2 * time.Millisecond
	opts.Retry.JitterFraction = 0
	return opts
}

func field(id, name string) model.InterfaceField {
	return model.InterfaceField{ID: id, FieldName: name, FieldText: name, Module: "SD", IFName: "ORDERS05"}
}
