package resolve

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslogic/fieldmap-cli/internal/completion"
	"github.com/crosslogic/fieldmap-cli/internal/model"
	"github.com/crosslogic/fieldmap-cli/internal/retrieval"
)

func TestResolve_CustomHitSkipsCompletion(t *testing.T) {
	index := standardIndex()
	index.similar = map[retrieval.IndexKind][]model.CandidateMatch{
		retrieval.IndexCustomFields: {
			{View: "ZCUSTOM", Field: "CUSTOMER_ID", Score: 0.92, Provenance: model.ProvenanceCustom},
		},
	}
	completer := standardCompleter("high")
	orch := NewOrchestrator(index, completer, fastRetry())

	got := orch.Resolve(context.Background(), field("f1", "Customer_ID"))

	assert.Equal(t, model.StatusMatched, got.Status)
	require.NotNil(t, got.Match)
	assert.Equal(t, model.ProvenanceCustom, got.Match.Provenance)
	assert.Equal(t, 92, got.Percent)
	assert.Equal(t, 0, completer.totalCalls(), "custom hit must not reach the completion port")
}

func TestResolve_ExactLookupWins(t *testing.T) {
	index := standardIndex()
	index.exact = map[string]*model.CandidateMatch{
		"KUNNR": {View: "ZCUSTOM", Field: "KUNNR", Score: 1.0, Provenance: model.ProvenanceCustom},
	}
	completer := standardCompleter("high")
	orch := NewOrchestrator(index, completer, fastRetry())

	got := orch.Resolve(context.Background(), field("f1", "KUNNR"))

	assert.Equal(t, model.StatusMatched, got.Status)
	assert.Equal(t, 100, got.Percent)
	assert.Equal(t, 0, completer.totalCalls())
	assert.Equal(t, 0, index.searchCalls, "exact hit skips similarity search")
}

func TestResolve_CustomBelowThresholdFallsThrough(t *testing.T) {
	index := standardIndex()
	index.similar = map[retrieval.IndexKind][]model.CandidateMatch{
		retrieval.IndexCustomFields: {
			{View: "ZCUSTOM", Field: "NEARLY", Score: 0.7, Provenance: model.ProvenanceCustom},
		},
	}
	completer := standardCompleter("high")
	orch := NewOrchestrator(index, completer, fastRetry())

	got := orch.Resolve(context.Background(), field("f1", "Delivery_Note_Ref"))

	assert.Equal(t, model.StatusMatched, got.Status)
	require.NotNil(t, got.Match)
	assert.Equal(t, model.ProvenanceLLMSelected, got.Match.Provenance)
	assert.Equal(t, "I_SalesOrder.SalesOrder", got.Match.Qualifier())
	assert.Equal(t, 90, got.Percent)
}

func TestResolve_NoScenariosIsUnmatched(t *testing.T) {
	index := &stubIndex{}
	completer := standardCompleter("high")
	orch := NewOrchestrator(index, completer, fastRetry())

	got := orch.Resolve(context.Background(), field("f1", "Mystery"))

	assert.Equal(t, model.StatusUnmatched, got.Status)
	assert.Empty(t, got.ErrKind)
	assert.Equal(t, 0, completer.totalCalls())
}

func TestResolve_EmptyViewCategoryIsUnmatched(t *testing.T) {
	index := standardIndex()
	index.viewsByCat = map[string][]model.ViewCandidate{}
	completer := standardCompleter("high")
	orch := NewOrchestrator(index, completer, fastRetry())

	got := orch.Resolve(context.Background(), field("f1", "Mystery"))

	assert.Equal(t, model.StatusUnmatched, got.Status)
	assert.Equal(t, 0, completer.totalCalls())
}

func TestResolve_BelowStandardThresholdIsUnmatched(t *testing.T) {
	index := standardIndex()
	completer := standardCompleter("0.4")
	orch := NewOrchestrator(index, completer, fastRetry())

	got := orch.Resolve(context.Background(), field("f1", "Delivery_Note_Ref"))

	assert.Equal(t, model.StatusUnmatched, got.Status)
	assert.Nil(t, got.Match)
	assert.Empty(t, got.ErrKind)
}

func TestResolve_RateLimitedTwiceThenSuccess(t *testing.T) {
	index := standardIndex()
	completer := standardCompleter("high")
	completer.errQueue = []error{
		&completion.RateLimitedError{Err: fmt.Errorf("429")},
		&completion.RateLimitedError{Err: fmt.Errorf("429")},
		nil,
		nil,
	}
	orch := NewOrchestrator(index, completer, fastRetry())

	got := orch.Resolve(context.Background(), field("f1", "Delivery_Note_Ref"))

	assert.Equal(t, model.StatusMatched, got.Status)
	assert.Equal(t, 3, completer.selectCalls)
}

func TestResolve_RetriesExhaustedIsError(t *testing.T) {
	index := standardIndex()
	completer := standardCompleter("high")
	completer.errQueue = []error{
		&completion.UnavailableError{Err: fmt.Errorf("503")},
		&completion.UnavailableError{Err: fmt.Errorf("503")},
		&completion.UnavailableError{Err: fmt.Errorf("503")},
	}
	orch := NewOrchestrator(index, completer, fastRetry())

	got := orch.Resolve(context.Background(), field("f1", "Delivery_Note_Ref"))

	assert.Equal(t, model.StatusError, got.Status)
	assert.Equal(t, model.ErrCompletionUnavailable, got.ErrKind)
	assert.NotEmpty(t, got.ErrDetail)
}

func TestResolve_SchemaErrorNotRetried(t *testing.T) {
	index := standardIndex()
	completer := standardCompleter("high")
	completer.errQueue = []error{
		&completion.SchemaError{Err: fmt.Errorf("bad shape")},
	}
	orch := NewOrchestrator(index, completer, fastRetry())

	got := orch.Resolve(context.Background(), field("f1", "Delivery_Note_Ref"))

	assert.Equal(t, model.StatusError, got.Status)
	assert.Equal(t, model.ErrCompletionSchema, got.ErrKind)
	assert.Equal(t, 1, completer.selectCalls)
}

func TestResolve_RetrievalUnavailableIsError(t *testing.T) {
	index := standardIndex()
	index.searchErr = &retrieval.UnavailableError{Err: fmt.Errorf("connection refused")}
	completer := standardCompleter("high")
	opts := fastRetry()
	opts.Retry.MaxAttempts = 2
	orch := NewOrchestrator(index, completer, opts)

	got := orch.Resolve(context.Background(), field("f1", "Delivery_Note_Ref"))

	assert.Equal(t, model.StatusError, got.Status)
	assert.Equal(t, model.ErrRetrievalUnavailable, got.ErrKind)
	assert.Equal(t, 0, completer.totalCalls())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&retrieval.UnavailableError{Err: fmt.Errorf("x")}))
	assert.True(t, isRetryable(&completion.UnavailableError{Err: fmt.Errorf("x")}))
	assert.True(t, isRetryable(&completion.RateLimitedError{Err: fmt.Errorf("x")}))
	assert.False(t, isRetryable(&completion.SchemaError{Err: fmt.Errorf("x")}))
	assert.False(t, isRetryable(context.Canceled))
	assert.False(t, isRetryable(context.DeadlineExceeded))
	assert.False(t, isRetryable(fmt.Errorf("plain")))
}

func TestClassifyErr(t *testing.T) {
	assert.Equal(t, model.ErrTimeout, classifyErr(context.DeadlineExceeded))
	assert.Equal(t, model.ErrCancelled, classifyErr(context.Canceled))
	assert.Equal(t, model.ErrCompletionSchema, classifyErr(&completion.SchemaError{Err: fmt.Errorf("x")}))
	assert.Equal(t, model.ErrCompletionRateLimited, classifyErr(&completion.RateLimitedError{Err: fmt.Errorf("x")}))
	assert.Equal(t, model.ErrCompletionUnavailable, classifyErr(&completion.UnavailableError{Err: fmt.Errorf("x")}))
	assert.Equal(t, model.ErrRetrievalUnavailable, classifyErr(&retrieval.UnavailableError{Err: fmt.Errorf("x")}))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 92, Percent(0.92))
	assert.Equal(t, 90, Percent(0.9))
	assert.Equal(t, 0, Percent(0))
	assert.Equal(t, 100, Percent(1))
	assert.Equal(t, 46, Percent(0.456))
}

func TestNormalizeConfidence(t *testing.T) {
	tests := []struct {
		raw   string
		want  float64
		valid bool
	}{
		{"high", 0.9, true},
		{"HIGH", 0.9, true},
		{" medium ", 0.6, true},
		{"low", 0.3, true},
		{"0.82", 0.82, true},
		{"1", 1, true},
		{"0", 0, true},
		{"1.5", 0, false},
		{"-0.1", 0, false},
		{"certain", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := NormalizeConfidence(tt.raw)
		assert.Equal(t, tt.valid, ok, tt.raw)
		if tt.valid {
			assert.InDelta(t, tt.want, got, 1e-9, tt.raw)
		}
	}
}
