package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslogic/fieldmap-cli/internal/model"
	"github.com/crosslogic/fieldmap-cli/internal/store"
)

// stubStore serves canned data for router tests.
type stubStore struct {
	runs    []store.Run
	results []model.MatchResult
	letters []store.DeadLetter

	lastFilter store.RunFilter
	err        error
}

func (s *stubStore) CreateRun(context.Context, string) (*store.Run, error) { return nil, s.err }

func (s *stubStore) CompleteRun(context.Context, string, *model.BatchOutcome, map[string]model.TokenUsage, float64) error {
	return s.err
}

func (s *stubStore) FailRun(context.Context, string, string) error { return s.err }

func (s *stubStore) GetRun(_ context.Context, runID string) (*store.Run, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.runs {
		if s.runs[i].ID == runID {
			return &s.runs[i], nil
		}
	}
	return nil, errors.New("run not found")
}

func (s *stubStore) ListRuns(_ context.Context, filter store.RunFilter) ([]store.Run, error) {
	s.lastFilter = filter
	return s.runs, s.err
}

func (s *stubStore) ListResults(context.Context, string) ([]model.MatchResult, error) {
	return s.results, s.err
}

func (s *stubStore) ListDeadLetters(context.Context, int) ([]store.DeadLetter, error) {
	return s.letters, s.err
}

func (s *stubStore) Migrate(context.Context) error { return s.err }
func (s *stubStore) Close() error                  { return nil }

func serveRequest(t *testing.T, st store.Store, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	newRouter(st).ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	rr := serveRequest(t, &stubStore{}, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_ListRuns(t *testing.T) {
	st := &stubStore{runs: []store.Run{
		{ID: "run-1", Unit: "order.xlsx", Status: store.RunStatusComplete, CreatedAt: time.Now()},
	}}

	rr := serveRequest(t, st, http.MethodGet, "/runs?status=complete&unit=order.xlsx&limit=5")

	assert.Equal(t, http.StatusOK, rr.Code)

	var runs []store.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)

	assert.Equal(t, store.RunStatusComplete, st.lastFilter.Status)
	assert.Equal(t, "order.xlsx", st.lastFilter.Unit)
	assert.Equal(t, 5, st.lastFilter.Limit)
}

func TestRouter_ListRunsEmptyIsArray(t *testing.T) {
	rr := serveRequest(t, &stubStore{}, http.MethodGet, "/runs")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestRouter_ListRunsError(t *testing.T) {
	rr := serveRequest(t, &stubStore{err: errors.New("db down")}, http.MethodGet, "/runs")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "db down")
}

func TestRouter_GetRun(t *testing.T) {
	st := &stubStore{runs: []store.Run{{ID: "run-1", Unit: "order.xlsx"}}}

	rr := serveRequest(t, st, http.MethodGet, "/runs/run-1")
	assert.Equal(t, http.StatusOK, rr.Code)

	var run store.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))
	assert.Equal(t, "order.xlsx", run.Unit)
}

func TestRouter_GetRunNotFound(t *testing.T) {
	rr := serveRequest(t, &stubStore{}, http.MethodGet, "/runs/missing")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "not found")
}

func TestRouter_RunResults(t *testing.T) {
	st := &stubStore{results: []model.MatchResult{
		{
			Field:   model.InterfaceField{FieldName: "KUNNR", RowIndex: 8},
			Status:  model.StatusMatched,
			Percent: 92,
			Match:   &model.CandidateMatch{View: "I_Customer", Field: "Customer"},
		},
	}}

	rr := serveRequest(t, st, http.MethodGet, "/runs/run-1/results")
	assert.Equal(t, http.StatusOK, rr.Code)

	var results []model.MatchResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "KUNNR", results[0].Field.FieldName)
	assert.Equal(t, 92, results[0].Percent)
}

func TestRouter_DeadLetters(t *testing.T) {
	st := &stubStore{letters: []store.DeadLetter{
		{RunID: "run-1", FieldName: "NETWR", ErrKind: model.ErrTimeout},
	}}

	rr := serveRequest(t, st, http.MethodGet, "/deadletters")
	assert.Equal(t, http.StatusOK, rr.Code)

	var letters []store.DeadLetter
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &letters))
	require.Len(t, letters, 1)
	assert.Equal(t, model.ErrTimeout, letters[0].ErrKind)
}

func TestRouter_DeadLettersEmptyIsArray(t *testing.T) {
	rr := serveRequest(t, &stubStore{}, http.MethodGet, "/deadletters")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
}
