package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-enricher/internal/enrich"
	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/store"
)

type fakeRunner struct {
	calls  int
	emails []string
	opts   enrich.Options
}

func (f *fakeRunner) EnrichBatch(_ context.Context, emails []string, opts enrich.Options) model.BatchOutcome {
	f.calls++
	f.emails = emails
	f.opts = opts
	score := 42.0
	return model.BatchOutcome{
		Success: true,
		Results: []model.LeadOutcome{{Email: "a@b.com", Company: "b", EnrichmentData: []model.EnrichmentResult{}, Score: &score}},
		Errors:  []string{},
	}
}

type mockRuns struct {
	mock.Mock
}

func (m *mockRuns) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockRuns) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockRuns) ListLeads(ctx context.Context, runID string) ([]model.LeadOutcome, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LeadOutcome), args.Error(1)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e.Error
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h := New(&fakeRunner{}, nil, Config{}).Routes()
	rec := do(t, h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","store":false,"max_batch_size":50}`, rec.Body.String())
}

func TestEnrich(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	h := New(runner, nil, Config{PushCRM: true}).Routes()

	rec := do(t, h, http.MethodPost, "/api/enrich", `{
		"emails": [" A@b.com ", "a@b.com"],
		"chatModelProvider": "openai",
		"chatModel": "gpt-4o",
		"embeddingModelProvider": "openai",
		"focusMode": "webSearch",
		"optimizationMode": "balanced",
		"systemInstructions": "Prefer primary sources."
	}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var out model.BatchOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Success)
	require.Len(t, out.Results, 1)

	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, []string{" A@b.com ", "a@b.com"}, runner.emails)
	assert.Equal(t, "openai", runner.opts.Requested.ChatProvider)
	assert.Equal(t, "gpt-4o", runner.opts.Requested.ChatModel)
	assert.Equal(t, "openai", runner.opts.Requested.EmbeddingProvider)
	assert.Empty(t, runner.opts.Requested.EmbeddingModel)
	assert.Equal(t, "webSearch", runner.opts.FocusMode)
	assert.Equal(t, "balanced", runner.opts.OptimizationMode)
	assert.Equal(t, "Prefer primary sources.", runner.opts.SystemInstructions)
	assert.Equal(t, model.RunSourceAPI, runner.opts.Source)
	assert.True(t, runner.opts.PushCRM)
}

func TestEnrich_Rejected(t *testing.T) {
	t.Parallel()

	tooMany := make([]string, 4)
	for i := range tooMany {
		tooMany[i] = `"x@y.com"`
	}

	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{"malformed json", `{"emails":`, http.StatusBadRequest, "invalid request body"},
		{"missing emails", `{}`, http.StatusBadRequest, "emails: failed required"},
		{"empty emails", `{"emails":[]}`, http.StatusBadRequest, "emails: failed min=1"},
		{"bad optimization mode", `{"emails":["a@b.com"],"optimizationMode":"turbo"}`, http.StatusBadRequest, "optimizationMode: failed oneof"},
		{"over batch cap", `{"emails":[` + strings.Join(tooMany, ",") + `]}`, http.StatusBadRequest, "at most 3 per request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := &fakeRunner{}
			h := New(runner, nil, Config{MaxBatchSize: 3}).Routes()
			rec := do(t, h, http.MethodPost, "/api/enrich", tt.body)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, decodeError(t, rec), tt.errMsg)
			assert.Zero(t, runner.calls)
		})
	}
}

func TestEnrich_BodyTooLarge(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	h := New(runner, nil, Config{}).Routes()
	body := `{"emails":["a@b.com"],"systemInstructions":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec := do(t, h, http.MethodPost, "/api/enrich", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, runner.calls)
}

func TestRuns_StoreDisabled(t *testing.T) {
	t.Parallel()

	h := New(&fakeRunner{}, nil, Config{}).Routes()
	for _, path := range []string{"/api/runs", "/api/runs/abc"} {
		rec := do(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Equal(t, "run store not configured", decodeError(t, rec))
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	runs := &mockRuns{}
	runs.On("ListRuns", mock.Anything, store.RunFilter{Status: model.RunStatusComplete, Source: model.RunSourceAPI, Limit: 5, Offset: 10}).
		Return([]model.Run{{ID: "run-1", Source: model.RunSourceAPI, Emails: []string{"a@b.com"}, Status: model.RunStatusComplete, CreatedAt: time.Unix(0, 0).UTC()}}, nil)

	h := New(&fakeRunner{}, runs, Config{}).Routes()
	rec := do(t, h, http.MethodGet, "/api/runs?status=complete&source=api&limit=5&offset=10", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "run-1", got[0].ID)
	runs.AssertExpectations(t)
}

func TestListRuns_BadParams(t *testing.T) {
	t.Parallel()

	runs := &mockRuns{}
	h := New(&fakeRunner{}, runs, Config{}).Routes()

	rec := do(t, h, http.MethodGet, "/api/runs?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/runs?offset=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	runs.AssertNotCalled(t, "ListRuns", mock.Anything, mock.Anything)
}

func TestListRuns_StoreError(t *testing.T) {
	t.Parallel()

	runs := &mockRuns{}
	runs.On("ListRuns", mock.Anything, store.RunFilter{}).Return(nil, errors.New("db down"))

	h := New(&fakeRunner{}, runs, Config{}).Routes()
	rec := do(t, h, http.MethodGet, "/api/runs", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeError(t, rec))
}

func TestGetRun(t *testing.T) {
	t.Parallel()

	runs := &mockRuns{}
	runs.On("GetRun", mock.Anything, "run-1").
		Return(&model.Run{ID: "run-1", Status: model.RunStatusFailed, Emails: []string{"a@b.com"}}, nil)
	runs.On("ListLeads", mock.Anything, "run-1").
		Return([]model.LeadOutcome{{Email: "a@b.com", Error: "boom", EnrichmentData: []model.EnrichmentResult{}}}, nil)

	h := New(&fakeRunner{}, runs, Config{}).Routes()
	rec := do(t, h, http.MethodGet, "/api/runs/run-1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got RunDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.Run)
	assert.Equal(t, model.RunStatusFailed, got.Run.Status)
	require.Len(t, got.Leads, 1)
	assert.Equal(t, "boom", got.Leads[0].Error)
}

func TestGetRun_NotFound(t *testing.T) {
	t.Parallel()

	runs := &mockRuns{}
	runs.On("GetRun", mock.Anything, "missing").Return(nil, store.ErrNotFound)

	h := New(&fakeRunner{}, runs, Config{}).Routes()
	rec := do(t, h, http.MethodGet, "/api/runs/missing", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "run not found", decodeError(t, rec))
	runs.AssertNotCalled(t, "ListLeads", mock.Anything, mock.Anything)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	h := New(&fakeRunner{}, nil, Config{AllowedOrigins: []string{"https://app.example.com"}}).Routes()

	req := httptest.NewRequest(http.MethodOptions, "/api/enrich", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewHTTPServer(t *testing.T) {
	t.Parallel()

	srv := New(&fakeRunner{}, nil, Config{}).NewHTTPServer(":0")
	assert.Equal(t, ":0", srv.Addr)
	assert.NotNil(t, srv.Handler)
	assert.Zero(t, srv.WriteTimeout)
}
