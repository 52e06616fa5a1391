package api

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
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/boe-sumario-crawler/internal/metrics"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	rec := serve(t, NewServer(nil, nil), "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_Readyz(t *testing.T) {
	t.Parallel()

	rec := serve(t, NewServer(nil, nil), "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestServer_MetricsExposesPipelineCollectors(t *testing.T) {
	t.Parallel()

	metrics.ObserveDay(metrics.DayPublished)
	rec := serve(t, NewServer(nil, nil), "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "boe_catalog_days_total")
}

func TestServer_RunStatusUnavailable(t *testing.T) {
	t.Parallel()

	rec := serve(t, NewServer(nil, nil), "/v1/run")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"no run in progress"}`, rec.Body.String())
}

func TestServer_RunStatusReflectsState(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Date(2024, 5, 15, 8, 0, 0, 0, time.UTC)}
	run := NewRunState("run-1", 2024, clk.Now)
	run.SetStage(StageCatalog)
	run.SetItems(42)
	run.SetStage(StageText)
	run.SetTexts(7)

	rec := serve(t, NewServer(run, nil), "/v1/run")
	require.Equal(t, http.StatusOK, rec.Code)

	var got RunStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 2024, got.Year)
	assert.Equal(t, StageText, got.Stage)
	assert.Equal(t, 42, got.Items)
	assert.Equal(t, 7, got.Texts)
	assert.Equal(t, time.Date(2024, 5, 15, 8, 0, 1, 0, time.UTC), got.StartedAt)
	assert.True(t, got.UpdatedAt.After(got.StartedAt))
}

func TestRunState_Finish(t *testing.T) {
	t.Parallel()

	run := NewRunState("run-2", 2023, nil)
	run.Finish([]string{"data/base.jsonl"}, nil)
	snap := run.Snapshot()
	assert.Equal(t, StageDone, snap.Stage)
	assert.Equal(t, []string{"data/base.jsonl"}, snap.Outputs)

	run.Finish(nil, errors.New("disk full"))
	snap = run.Snapshot()
	assert.Equal(t, StageFailed, snap.Stage)
	assert.Equal(t, "disk full", snap.Error)
}

func TestServer_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	s := NewServer(nil, nil)
	s.router.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := serve(t, s, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_RecordsRequestMetrics(t *testing.T) {
	t.Parallel()

	rec := serve(t, NewServer(nil, nil), "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)

	exposition := serve(t, NewServer(nil, nil), "/metrics").Body.String()
	assert.Contains(t, exposition, `boe_api_request_duration_seconds_count{method="GET",route="/readyz"}`)
}

func TestServer_LogsRequestID(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	rec := serve(t, NewServer(nil, zap.New(core)), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	entries := logs.FilterMessage("Request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, rec.Header().Get("X-Request-ID"), fields["request_id"])
	assert.Equal(t, "/healthz", fields["path"])
}

func TestRequestIDWithoutMiddleware(t *testing.T) {
	t.Parallel()

	assert.Empty(t, RequestID(context.Background()))
}
