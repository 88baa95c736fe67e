package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackerhq/tracker/internal/outbox"
	"github.com/trackerhq/tracker/internal/worker"
)

type stubFlusher struct {
	calls  atomic.Int32
	result outbox.Result
	err    error
}

func (s *stubFlusher) Flush(_ context.Context) (outbox.Result, error) {
	s.calls.Add(1)
	return s.result, s.err
}

func TestDefaultConfig(t *testing.T) {
	cfg := worker.DefaultConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("WORKER_FLUSH_INTERVAL", "5s")

	cfg, err := worker.ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
}

func TestConfigFromEnv_Invalid(t *testing.T) {
	t.Setenv("WORKER_FLUSH_TIMEOUT", "soon")
	_, err := worker.ConfigFromEnv()
	assert.Error(t, err)

	t.Setenv("WORKER_FLUSH_TIMEOUT", "-1s")
	_, err = worker.ConfigFromEnv()
	assert.Error(t, err)
}

func TestFlushJob_RunOnce(t *testing.T) {
	flusher := &stubFlusher{result: outbox.Result{Attempted: 3, Succeeded: 2, Dropped: 1}}
	clock := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	job := worker.NewFlushJob(worker.FlushJobConfig{
		Flusher: flusher,
		Logger:  zerolog.Nop(),
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})

	result := job.RunOnce(context.Background())
	require.NoError(t, result.Err)
	assert.Equal(t, 3, result.Attempted)
	assert.Equal(t, time.Second, result.Duration)

	m := job.GetMetrics()
	assert.Equal(t, int64(1), m.TotalRuns)
	assert.Equal(t, int64(0), m.FailedRuns)
	assert.Equal(t, int64(2), m.Succeeded)
	assert.Equal(t, int64(1), m.Dropped)
	assert.Equal(t, clock, m.LastRunAt)
}

func TestFlushJob_RecordsFailure(t *testing.T) {
	flusher := &stubFlusher{err: errors.New("database unavailable")}
	job := worker.NewFlushJob(worker.FlushJobConfig{Flusher: flusher, Logger: zerolog.Nop()})

	result := job.RunOnce(context.Background())
	assert.Error(t, result.Err)

	snap := job.MetricsSnapshot()
	assert.Equal(t, int64(1), snap["failed_runs"])
	assert.Equal(t, "database unavailable", snap["last_error"])

	flusher.err = nil
	job.RunOnce(context.Background())
	assert.Equal(t, "", job.GetMetrics().LastError)
}

func TestFlushJob_RunStopsOnCancel(t *testing.T) {
	flusher := &stubFlusher{}
	job := worker.NewFlushJob(worker.FlushJobConfig{
		Config:  worker.Config{Interval: 10 * time.Millisecond},
		Flusher: flusher,
		Logger:  zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return flusher.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHealthHandler(t *testing.T) {
	job := worker.NewFlushJob(worker.FlushJobConfig{
		Flusher: &stubFlusher{result: outbox.Result{Attempted: 1, Succeeded: 1}},
		Logger:  zerolog.Nop(),
	})
	job.RunOnce(context.Background())

	rec := httptest.NewRecorder()
	worker.HealthHandler("1.2.3", job).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status  string         `json:"status"`
		Version string         `json:"version"`
		Outbox  map[string]any `json:"outbox"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
	assert.InDelta(t, 1, body.Outbox["succeeded"], 0)
}
