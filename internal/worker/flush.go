package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/trackerhq/tracker/internal/outbox"
)

// Flusher replays pending outbox entries once.
type Flusher interface {
	Flush(ctx context.Context) (outbox.Result, error)
}

// FlushJob runs Flusher on a schedule and keeps run statistics.
type FlushJob struct {
	config  Config
	flusher Flusher
	logger  zerolog.Logger
	now     func() time.Time

	metrics *FlushMetrics
}

// FlushMetrics tracks flush job statistics.
type FlushMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns  int64
	FailedRuns int64
	Attempted  int64
	Succeeded  int64
	Dropped    int64
	Failed     int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
	LastError       string
}

// FlushJobConfig holds configuration for creating a FlushJob.
type FlushJobConfig struct {
	Config  Config
	Flusher Flusher
	Logger  zerolog.Logger

	// Now overrides the clock (optional).
	Now func() time.Time
}

// NewFlushJob creates a new flush job.
func NewFlushJob(cfg FlushJobConfig) *FlushJob {
	config := cfg.Config
	defaults := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &FlushJob{
		config:  config,
		flusher: cfg.Flusher,
		logger:  cfg.Logger,
		now:     now,
		metrics: &FlushMetrics{},
	}
}

// RunResult contains the result of one flush.
type RunResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	outbox.Result
	Err error
}

// RunOnce flushes the outbox once under the configured timeout.
func (j *FlushJob) RunOnce(ctx context.Context) *RunResult {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	result := &RunResult{StartTime: j.now()}
	result.Result, result.Err = j.flusher.Flush(ctx)
	result.EndTime = j.now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	j.updateMetrics(result)

	event := j.logger.Info()
	if result.Err != nil {
		event = j.logger.Error().Err(result.Err)
	} else if result.Attempted == 0 {
		event = j.logger.Debug()
	}
	event.
		Dur("duration", result.Duration).
		Int("attempted", result.Attempted).
		Int("succeeded", result.Succeeded).
		Int("dropped", result.Dropped).
		Int("failed", result.Failed).
		Msg("outbox flush completed")

	return result
}

// Run flushes immediately and then on every interval until ctx is cancelled.
func (j *FlushJob) Run(ctx context.Context) {
	j.logger.Info().Dur("interval", j.config.Interval).Msg("flush job started")

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	j.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("flush job stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

func (j *FlushJob) updateMetrics(result *RunResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	if result.Err != nil {
		j.metrics.FailedRuns++
		j.metrics.LastError = result.Err.Error()
	} else {
		j.metrics.LastError = ""
	}
	j.metrics.Attempted += int64(result.Attempted)
	j.metrics.Succeeded += int64(result.Succeeded)
	j.metrics.Dropped += int64(result.Dropped)
	j.metrics.Failed += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *FlushJob) GetMetrics() FlushMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return FlushMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		FailedRuns:      j.metrics.FailedRuns,
		Attempted:       j.metrics.Attempted,
		Succeeded:       j.metrics.Succeeded,
		Dropped:         j.metrics.Dropped,
		Failed:          j.metrics.Failed,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
		LastError:       j.metrics.LastError,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *FlushJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	return map[string]any{
		"total_runs":        m.TotalRuns,
		"failed_runs":       m.FailedRuns,
		"attempted":         m.Attempted,
		"succeeded":         m.Succeeded,
		"dropped":           m.Dropped,
		"failed":            m.Failed,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
		"last_error":        m.LastError,
	}
}
