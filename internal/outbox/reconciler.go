package outbox

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/trackerhq/tracker/internal/backend"
	"github.com/trackerhq/tracker/internal/issue"
)

// StatusWriter performs the backend status write.
type StatusWriter interface {
	SetStatus(ctx context.Context, id string, status issue.Status) error
}

// ReconcilerConfig holds configuration for the Reconciler.
type ReconcilerConfig struct {
	Repo   Repository
	Writer StatusWriter
	Logger zerolog.Logger

	// Interval between flushes in Run. Default: 30 seconds.
	Interval time.Duration

	// MaxRetries per entry per flush. Default: 3.
	MaxRetries uint64

	// InitialBackoff before the first retry. Default: 200ms.
	InitialBackoff time.Duration
}

// Result summarises one flush.
type Result struct {
	Attempted int
	Succeeded int
	Dropped   int
	Failed    int
}

// Reconciler replays pending status writes.
type Reconciler struct {
	repo           Repository
	writer         StatusWriter
	logger         zerolog.Logger
	interval       time.Duration
	maxRetries     uint64
	initialBackoff time.Duration
	wake           chan struct{}
}

// NewReconciler creates a new reconciler.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = 200 * time.Millisecond
	}

	return &Reconciler{
		repo:           cfg.Repo,
		writer:         cfg.Writer,
		logger:         cfg.Logger,
		interval:       interval,
		maxRetries:     maxRetries,
		initialBackoff: initial,
		wake:           make(chan struct{}, 1),
	}
}

// Notify asks a running reconciler to flush now.
func (r *Reconciler) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run flushes on every interval tick and on Notify until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info().Dur("interval", r.interval).Msg("outbox reconciler started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("outbox reconciler stopped")
			return nil
		case <-ticker.C:
		case <-r.wake:
		}
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error().Err(err).Msg("outbox flush failed")
		}
	}
}

// Flush replays every pending entry once, with exponential backoff between
// retries of the same entry.
func (r *Reconciler) Flush(ctx context.Context) (Result, error) {
	var result Result

	entries, err := r.repo.Pending(ctx)
	if err != nil {
		return result, err
	}

	for _, e := range entries {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Attempted++

		err := r.replay(ctx, e)
		switch {
		case err == nil:
			result.Succeeded++
			if cerr := r.repo.Complete(ctx, e.IssueID, e.Status); cerr != nil {
				return result, cerr
			}
			r.logger.Info().Str("issue_id", e.IssueID).Str("status", e.Status.String()).Msg("reconciled status write")

		case rejected(err):
			// The backend refused the write itself; replaying cannot help.
			result.Dropped++
			if cerr := r.repo.Complete(ctx, e.IssueID, e.Status); cerr != nil {
				return result, cerr
			}
			r.logger.Warn().Err(err).Str("issue_id", e.IssueID).Msg("dropping rejected status write")

		default:
			result.Failed++
			if ferr := r.repo.RecordFailure(ctx, e.IssueID, err); ferr != nil {
				return result, ferr
			}
			r.logger.Warn().Err(err).Str("issue_id", e.IssueID).Int("attempts", e.Attempts+1).Msg("status write still failing")
			if errors.Is(err, backend.ErrUnauthorized) {
				return result, err
			}
		}
	}

	return result, nil
}

// rejected reports whether err is a client error the backend will keep
// returning. Auth failures, timeouts and throttling stay queued.
func rejected(err error) bool {
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode < 400 || apiErr.StatusCode >= 500 {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return true
}

func (r *Reconciler) replay(ctx context.Context, e Entry) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialBackoff
	b.MaxElapsedTime = 0

	op := func() error {
		err := r.writer.SetStatus(ctx, e.IssueID, e.Status)
		if err == nil {
			return nil
		}
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 &&
			apiErr.StatusCode != http.StatusRequestTimeout && apiErr.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, r.maxRetries), ctx))
}
