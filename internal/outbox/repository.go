package outbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trackerhq/tracker/internal/issue"
)

// Repository stores pending status writes.
type Repository interface {
	// Enqueue records status as the pending write for issueID, replacing any
	// earlier pending status for that issue.
	Enqueue(ctx context.Context, issueID string, status issue.Status) (Entry, error)

	// Pending returns all entries, oldest first.
	Pending(ctx context.Context) ([]Entry, error)

	// Complete removes the entry for issueID if its status is still status.
	// A newer status enqueued meanwhile is kept.
	Complete(ctx context.Context, issueID string, status issue.Status) error

	// Remove deletes any pending entry for issueID. Used once a direct write
	// has reached the backend, so an older queued status cannot overwrite it.
	Remove(ctx context.Context, issueID string) error

	// RecordFailure increments the attempt count and stores the error.
	RecordFailure(ctx context.Context, issueID string, cause error) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and single-process shells. Production should
// use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]*Entry // keyed by issue ID
	now     func() time.Time
}

// NewInMemoryRepository creates a new in-memory outbox.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Enqueue upserts the pending status for an issue.
func (r *InMemoryRepository) Enqueue(_ context.Context, issueID string, status issue.Status) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.entries[issueID]; ok {
		e.Status = status
		e.UpdatedAt = now
		return *e, nil
	}

	e := &Entry{
		ID:        uuid.NewString(),
		IssueID:   issueID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.entries[issueID] = e
	return *e, nil
}

// Pending returns entries ordered by creation time.
func (r *InMemoryRepository) Pending(_ context.Context) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].IssueID < out[j].IssueID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Complete deletes the entry if it still carries status.
func (r *InMemoryRepository) Complete(_ context.Context, issueID string, status issue.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[issueID]; ok && e.Status == status {
		delete(r.entries, issueID)
	}
	return nil
}

// Remove deletes the entry for an issue regardless of its status.
func (r *InMemoryRepository) Remove(_ context.Context, issueID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, issueID)
	return nil
}

// RecordFailure notes a failed attempt.
func (r *InMemoryRepository) RecordFailure(_ context.Context, issueID string, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[issueID]
	if !ok {
		return nil
	}
	e.Attempts++
	if cause != nil {
		e.LastError = cause.Error()
	}
	e.UpdatedAt = r.now()
	return nil
}
