package settings

import (
	"context"
	"sync"
)

// Repository persists the settings document.
type Repository interface {
	// Load returns the stored settings, or the zero value if none exist yet.
	Load(ctx context.Context) (Settings, error)

	// Save replaces the stored settings.
	Save(ctx context.Context, s Settings) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing.
type InMemoryRepository struct {
	mu       sync.RWMutex
	settings Settings
	saves    int
}

// NewInMemoryRepository creates a repository seeded with initial.
func NewInMemoryRepository(initial Settings) *InMemoryRepository {
	return &InMemoryRepository{settings: initial.Clone()}
}

// Load returns a copy of the stored settings.
func (r *InMemoryRepository) Load(_ context.Context) (Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings.Clone(), nil
}

// Save stores a copy of s.
func (r *InMemoryRepository) Save(_ context.Context, s Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = s.Clone()
	r.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (r *InMemoryRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}
