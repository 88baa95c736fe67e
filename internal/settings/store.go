package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Store is the single owner of the settings document. It is loaded once and
// every change goes through Update so the persisted copy never drifts from
// what readers observe.
type Store struct {
	mu      sync.RWMutex
	repo    Repository
	current Settings
	logger  zerolog.Logger
}

// Open loads the settings from repo.
func Open(ctx context.Context, repo Repository, logger zerolog.Logger) (*Store, error) {
	s, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	return &Store{repo: repo, current: s, logger: logger}, nil
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Update applies fn to a copy of the settings and persists the result. If the
// write fails the in-memory settings are left unchanged.
func (s *Store) Update(ctx context.Context, fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	fn(&next)

	if err := s.repo.Save(ctx, next); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist settings")
		return fmt.Errorf("save settings: %w", err)
	}
	s.current = next
	return nil
}

// Token returns the stored auth token. It satisfies backend.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}
