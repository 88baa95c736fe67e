package playbook

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/trackerhq/tracker/internal/backend"
)

// Service errors.
var (
	ErrNameRequired = errors.New("playbook name is required")
)

const basePath = "/api/playbooks/"

// Service provides playbook operations against the backend.
type Service struct {
	client *backend.Client
	logger zerolog.Logger
}

// NewService creates a new playbook service.
func NewService(client *backend.Client, logger zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// List returns all playbooks.
func (s *Service) List(ctx context.Context) ([]Playbook, error) {
	var wire backend.List[wirePlaybook]
	if err := s.client.Get(ctx, basePath, &wire); err != nil {
		return nil, err
	}
	out := make([]Playbook, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toPlaybook())
	}
	return out, nil
}

// Get returns one playbook.
func (s *Service) Get(ctx context.Context, id string) (Playbook, error) {
	var wire wirePlaybook
	if err := s.client.Get(ctx, basePath+backend.PathID(id), &wire); err != nil {
		return Playbook{}, err
	}
	return wire.toPlaybook(), nil
}

// Create stores a new playbook and returns it with its assigned id.
func (s *Service) Create(ctx context.Context, name string, steps []Step) (Playbook, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Playbook{}, ErrNameRequired
	}

	var wire wirePlaybook
	if err := s.client.Post(ctx, basePath, newWriteRequest(name, NonEmptySteps(steps)), &wire); err != nil {
		return Playbook{}, err
	}

	created := wire.toPlaybook()
	s.logger.Info().Str("playbook_id", created.ID).Str("name", name).Msg("playbook created")
	return created, nil
}

// Update replaces a playbook's name and steps, dropping blank steps. It
// returns the playbook as saved.
func (s *Service) Update(ctx context.Context, pb Playbook) (Playbook, error) {
	name := strings.TrimSpace(pb.Name)
	if name == "" {
		return Playbook{}, ErrNameRequired
	}

	saved := Playbook{ID: pb.ID, Name: name, Steps: NonEmptySteps(pb.Steps)}
	var ack backend.Message
	if err := s.client.Put(ctx, basePath+backend.PathID(pb.ID), newWriteRequest(saved.Name, saved.Steps), &ack); err != nil {
		return Playbook{}, err
	}
	return saved, nil
}
