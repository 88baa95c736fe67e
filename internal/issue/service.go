package issue

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/trackerhq/tracker/internal/backend"
)

// Service errors.
var (
	ErrNameRequired = errors.New("issue name is required")
)

const basePath = "/api/issues/"

// Service provides issue operations against the backend.
type Service struct {
	client *backend.Client
	logger zerolog.Logger
}

// NewService creates a new issue service.
func NewService(client *backend.Client, logger zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// List returns every issue in backend order.
func (s *Service) List(ctx context.Context) ([]Issue, error) {
	var wire backend.List[wireIssue]
	if err := s.client.Get(ctx, basePath, &wire); err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(wire))
	for _, w := range wire {
		issues = append(issues, w.toIssue())
	}
	return issues, nil
}

// Get returns one issue.
func (s *Service) Get(ctx context.Context, id string) (Issue, error) {
	var wire wireIssue
	if err := s.client.Get(ctx, basePath+backend.PathID(id), &wire); err != nil {
		return Issue{}, err
	}
	return wire.toIssue(), nil
}

// Create creates an ongoing issue. The backend does not return a usable id,
// so callers re-fetch the list afterwards.
func (s *Service) Create(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}

	var resp createResponse
	if err := s.client.Post(ctx, basePath, createRequest{Name: name}, &resp); err != nil {
		return err
	}
	s.logger.Info().Str("name", name).Msg("issue created")
	return nil
}

// Update writes the full editable shape of an issue.
func (s *Service) Update(ctx context.Context, issue Issue) error {
	name := strings.TrimSpace(issue.Name)
	if name == "" {
		return ErrNameRequired
	}

	var ack backend.Message
	return s.client.Put(ctx, basePath+backend.PathID(issue.ID), updateRequest{
		Name:   name,
		Status: issue.Status.Code(),
	}, &ack)
}

// SetStatus writes only the status of an issue.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) error {
	var ack backend.Message
	if err := s.client.Put(ctx, basePath+backend.PathID(id), statusRequest{Status: status.Code()}, &ack); err != nil {
		return err
	}
	s.logger.Debug().Str("issue_id", id).Str("status", status.String()).Msg("issue status written")
	return nil
}
