package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/trackerhq/tracker/internal/backend"
)

// Service errors.
var (
	ErrNotFound        = errors.New("health endpoint not found")
	ErrNameRequired    = errors.New("endpoint name is required")
	ErrURLRequired     = errors.New("endpoint url is required")
	ErrInvalidURL      = errors.New("endpoint url must be absolute http(s)")
	ErrInvalidSettings = errors.New("threshold and interval must not be negative")
)

const (
	statusPath    = "/api/health/status"
	endpointsPath = "/api/health/endpoints"
)

// Service provides health endpoint operations against the backend.
type Service struct {
	client *backend.Client
	logger zerolog.Logger
}

// NewService creates a new health endpoint service.
func NewService(client *backend.Client, logger zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// List returns every monitored endpoint with its current status.
func (s *Service) List(ctx context.Context) ([]Endpoint, error) {
	var wire backend.List[wireEndpoint]
	if err := s.client.Get(ctx, statusPath, &wire); err != nil {
		return nil, err
	}
	out := make([]Endpoint, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toEndpoint())
	}
	return out, nil
}

// Find returns the endpoint with id. The backend has no single-item read, so
// this lists and matches.
func (s *Service) Find(ctx context.Context, id string) (Endpoint, error) {
	endpoints, err := s.List(ctx)
	if err != nil {
		return Endpoint{}, err
	}
	for _, ep := range endpoints {
		if ep.ID == id {
			return ep, nil
		}
	}
	return Endpoint{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Register adds a monitored endpoint. Zero threshold or interval take the
// defaults.
func (s *Service) Register(ctx context.Context, reg Registration) (Endpoint, error) {
	req, err := normalize(reg)
	if err != nil {
		return Endpoint{}, err
	}

	var wire wireEndpoint
	if err := s.client.Post(ctx, endpointsPath, req, &wire); err != nil {
		return Endpoint{}, err
	}

	ep := wire.toEndpoint()
	s.logger.Info().Str("endpoint_id", ep.ID).Str("url", ep.URL).Msg("health endpoint registered")
	return ep, nil
}

// Update replaces the editable fields of an endpoint.
func (s *Service) Update(ctx context.Context, id string, reg Registration) error {
	req, err := normalize(reg)
	if err != nil {
		return err
	}

	var ack backend.Message
	return s.client.Put(ctx, endpointsPath+"/"+backend.PathID(id), req, &ack)
}

// Delete stops monitoring an endpoint.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, endpointsPath+"/"+backend.PathID(id))
}

func normalize(reg Registration) (writeRequest, error) {
	req := writeRequest{
		Name:      strings.TrimSpace(reg.Name),
		URL:       strings.TrimSpace(reg.URL),
		Threshold: reg.Threshold,
		Interval:  reg.Interval,
	}
	if req.Name == "" {
		return req, ErrNameRequired
	}
	if req.URL == "" {
		return req, ErrURLRequired
	}
	if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return req, ErrInvalidURL
	}
	if req.Threshold < 0 || req.Interval < 0 {
		return req, ErrInvalidSettings
	}
	if req.Threshold == 0 {
		req.Threshold = DefaultThreshold
	}
	if req.Interval == 0 {
		req.Interval = DefaultInterval
	}
	return req, nil
}
