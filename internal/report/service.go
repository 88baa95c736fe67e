package report

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/trackerhq/tracker/internal/backend"
)

// Service errors.
var (
	ErrTitleRequired   = errors.New("report title is required")
	ErrContentRequired = errors.New("report content is required")
	ErrNotAnImage      = errors.New("only image files can be uploaded")
)

const (
	basePath   = "/api/reports/"
	uploadPath = "/api/images/upload"
)

// Service provides report operations against the backend.
type Service struct {
	client *backend.Client
	logger zerolog.Logger
}

// NewService creates a new report service.
func NewService(client *backend.Client, logger zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// List returns all reports.
func (s *Service) List(ctx context.Context) ([]Report, error) {
	var wire backend.List[wireReport]
	if err := s.client.Get(ctx, basePath, &wire); err != nil {
		return nil, err
	}
	out := make([]Report, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toReport())
	}
	return out, nil
}

// Get returns one report.
func (s *Service) Get(ctx context.Context, id string) (Report, error) {
	var wire wireReport
	if err := s.client.Get(ctx, basePath+backend.PathID(id), &wire); err != nil {
		return Report{}, err
	}
	return wire.toReport(), nil
}

// Create stores a new report.
func (s *Service) Create(ctx context.Context, title, content string) (Report, error) {
	req, err := newWriteRequest(title, content)
	if err != nil {
		return Report{}, err
	}

	var wire wireReport
	if err := s.client.Post(ctx, basePath, req, &wire); err != nil {
		return Report{}, err
	}
	created := wire.toReport()
	s.logger.Info().Str("report_id", created.ID).Msg("report created")
	return created, nil
}

// Update replaces a report's title and content.
func (s *Service) Update(ctx context.Context, id, title, content string) error {
	req, err := newWriteRequest(title, content)
	if err != nil {
		return err
	}
	var ack backend.Message
	return s.client.Put(ctx, basePath+backend.PathID(id), req, &ack)
}

// Delete removes a report.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, basePath+backend.PathID(id))
}

// UploadImage stores an image and returns its public URL.
func (s *Service) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	if !IsImageName(filename) {
		return "", ErrNotAnImage
	}

	var resp uploadResponse
	if err := s.client.Upload(ctx, uploadPath, "file", filepath.Base(filename), r, &resp); err != nil {
		return "", err
	}
	s.logger.Debug().Str("url", resp.URL).Msg("image uploaded")
	return resp.URL, nil
}

func newWriteRequest(title, content string) (writeRequest, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return writeRequest{}, ErrTitleRequired
	}
	if strings.TrimSpace(content) == "" {
		return writeRequest{}, ErrContentRequired
	}
	return writeRequest{Title: title, Content: content}, nil
}
