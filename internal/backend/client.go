// Package backend is the HTTP client for the Tracker REST API. It attaches the
// bearer token, decodes responses strictly into typed values and classifies
// failures so callers can decide how to surface them.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/trackerhq/tracker/internal/resilience"
)

const tracerName = "github.com/trackerhq/tracker/internal/backend"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// TokenSource supplies the bearer token for each request. An empty token
// omits the Authorization header.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

// Token returns the token.
func (t StaticToken) Token() string { return string(t) }

// ClientConfig holds configuration for the backend client.
type ClientConfig struct {
	// BaseURL is the backend origin, e.g. https://tracker.example.com.
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Tokens supplies the bearer token (optional).
	Tokens TokenSource

	Logger zerolog.Logger
}

// Client is a Tracker REST API client.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	tokens     TokenSource
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewClient creates a new backend client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig("tracker-backend"))
	}

	tokens := cfg.Tokens
	if tokens == nil {
		tokens = StaticToken("")
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		logger:     cfg.Logger,
		tracer:     otel.Tracer(tracerName),
	}
}

// HTTPClient exposes the underlying resilient client for health reporting.
func (c *Client) HTTPClient() *resilience.Client {
	return c.httpClient
}

// Get fetches path and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// Post sends in as JSON and decodes the response into out (which may be nil).
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out)
}

// Put sends in as JSON and decodes the response into out (which may be nil).
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, in, out)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// Upload posts r as a multipart form file under field and decodes the
// response into out.
func (c *Client) Upload(ctx context.Context, path, field, filename string, r io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("reading upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("closing multipart body: %w", err)
	}

	return c.do(ctx, http.MethodPost, path, mw.FormDataContentType(), buf.Bytes(), out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}
	return c.do(ctx, method, path, "application/json", body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	ctx, span := c.tracer.Start(ctx, "tracker.backend "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("backend request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("backend request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
		span.SetStatus(codes.Error, apiErr.Error())
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	return decode(resp.Body, out)
}

func decode(r io.Reader, out any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return &DecodeError{Reason: "reading body", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &DecodeError{Reason: "empty body"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &DecodeError{Field: typeErr.Field, Reason: "unexpected type " + typeErr.Value, Err: err}
		}
		return &DecodeError{Reason: "malformed JSON", Err: err}
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(data))
}

// PathID escapes an identifier for use as a single path segment.
func PathID(id string) string {
	return url.PathEscape(id)
}
