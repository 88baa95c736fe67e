package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Predefined errors for resilient operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrBodyNotReplayable is returned when a retry needs the request body again
	// but the request carries no GetBody function.
	ErrBodyNotReplayable = errors.New("request body cannot be replayed")
)

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies this client for circuit breaker naming.
	Name string

	// Timeout is the request timeout for individual HTTP calls.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for idempotent
	// requests. Zero disables retries.
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval.
	// Default: 5 seconds
	MaxInterval time.Duration

	// CircuitBreaker is the circuit breaker configuration.
	// If nil, uses DefaultCircuitBreakerConfig.
	CircuitBreaker *CircuitBreakerConfig

	// Transport overrides the underlying round tripper (tests, instrumentation).
	Transport http.RoundTripper
}

// DefaultClientConfig returns the defaults used for the Tracker backend.
func DefaultClientConfig(name string) ClientConfig {
	cbConfig := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		CircuitBreaker:  &cbConfig,
	}
}

// Client is an HTTP client with circuit breaker and retry logic.
type Client struct {
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker[*http.Response]
	config         ClientConfig
}

// NewClient creates a new resilient HTTP client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}

	cbConfig := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
	}
	if cbConfig.ReadyToTrip == nil {
		cbConfig.ReadyToTrip = DefaultReadyToTrip
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		circuitBreaker: NewCircuitBreaker[*http.Response](cbConfig), //nolint:bodyclose // type param, not response
		config:         cfg,
	}
}

// Do executes an HTTP request with circuit breaker protection.
// Idempotent requests are retried on 5xx and network errors with exponential
// backoff; POST and PATCH are sent exactly once.
// Returns immediately with ErrCircuitOpen if the circuit breaker is open.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	retries := c.config.MaxRetries
	if !IsIdempotent(req.Method) {
		retries = 0
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx)

	var (
		lastResp *http.Response
		attempt  int
	)

	operation := func() error {
		attempt++
		attemptReq, err := c.prepareAttempt(ctx, req, attempt)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.circuitBreaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller is responsible for closing
			r, err := c.httpClient.Do(attemptReq)
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if resp != nil {
				replaceResponse(&lastResp, resp)
			}
			return err
		}

		replaceResponse(&lastResp, resp)
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		// A 5xx that exhausted retries is still a response the caller can read.
		var serverErr *ServerError
		if lastResp != nil && errors.As(err, &serverErr) {
			return lastResp, nil
		}
		if lastResp != nil {
			lastResp.Body.Close()
		}
		return nil, err
	}

	return lastResp, nil
}

// prepareAttempt clones req for the given attempt number, rewinding the body
// on retries.
func (c *Client) prepareAttempt(ctx context.Context, req *http.Request, attempt int) (*http.Request, error) {
	clone := req.Clone(ctx)
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, ErrBodyNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

func replaceResponse(slot **http.Response, resp *http.Response) {
	if *slot != nil && *slot != resp {
		(*slot).Body.Close()
	}
	*slot = resp
}

// IsIdempotent reports whether requests with the given method may be retried.
func IsIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}

// ServerError represents an HTTP 5xx server error.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// CircuitBreakerCounts returns the current counts of the circuit breaker.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.circuitBreaker.Counts()
}
