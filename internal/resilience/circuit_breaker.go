// Package resilience wraps outbound HTTP calls to the Tracker backend with a
// circuit breaker, request timeouts and retry with exponential backoff.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig configures the breaker in front of the backend.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in logs.
	Name string

	// MaxRequests admitted while half-open. Default: 1
	MaxRequests uint32

	// Interval clears the counts while closed. Zero never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open. Default: 30 seconds
	Timeout time.Duration

	// ReadyToTrip decides when to open. Nil uses DefaultReadyToTrip.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// Logger receives state changes. The zero value discards them.
	Logger zerolog.Logger
}

// DefaultCircuitBreakerConfig returns the configuration used for the backend client.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: DefaultReadyToTrip,
	}
}

// DefaultReadyToTrip trips after at least 5 requests with a failure rate of 50% or more.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < 5 {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
}

// NewCircuitBreaker creates a breaker that logs its transitions. A request
// abandoned by its caller does not count against the backend.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	logger := cfg.Logger
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  cfg.MaxRequests,
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		ReadyToTrip:  cfg.ReadyToTrip,
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			ev := logger.Warn()
			if to == gobreaker.StateClosed {
				ev = logger.Info()
			}
			ev.Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("backend circuit breaker state changed")
		},
	})
}

func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
