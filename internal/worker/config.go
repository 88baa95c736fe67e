// Package worker runs scheduled outbox flushes for the tracker worker binary.
package worker

import (
	"fmt"
	"os"
	"time"
)

// Config holds configuration for the flush job.
type Config struct {
	// Port serves /health.
	// Default: 8080
	Port string

	// Interval is the time between flushes.
	// Default: 30 seconds
	Interval time.Duration

	// Timeout bounds a single flush.
	// Default: 2 minutes
	Timeout time.Duration
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		Port:     "8080",
		Interval: 30 * time.Second,
		Timeout:  2 * time.Minute,
	}
}

// ConfigFromEnv reads APP_PORT, WORKER_FLUSH_INTERVAL and WORKER_FLUSH_TIMEOUT
// over the defaults.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if port := os.Getenv("APP_PORT"); port != "" {
		cfg.Port = port
	}

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"WORKER_FLUSH_INTERVAL", &cfg.Interval},
		{"WORKER_FLUSH_TIMEOUT", &cfg.Timeout},
	} {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("%s must be positive", d.key)
		}
		*d.dst = parsed
	}
	return cfg, nil
}
