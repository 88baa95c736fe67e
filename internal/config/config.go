// Package config loads Tracker client configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Log formats understood by the logging package.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Config holds all client configuration. It is read once at startup; the
// shells may override individual fields from command-line flags.
type Config struct {
	// APIURL is the base URL of the Tracker REST backend.
	APIURL string

	// CollabAddr is the real-time collaboration endpoint. Empty means issue
	// timelines are kept in a local replica directory.
	CollabAddr string
	// CollabAPIKey authenticates against CollabAddr.
	CollabAPIKey string

	// SettingsPath is the settings file (token, author, theme, checklists).
	SettingsPath string
	// ReplicaDir holds local timeline replicas when CollabAddr is empty.
	ReplicaDir string

	// ListenAddr is the bind address of the local web shell.
	ListenAddr string

	LogLevel    string
	LogFormat   string
	Environment string

	// OutboxDSN is a Postgres connection string for the write outbox.
	// Empty means pending writes are kept in memory.
	OutboxDSN string

	HTTPTimeout    time.Duration
	HTTPMaxRetries uint64

	TelemetryEnabled bool
	OTLPEndpoint     string
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	configDir := defaultConfigDir()

	timeout, err := time.ParseDuration(getEnvOrDefault("TRACKER_HTTP_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TRACKER_HTTP_TIMEOUT: %w", err)
	}

	retries, err := strconv.ParseUint(getEnvOrDefault("TRACKER_HTTP_MAX_RETRIES", "2"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse TRACKER_HTTP_MAX_RETRIES: %w", err)
	}

	cfg := Config{
		APIURL:           getEnvOrDefault("TRACKER_API_URL", "http://localhost:8080"),
		CollabAddr:       os.Getenv("TRACKER_COLLAB_ADDR"),
		CollabAPIKey:     os.Getenv("TRACKER_COLLAB_API_KEY"),
		SettingsPath:     getEnvOrDefault("TRACKER_SETTINGS", filepath.Join(configDir, "settings.yaml")),
		ReplicaDir:       getEnvOrDefault("TRACKER_REPLICA_DIR", filepath.Join(configDir, "timelines")),
		ListenAddr:       getEnvOrDefault("TRACKER_LISTEN_ADDR", "127.0.0.1:5173"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        getEnvOrDefault("LOG_FORMAT", LogFormatConsole),
		Environment:      getEnvOrDefault("APP_ENV", "development"),
		OutboxDSN:        os.Getenv("DATABASE_URL"),
		HTTPTimeout:      timeout,
		HTTPMaxRetries:   retries,
		TelemetryEnabled: os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint:     getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the client cannot work with.
func (c Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid API URL %q", c.APIURL))
	}

	switch c.LogFormat {
	case LogFormatJSON, LogFormatConsole:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}

	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP timeout must be positive"))
	}

	return errors.Join(errs...)
}

// UsesCollabServer reports whether timelines are shared through a real-time endpoint.
func (c Config) UsesCollabServer() bool {
	return c.CollabAddr != ""
}

func defaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "tracker")
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tracker")
	}
	return ".tracker"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
