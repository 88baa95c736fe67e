package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackerhq/tracker/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	t.Setenv("TRACKER_API_URL", "")
	t.Setenv("TRACKER_COLLAB_ADDR", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, filepath.Join("/tmp/xdg", "tracker", "settings.yaml"), cfg.SettingsPath)
	assert.Equal(t, filepath.Join("/tmp/xdg", "tracker", "timelines"), cfg.ReplicaDir)
	assert.Equal(t, config.LogFormatConsole, cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, uint64(2), cfg.HTTPMaxRetries)
	assert.False(t, cfg.UsesCollabServer())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TRACKER_API_URL", "https://tracker.example.com")
	t.Setenv("TRACKER_COLLAB_ADDR", "redis://collab:6379/0")
	t.Setenv("TRACKER_COLLAB_API_KEY", "secret")
	t.Setenv("TRACKER_HTTP_TIMEOUT", "3s")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://tracker.example.com", cfg.APIURL)
	assert.True(t, cfg.UsesCollabServer())
	assert.Equal(t, "secret", cfg.CollabAPIKey)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, config.LogFormatJSON, cfg.LogFormat)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("TRACKER_HTTP_TIMEOUT", "soon")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := config.Config{
		APIURL:      "not a url",
		LogFormat:   "xml",
		HTTPTimeout: time.Second,
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid API URL")
	assert.Contains(t, err.Error(), "unknown log format")
}
