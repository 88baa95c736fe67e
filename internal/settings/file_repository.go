package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileRepository stores settings as a YAML document on disk.
type FileRepository struct {
	path string
}

// NewFileRepository creates a repository backed by the file at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns the settings file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the settings file. A missing file yields zero settings.
func (r *FileRepository) Load(_ context.Context) (Settings, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", r.path, err)
	}
	return s, nil
}

// Save writes the settings file atomically with owner-only permissions.
func (r *FileRepository) Save(_ context.Context, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod settings: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
