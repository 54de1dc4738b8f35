// Package yaml reads and writes the client configuration file.
package yaml

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fwojciec/parley"
	"gopkg.in/yaml.v3"
)

// file is the on-disk layout of the configuration.
type file struct {
	BaseURL   string `yaml:"base_url,omitempty"`
	SessionID string `yaml:"session_id,omitempty"`
	Token     string `yaml:"token,omitempty"`
}

// DefaultPath returns ~/.parley/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("yaml: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".parley", "config.yaml"), nil
}

// Load reads the configuration at path. A missing file yields a zero Config.
func Load(path string) (parley.Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return parley.Config{}, nil
	}
	if err != nil {
		return parley.Config{}, fmt.Errorf("yaml: read config: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return parley.Config{}, fmt.Errorf("yaml: parse config: %w", err)
	}
	return parley.Config{BaseURL: f.BaseURL, SessionID: f.SessionID, Token: f.Token}, nil
}

// Save writes cfg to path with 0600 permissions, creating parent
// directories as needed.
func Save(path string, cfg parley.Config) error {
	data, err := yaml.Marshal(file{BaseURL: cfg.BaseURL, SessionID: cfg.SessionID, Token: cfg.Token})
	if err != nil {
		return fmt.Errorf("yaml: marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("yaml: create directories: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("yaml: write config: %w", err)
	}
	return nil
}
