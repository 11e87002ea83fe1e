// Package config persists the target repository settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNotConfigured is returned when owner or repo is missing. Remote
// operations cannot proceed without both.
var ErrNotConfigured = fmt.Errorf("repository not configured: run 'ghmark config set --owner <owner> --repo <repo>'")

// Config is the persisted mapping of target repository and defaults.
type Config struct {
	Owner       string   `yaml:"owner"`
	Repo        string   `yaml:"repo"`
	DefaultTags []string `yaml:"default_tags,omitempty"`
}

// Path returns the config file location: ~/.config/ghmark/config.yml.
func Path() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "ghmark", "config.yml"), nil
}

// Load reads the config from the default path. A missing file yields an
// empty config, not an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to the default path, creating the directory if
// needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to an explicit path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Complete reports whether both owner and repo are set.
func (c *Config) Complete() bool {
	return c.Owner != "" && c.Repo != ""
}

// Validate returns ErrNotConfigured unless the config is complete.
func (c *Config) Validate() error {
	if !c.Complete() {
		return ErrNotConfigured
	}
	return nil
}
