// Package config provides configuration loading for wrapup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config is the top-level wrapup configuration.
type Config struct {
	GitHub  GitHubConfig  `koanf:"github"`
	Session SessionConfig `koanf:"session"`
	Specs   SpecsConfig   `koanf:"specs"`
	Logging LoggingConfig `koanf:"logging"`
}

// GitHubConfig holds issue-tracker and PR host settings.
type GitHubConfig struct {
	// Token authenticates against the GitHub API.
	Token Secret `koanf:"token"`

	// Owner is the repository owner (user or org).
	Owner string `koanf:"owner"`

	// Repo is the repository name.
	Repo string `koanf:"repo"`

	// BaseBranch is the branch pull requests target. Defaults to "main".
	BaseBranch string `koanf:"base_branch"`

	// RequestsPerSecond caps outgoing API calls. Defaults to 5.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// SessionConfig locates the active session pointer file.
type SessionConfig struct {
	// PointerPath is the JSON file holding the active session record.
	// Defaults to .wrapup/session.json under the working tree.
	PointerPath string `koanf:"pointer_path"`
}

// SpecsConfig locates speckit feature directories.
type SpecsConfig struct {
	// Dir is the root directory holding specs/<feature_id>/tasks.md
	// ledgers. Defaults to "specs".
	Dir string `koanf:"dir"`
}

// LoggingConfig controls the CLI logger.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.GitHub.Owner == "" {
		return fmt.Errorf("github.owner is required")
	}
	if c.GitHub.Repo == "" {
		return fmt.Errorf("github.repo is required")
	}
	if c.GitHub.RequestsPerSecond <= 0 {
		return fmt.Errorf("github.requests_per_second must be > 0, got %v", c.GitHub.RequestsPerSecond)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.GitHub.BaseBranch == "" {
		cfg.GitHub.BaseBranch = "main"
	}
	if cfg.GitHub.RequestsPerSecond == 0 {
		cfg.GitHub.RequestsPerSecond = 5
	}
	if cfg.Session.PointerPath == "" {
		cfg.Session.PointerPath = filepath.Join(".wrapup", "session.json")
	}
	if cfg.Specs.Dir == "" {
		cfg.Specs.Dir = "specs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// DefaultPath returns the default config file location
// (~/.config/wrapup/config.yaml).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "wrapup", "config.yaml"), nil
}
