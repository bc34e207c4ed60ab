// Package config handles closetmail configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the backend used when nothing else is configured.
	DefaultBaseURL = "http://localhost:8080"

	// MinTimeout and MaxTimeout bound api.timeout.
	MinTimeout = 1 * time.Second
	MaxTimeout = 60 * time.Second
)

// Config is the root configuration structure for closetmail.
type Config struct {
	// API settings for the messaging client.
	API APIConfig `yaml:"api" mapstructure:"api"`

	// Server settings for closetd.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// APIConfig contains client settings.
type APIConfig struct {
	// BaseURL is the root of the messaging backend.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// UserID identifies the current user (sent as X-USER-ID).
	UserID int64 `yaml:"user_id" mapstructure:"user_id"`

	// Timeout bounds every request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ServerConfig contains reference backend settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr" mapstructure:"addr"`

	// DatabasePath is the SQLite database file path.
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"`

	// SendRPS is the sustained per-user send rate.
	SendRPS float64 `yaml:"send_rps" mapstructure:"send_rps"`

	// SendBurst is the per-user send burst.
	SendBurst int `yaml:"send_burst" mapstructure:"send_burst"`

	// MaxPageSize caps the size query parameter.
	MaxPageSize int `yaml:"max_page_size" mapstructure:"max_page_size"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path. The TUI discards logs when empty.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// Theme is the color theme (default, high-contrast).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// StatePath is where drafts and the last thread are persisted.
	StatePath string `yaml:"state_path" mapstructure:"state_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "closetmail")

	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: 15 * time.Second,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			DatabasePath: filepath.Join(dataDir, "closetd.db"),
			SendRPS:      1,
			SendBurst:    5,
			MaxPageSize:  200,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
		TUI: TUIConfig{
			Theme:     "default",
			StatePath: filepath.Join(dataDir, "tui-state.json"),
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	base := strings.TrimSpace(c.API.BaseURL)
	if base == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", base)
	}

	if c.API.UserID < 0 {
		return fmt.Errorf("api.user_id must not be negative")
	}

	if c.API.Timeout < MinTimeout || c.API.Timeout > MaxTimeout {
		return fmt.Errorf("api.timeout must be between %s and %s", MinTimeout, MaxTimeout)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json")
	}

	if c.Server.SendRPS <= 0 {
		return fmt.Errorf("server.send_rps must be positive")
	}
	if c.Server.SendBurst < 1 {
		return fmt.Errorf("server.send_burst must be at least 1")
	}
	if c.Server.MaxPageSize < 1 {
		return fmt.Errorf("server.max_page_size must be at least 1")
	}

	return nil
}

// ValidateClient additionally requires a user for commands that talk to the
// backend.
func (c *Config) ValidateClient() error {
	if c.API.UserID <= 0 {
		return fmt.Errorf("api.user_id is required (set --user or CLOSETMAIL_API_USER_ID)")
	}
	return nil
}

// EnsureDirectories creates the parent directories of configured files.
func (c *Config) EnsureDirectories() error {
	files := []string{c.Server.DatabasePath, c.TUI.StatePath, c.Logging.File}
	for _, file := range files {
		if strings.TrimSpace(file) == "" {
			continue
		}
		dir := filepath.Dir(file)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
