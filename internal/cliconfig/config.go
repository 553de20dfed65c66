package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"
)

// Storage backends accepted by --backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Backends lists the accepted storage backends.
var Backends = []string{BackendFile, BackendSQLite, BackendMemory}

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "BASELINE_MANAGER_"

// Config holds CLI configuration for baseline-manager.
type Config struct {
	Backend    string
	StorageDir string
	SQLitePath string

	LogLevel  string
	LogFormat string

	DiscardInvalid bool
	WatchDebounce  time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendFile,
		StorageDir:    "", // Derived from the home directory during Validate
		SQLitePath:    "", // Derived from the home directory during Validate
		LogLevel:      "info",
		LogFormat:     "console",
		WatchDebounce: 100 * time.Millisecond,
	}
}

// HomeDir returns the directory holding the config file and default slots.
// Returns ~/.baseline-manager if user home directory is accessible.
func HomeDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".baseline-manager")
	}
	return ""
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if !slices.Contains(Backends, c.Backend) {
		return fmt.Errorf("backend must be one of %v, got %q", Backends, c.Backend)
	}

	home := HomeDir()
	if c.StorageDir == "" && home != "" {
		c.StorageDir = filepath.Join(home, "slots")
	}
	if c.SQLitePath == "" && home != "" {
		c.SQLitePath = filepath.Join(home, "slots.db")
	}

	switch c.Backend {
	case BackendFile:
		if c.StorageDir == "" {
			return fmt.Errorf("storage-dir is required for the file backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite-path is required for the sqlite backend")
		}
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		return fmt.Errorf("log-level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("log-format must be console or json, got %q", c.LogFormat)
	}
	if c.WatchDebounce <= 0 {
		return fmt.Errorf("watch debounce must be positive")
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString parses a string to bool and sets the destination.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = b
	return nil
}
