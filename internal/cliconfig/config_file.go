package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Backend        string `toml:"backend"`
	StorageDir     string `toml:"storage_dir"`
	SQLitePath     string `toml:"sqlite_path"`
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
	DiscardInvalid *bool  `toml:"discard_invalid"`
	WatchDebounce  string `toml:"watch_debounce"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.baseline-manager/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h := HomeDir(); h != "" {
		return filepath.Join(h, "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("backend", fc.Backend, &cfg.Backend)
	s.setString("storage-dir", fc.StorageDir, &cfg.StorageDir)
	s.setString("sqlite-path", fc.SQLitePath, &cfg.SQLitePath)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setBool("discard-invalid", fc.DiscardInvalid, &cfg.DiscardInvalid)

	return s.setDuration("debounce", fc.WatchDebounce, &cfg.WatchDebounce)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
