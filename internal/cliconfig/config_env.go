package cliconfig

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// ApplyEnvConfig applies configuration from environment variables
// (BASELINE_MANAGER_*). It respects flags that have been explicitly set
// (changed map). Returns error if any environment variable has an invalid
// format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("backend", os.Getenv(EnvPrefix+"BACKEND"), &cfg.Backend)
	s.setString("storage-dir", os.Getenv(EnvPrefix+"STORAGE_DIR"), &cfg.StorageDir)
	s.setString("sqlite-path", os.Getenv(EnvPrefix+"SQLITE_PATH"), &cfg.SQLitePath)
	s.setString("log-level", os.Getenv(EnvPrefix+"LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv(EnvPrefix+"LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setBoolFromString("discard-invalid", os.Getenv(EnvPrefix+"DISCARD_INVALID"), &cfg.DiscardInvalid); err != nil {
		return err
	}
	return s.setDuration("debounce", os.Getenv(EnvPrefix+"WATCH_DEBOUNCE"), &cfg.WatchDebounce)
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Variables already set are kept. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}
