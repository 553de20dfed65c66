package cliconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"BASELINE_MANAGER_BACKEND":         "memory",
				"BASELINE_MANAGER_STORAGE_DIR":     "/env/slots",
				"BASELINE_MANAGER_SQLITE_PATH":     "/env/slots.db",
				"BASELINE_MANAGER_LOG_LEVEL":       "error",
				"BASELINE_MANAGER_LOG_FORMAT":      "json",
				"BASELINE_MANAGER_DISCARD_INVALID": "true",
				"BASELINE_MANAGER_WATCH_DEBOUNCE":  "2s",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Backend:        "memory",
				StorageDir:     "/env/slots",
				SQLitePath:     "/env/slots.db",
				LogLevel:       "error",
				LogFormat:      "json",
				DiscardInvalid: true,
				WatchDebounce:  2 * time.Second,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"BASELINE_MANAGER_BACKEND":   "memory",
				"BASELINE_MANAGER_LOG_LEVEL": "debug",
			},
			changed:  map[string]bool{"log-level": true},
			initial:  Config{LogLevel: "warn"},
			expected: Config{Backend: "memory", LogLevel: "warn"},
		},
		{
			name:    "invalid bool",
			envVars: map[string]string{"BASELINE_MANAGER_DISCARD_INVALID": "perhaps"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "invalid duration",
			envVars: map[string]string{"BASELINE_MANAGER_WATCH_DEBOUNCE": "later"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "BASELINE_MANAGER_BACKEND=sqlite\nBASELINE_MANAGER_LOG_LEVEL=debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	// Already-set variables win over the file.
	t.Setenv("BASELINE_MANAGER_LOG_LEVEL", "warn")
	t.Setenv("BASELINE_MANAGER_BACKEND", "")
	os.Unsetenv("BASELINE_MANAGER_BACKEND")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}

	if got := os.Getenv("BASELINE_MANAGER_BACKEND"); got != "sqlite" {
		t.Errorf("BACKEND = %q, want sqlite", got)
	}
	if got := os.Getenv("BASELINE_MANAGER_LOG_LEVEL"); got != "warn" {
		t.Errorf("LOG_LEVEL = %q, want warn", got)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	logger := Logger(cfg, &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %s", out)
	}
	if !strings.Contains(out, `"message":"shown"`) {
		t.Errorf("warn line missing: %s", out)
	}
}
