package manager

import (
	"context"

	"github.com/s3studio/baseline-manager/pkg/log"
)

// Plugin is a background component started and stopped with the manager.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize starts the plugin. ctx is canceled when the manager stops.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and waits for its goroutines.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to every plugin on Initialize.
type PluginConfig struct {
	// StorageDir is the slot directory when the file backend is used, empty
	// otherwise.
	StorageDir string

	// Keys lists the bound storage keys.
	Keys []string

	Logger log.Logger

	// Rehydrate re-reads key and replaces its store state when the slot
	// changed outside this process.
	Rehydrate func(ctx context.Context, key string) (bool, error)
}
