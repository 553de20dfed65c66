package manager

import (
	"time"

	"github.com/s3studio/baseline-manager/pkg/log"
	"github.com/s3studio/baseline-manager/pkg/store"
)

// Option configures optional behavior of a Manager.
type Option func(*options)

type options struct {
	logger          log.Logger
	registry        *store.Registry
	plugins         []Plugin
	storageDir      string
	discardInvalid  bool
	shutdownTimeout time.Duration
	stateHandler    StateHandler
}

// DefaultShutdownTimeout bounds how long Stop waits for plugins by default.
const DefaultShutdownTimeout = 30 * time.Second

func defaultOptions() options {
	return options{
		logger:          log.NewNoopLogger(),
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// WithLogger sets the logger for the manager, its bindings and plugins.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegistry makes the manager take its stores from r instead of a fresh
// registry.
func WithRegistry(r *store.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithPlugin registers a plugin to be initialized on Start.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(p Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, p)
	}
}

// WithStorageDir tells plugins which directory holds the slot files.
func WithStorageDir(dir string) Option {
	return func(o *options) {
		o.storageDir = dir
	}
}

// WithDiscardInvalid makes binding overwrite unusable snapshots with the
// defaults instead of failing New.
func WithDiscardInvalid(discard bool) Option {
	return func(o *options) {
		o.discardInvalid = discard
	}
}

// WithShutdownTimeout bounds how long Stop waits for plugins to shut down.
// Default: 30 seconds.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithStateHandler receives every plugin state transition, including the
// plugin and error behind a crash.
func WithStateHandler(h StateHandler) Option {
	return func(o *options) {
		o.stateHandler = h
	}
}
