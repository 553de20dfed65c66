package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/s3studio/baseline-manager/internal/domain"
	"github.com/s3studio/baseline-manager/internal/editor"
	"github.com/s3studio/baseline-manager/pkg/log"
	"github.com/s3studio/baseline-manager/pkg/persist"
	"github.com/s3studio/baseline-manager/pkg/store"
)

// Manager owns the stores of one process and keeps them bound to storage.
type Manager struct {
	opts     options
	logger   log.Logger
	storage  persist.Storage
	registry *store.Registry
	plugins  *pluginLifecycle

	conf        *store.Store[domain.ConfigurationState]
	ui          *store.Store[domain.UIState]
	confBinding *persist.Binding[domain.ConfigurationState]
	uiBinding   *persist.Binding[domain.UIState]
	editor      *editor.Service

	mu     sync.Mutex
	closed atomic.Bool
}

// New creates the configuration and UI stores, binds them to storage and
// returns a manager in the stopped state. A snapshot that cannot be used
// fails New unless WithDiscardInvalid is set.
func New(ctx context.Context, storage persist.Storage, opts ...Option) (*Manager, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = store.NewRegistry()
	}
	logger := o.logger

	conf, err := store.Use(o.registry, domain.ConfStoreName, domain.DefaultConf)
	if err != nil {
		return nil, err
	}
	ui, err := store.Use(o.registry, domain.UIStoreName, domain.DefaultUI)
	if err != nil {
		return nil, err
	}

	bindOpts := []persist.Option{
		persist.WithLogger(logger),
		persist.WithValidator(domain.Validate),
	}
	if o.discardInvalid {
		bindOpts = append(bindOpts, persist.WithDiscardInvalid())
	}

	confBinding, err := persist.Bind(ctx, conf, storage, domain.ConfStorageKey,
		append(bindOpts, persist.WithMigration(domain.MigrateConfSnapshot))...)
	if err != nil {
		return nil, err
	}
	uiBinding, err := persist.Bind(ctx, ui, storage, domain.UIStorageKey,
		append(bindOpts, persist.WithMigration(domain.MigrateUISnapshot))...)
	if err != nil {
		confBinding.Close()
		return nil, err
	}

	m := &Manager{
		opts:        o,
		logger:      logger,
		storage:     storage,
		registry:    o.registry,
		plugins:     newPluginLifecycle(logger, o.stateHandler),
		conf:        conf,
		ui:          ui,
		confBinding: confBinding,
		uiBinding:   uiBinding,
		editor:      editor.New(conf, ui, logger),
	}
	m.reportDanglingRefs()
	return m, nil
}

// Editor returns the editing service over the managed stores.
func (m *Manager) Editor() *editor.Service {
	return m.editor
}

// Conf returns the configuration store.
func (m *Manager) Conf() *store.Store[domain.ConfigurationState] {
	return m.conf
}

// UI returns the UI preference store.
func (m *Manager) UI() *store.Store[domain.UIState] {
	return m.ui
}

// Registry returns the registry holding the managed stores.
func (m *Manager) Registry() *store.Registry {
	return m.registry
}

// Keys returns the bound storage keys.
func (m *Manager) Keys() []string {
	return []string{domain.ConfStorageKey, domain.UIStorageKey}
}

// Writes returns the number of snapshots written per storage key.
func (m *Manager) Writes() map[string]uint64 {
	return map[string]uint64{
		domain.ConfStorageKey: m.confBinding.Writes(),
		domain.UIStorageKey:   m.uiBinding.Writes(),
	}
}

// State returns the plugin state.
func (m *Manager) State() State {
	return m.plugins.State()
}

// Rehydrate re-reads the slot of key and replaces the bound store's state if
// another process changed it.
func (m *Manager) Rehydrate(ctx context.Context, key string) (bool, error) {
	if m.closed.Load() {
		return false, ErrClosed
	}

	var (
		changed bool
		err     error
	)
	switch key {
	case domain.ConfStorageKey:
		changed, err = m.confBinding.Rehydrate(ctx)
		if changed {
			m.reportDanglingRefs()
		}
	case domain.UIStorageKey:
		changed, err = m.uiBinding.Rehydrate(ctx)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return changed, err
}

func (m *Manager) reportDanglingRefs() {
	refs := m.conf.State().DanglingListorRefs()
	if len(refs) == 0 {
		return
	}
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.String()
	}
	m.logger.Warn("configuration references missing listors",
		log.Store(domain.ConfStoreName),
		log.Int("count", len(refs)),
		log.Strings("refs", names),
	)
}

// Start initializes the registered plugins.
// Returns ErrAlreadyRunning if already started.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return ErrClosed
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := m.plugins.begin(cancel); err != nil {
		cancel()
		return err
	}

	cfg := PluginConfig{
		StorageDir: m.opts.storageDir,
		Keys:       m.Keys(),
		Logger:     m.logger,
		Rehydrate:  m.Rehydrate,
	}
	for i, p := range m.opts.plugins {
		if err := p.Initialize(runCtx, cfg); err != nil {
			m.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			_ = m.shutdownPlugins(context.Background(), m.opts.plugins[:i])
			_ = m.plugins.to(Transition{To: StateCrashed, Reason: ReasonPluginFailed, Plugin: p.Name(), Err: err})
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		m.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	return m.plugins.to(Transition{To: StateRunning, Reason: ReasonPluginsReady})
}

// Stop cancels the plugin context and shuts the plugins down in reverse
// order. Returns ErrNotRunning if not started, ErrShutdownTimeout if the
// plugins do not finish within the shutdown timeout.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	err := m.plugins.end()
	m.mu.Unlock()
	if err != nil {
		return ErrNotRunning
	}

	done := make(chan error, 1)
	go func() {
		done <- m.shutdownPlugins(ctx, m.opts.plugins)
	}()

	timer := time.NewTimer(m.opts.shutdownTimeout)
	defer timer.Stop()

	select {
	case shutdownErr := <-done:
		if err := m.plugins.to(Transition{To: StateStopped, Reason: ReasonPluginsStopped}); err != nil {
			return err
		}
		return shutdownErr
	case <-timer.C:
		m.logger.Warn("plugin shutdown timed out", log.Duration("timeout", m.opts.shutdownTimeout))
		_ = m.plugins.to(Transition{To: StateCrashed, Reason: ReasonShutdownTimeout})
		return ErrShutdownTimeout
	}
}

func (m *Manager) shutdownPlugins(ctx context.Context, plugins []Plugin) error {
	var errs []error
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			m.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			errs = append(errs, fmt.Errorf("plugin %s: %w", p.Name(), err))
			continue
		}
		m.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
	}
	return errors.Join(errs...)
}

// Close stops running plugins and detaches both stores from storage. Store
// state stays readable; later mutations are no longer persisted. Close does
// not close the storage.
func (m *Manager) Close() error {
	var err error
	if m.plugins.canStop() {
		err = m.Stop(context.Background())
	}

	if !m.closed.CompareAndSwap(false, true) {
		return err
	}
	m.confBinding.Close()
	m.uiBinding.Close()
	return err
}
