// Package slotwatcher reloads stores when their slot files are changed by
// another process. It watches the slot directory of the file backend and
// rehydrates the store bound to a file shortly after the file settles.
package slotwatcher

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/s3studio/baseline-manager/internal/adapters/fs"
	"github.com/s3studio/baseline-manager/pkg/log"
	"github.com/s3studio/baseline-manager/pkg/manager"
	"github.com/s3studio/baseline-manager/pkg/persist"
)

// Plugin implements slot file watching.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	debounceDelay    time.Duration
	retryInterval    time.Duration
	maxRetryInterval time.Duration
	maxRetries       int

	// Runtime state
	dir       string
	slots     *fs.SlotDirectory
	keys      map[string]struct{}
	rehydrate func(ctx context.Context, key string) (bool, error)
	logger    log.Logger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	timers    map[string]*time.Timer
	reloads   int
}

// Config holds configuration options for the slot watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// RetryInterval is the first delay between reload attempts when the slot
	// cannot be read. Default: 500 milliseconds
	RetryInterval time.Duration

	// MaxRetryInterval caps the delay between reload attempts.
	// Default: 10 seconds
	MaxRetryInterval time.Duration

	// MaxRetries is the number of retries after a failed read.
	// Default: 5
	MaxRetries int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay:    100 * time.Millisecond,
		RetryInterval:    500 * time.Millisecond,
		MaxRetryInterval: 10 * time.Second,
		MaxRetries:       5,
	}
}

// New creates a new slot watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = def.DebounceDelay
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.MaxRetryInterval < cfg.RetryInterval {
		cfg.MaxRetryInterval = max(def.MaxRetryInterval, cfg.RetryInterval)
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &Plugin{
		debounceDelay:    cfg.DebounceDelay,
		retryInterval:    cfg.RetryInterval,
		maxRetryInterval: cfg.MaxRetryInterval,
		maxRetries:       cfg.MaxRetries,
		timers:           make(map[string]*time.Timer),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "slotwatcher"
}

// Initialize starts watching the slot directory.
// Without a slot directory the plugin stays idle.
func (p *Plugin) Initialize(ctx context.Context, cfg manager.PluginConfig) error {
	p.mu.Lock()
	p.dir = cfg.StorageDir
	p.slots = fs.NewSlotDirectory(cfg.StorageDir)
	p.rehydrate = cfg.Rehydrate
	p.logger = cfg.Logger
	if p.logger == nil {
		p.logger = log.NewNoopLogger()
	}
	p.keys = make(map[string]struct{}, len(cfg.Keys))
	for _, k := range cfg.Keys {
		p.keys[k] = struct{}{}
	}
	p.mu.Unlock()

	if p.dir == "" || p.rehydrate == nil {
		p.logger.Warn("slot watcher disabled: storage backend has no slot directory")
		return nil
	}

	if err := os.MkdirAll(p.dir, 0o700); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(p.dir); err != nil {
		_ = watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("slot watcher started", log.String("dir", p.dir), log.Int("keys", len(p.keys)))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the watcher and waits for pending reloads.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	p.mu.Lock()
	for key, t := range p.timers {
		if t.Stop() {
			p.wg.Done()
		}
		delete(p.timers, key)
	}
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// Reloads returns how many times a changed slot replaced store state.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			key, ok := p.keyFor(event.Name)
			if !ok {
				continue
			}
			p.debounceReload(ctx, key)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("slot watcher error", log.Err(err))
		}
	}
}

// keyFor maps a watched path to a bound store key. Temp files written by
// the slot directory are not slot files and map to nothing.
func (p *Plugin) keyFor(path string) (string, bool) {
	key, ok := p.slots.KeyFromPath(path)
	if !ok {
		return "", false
	}
	_, ok = p.keys[key]
	return key, ok
}

func (p *Plugin) debounceReload(ctx context.Context, key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if t, ok := p.timers[key]; ok && t.Stop() {
		p.wg.Done()
	}

	p.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(p.debounceDelay, func() {
		defer p.wg.Done()
		p.mu.Lock()
		if p.timers[key] == t {
			delete(p.timers, key)
		}
		p.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		p.reloadWithRetry(ctx, key)
	})
	p.timers[key] = t
}

// reloadWithRetry rehydrates key, retrying with backoff while the slot
// cannot be read. Malformed snapshots are logged and not retried.
func (p *Plugin) reloadWithRetry(ctx context.Context, key string) {
	backoff := newRetryBackoff(p.retryInterval, p.maxRetryInterval)

	for attempt := 0; ; attempt++ {
		changed, err := p.rehydrate(ctx, key)
		switch {
		case err == nil:
			if changed {
				p.mu.Lock()
				p.reloads++
				p.mu.Unlock()
				p.logger.Info("slot changed on disk, store reloaded", log.Key(key))
			}
			return

		case errors.Is(err, persist.ErrStorageUnavailable) && attempt < p.maxRetries:
			p.logger.Warn("slot reload failed, retrying",
				log.Key(key),
				log.Int("attempt", attempt+1),
				log.Duration("backoff", backoff.current()),
				log.Err(err))
			if backoff.wait(ctx) != nil {
				return
			}

		default:
			p.logger.Error("slot reload failed", log.Key(key), log.Err(err))
			return
		}
	}
}

// Ensure Plugin implements manager.Plugin.
var _ manager.Plugin = (*Plugin)(nil)
