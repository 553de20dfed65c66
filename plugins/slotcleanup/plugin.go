// Package slotcleanup removes temporary files that interrupted slot writes
// leave behind in the slot directory.
package slotcleanup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	slotfs "github.com/s3studio/baseline-manager/internal/adapters/fs"
	"github.com/s3studio/baseline-manager/pkg/log"
	"github.com/s3studio/baseline-manager/pkg/manager"
)

const slotExt = ".json"

// Plugin implements slot directory cleanup.
// It periodically scans the slot directory and removes leftover temporary
// files older than the minimum age.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	schedule       string
	minAge         time.Duration
	runImmediately bool

	// Runtime state
	dir       string
	keys      []string
	logger    log.Logger
	scheduler *cron.Cron
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	now       func() time.Time

	removed int
}

// Config holds configuration options for the slot cleanup plugin.
type Config struct {
	// Schedule is a cron expression (standard five fields or a descriptor such as
	// "@every 30m") for when to scan the slot directory.
	// Default: "@hourly"
	Schedule string

	// MinAge is how old a temporary file must be before it is removed, so
	// that writes in flight in other processes are left alone.
	// Default: 10 minutes
	MinAge time.Duration

	// RunImmediately if true, runs a scan on startup.
	// Default: true
	RunImmediately bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Schedule:       "@hourly",
		MinAge:         10 * time.Minute,
		RunImmediately: true,
	}
}

// New creates a new slot cleanup plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.Schedule == "" {
		cfg.Schedule = "@hourly"
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = 10 * time.Minute
	}

	return &Plugin{
		schedule:       cfg.Schedule,
		minAge:         cfg.MinAge,
		runImmediately: cfg.RunImmediately,
		now:            time.Now,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "slotcleanup"
}

// Initialize sets up the plugin and schedules the cleanup job.
// Returns an error if the schedule cannot be parsed.
func (p *Plugin) Initialize(ctx context.Context, cfg manager.PluginConfig) error {
	sched, err := cron.ParseStandard(p.schedule)
	if err != nil {
		return fmt.Errorf("slot cleanup schedule %q: %w", p.schedule, err)
	}

	p.mu.Lock()
	p.dir = cfg.StorageDir
	p.keys = slices.Clone(cfg.Keys)
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.dir == "" {
		p.logger.Warn("slot cleanup disabled: no slot directory configured")
		return nil
	}

	cleanupCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.scheduler = cron.New()
	p.scheduler.Schedule(sched, cron.FuncJob(func() { p.cleanupOnce(cleanupCtx) }))
	p.scheduler.Start()

	p.logger.Info("slot cleanup plugin initialized",
		log.String("dir", p.dir),
		log.String("schedule", p.schedule))

	if p.runImmediately {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.cleanupOnce(cleanupCtx)
		}()
	}

	return nil
}

// Shutdown stops the scheduler and waits for a running scan to finish.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	if p.scheduler != nil {
		stopped := p.scheduler.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.wg.Wait()
	return nil
}

// Removed returns the number of temporary files removed so far.
func (p *Plugin) Removed() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.removed
}

// cleanupOnce performs a single scan of the slot directory.
func (p *Plugin) cleanupOnce(ctx context.Context) {
	p.mu.RLock()
	dir := p.dir
	keys := p.keys
	p.mu.RUnlock()

	scan, err := scanSlotDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		p.logger.Error("slot cleanup: scan failed", log.String("dir", dir), log.Err(err))
		return
	}

	if unknown := unknownSlots(scan.slots, keys); len(unknown) > 0 {
		p.logger.Debug("slot cleanup: slots not bound by this process", log.Strings("keys", unknown))
	}

	cutoff := p.now().Add(-p.minAge)
	var freed int64
	var count int
	for _, t := range scan.temps {
		if ctx.Err() != nil {
			return
		}
		if t.modTime.After(cutoff) {
			continue
		}
		if err := os.Remove(t.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			p.logger.Error("slot cleanup: remove failed", log.String("path", t.path), log.Err(err))
			continue
		}
		freed += t.size
		count++
	}

	if count > 0 {
		p.mu.Lock()
		p.removed += count
		p.mu.Unlock()
		p.logger.Info("slot cleanup completed",
			log.Int("files", count),
			log.String("freed", formatBytes(freed)))
	}
}

type tempFile struct {
	path    string
	size    int64
	modTime time.Time
}

type slotScan struct {
	slots []string
	temps []tempFile
}

func scanSlotDir(dir string) (slotScan, error) {
	var out slotScan
	ents, err := os.ReadDir(dir)
	if err != nil {
		return out, err
	}
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case slotfs.IsTempName(name):
			info, err := e.Info()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return out, err
			}
			out.temps = append(out.temps, tempFile{
				path:    filepath.Join(dir, name),
				size:    info.Size(),
				modTime: info.ModTime(),
			})
		case strings.HasSuffix(name, slotExt):
			out.slots = append(out.slots, strings.TrimSuffix(name, slotExt))
		}
	}
	sort.Strings(out.slots)
	return out, nil
}

// unknownSlots returns the slots not in keys.
func unknownSlots(slots, keys []string) []string {
	var out []string
	for _, s := range slots {
		if !slices.Contains(keys, s) {
			out = append(out, s)
		}
	}
	return out
}

func formatBytes(b int64) string {
	const (
		_          = iota
		KB float64 = 1 << (10 * iota)
		MB
	)

	fb := float64(b)
	switch {
	case fb >= MB:
		return fmt.Sprintf("%.2fMiB", fb/MB)
	case fb >= KB:
		return fmt.Sprintf("%.2fKiB", fb/KB)
	default:
		return fmt.Sprintf("%dB", b)
	}
}

// Ensure Plugin implements manager.Plugin.
var _ manager.Plugin = (*Plugin)(nil)
