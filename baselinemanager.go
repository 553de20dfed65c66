// Package baselinemanager opens the persisted configuration and UI stores of
// the baseline editor on one of the supported storage backends.
//
// Example usage:
//
//	inst, err := baselinemanager.Open(ctx, baselinemanager.Config{
//	    Backend:    baselinemanager.BackendFile,
//	    StorageDir: "/var/lib/baseline-manager",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close()
//
//	err = inst.Editor().SetOption(ctx, "output_format", "json")
package baselinemanager

import (
	"context"
	"errors"
	"fmt"

	"github.com/s3studio/baseline-manager/internal/adapters/fs"
	"github.com/s3studio/baseline-manager/internal/adapters/memory"
	"github.com/s3studio/baseline-manager/internal/adapters/sqlite"
	"github.com/s3studio/baseline-manager/pkg/log"
	"github.com/s3studio/baseline-manager/pkg/manager"
	"github.com/s3studio/baseline-manager/pkg/persist"
	"github.com/s3studio/baseline-manager/plugins/slotcleanup"
	"github.com/s3studio/baseline-manager/plugins/slotwatcher"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ErrFileBackendRequired is returned when slot watching or cleanup is
// requested for a backend that does not keep one file per slot.
var ErrFileBackendRequired = errors.New("baselinemanager: watch and cleanup require the file backend")

// Config selects the storage backend and the optional behavior of an Instance.
type Config struct {
	// Backend is one of file, sqlite, memory. Default: file.
	Backend string

	// StorageDir holds one <key>.json file per slot for the file backend.
	StorageDir string

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string

	// DiscardInvalid replaces unusable snapshots with defaults instead of
	// failing Open.
	DiscardInvalid bool

	// Watch reloads stores when another process rewrites their slot files.
	Watch bool

	// WatchConfig tunes the slot watcher. Zero values take the defaults.
	WatchConfig slotwatcher.Config

	// Cleanup removes temporary files left by interrupted slot writes while
	// the instance is started.
	Cleanup bool

	CleanupConfig slotcleanup.Config

	Logger log.Logger
}

// Storage is a slot backend that can list its keys and be closed.
type Storage interface {
	persist.Storage
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// OpenStorage opens the slot backend selected by cfg.
func OpenStorage(cfg Config) (Storage, error) {
	switch cfg.Backend {
	case "", BackendFile:
		if cfg.StorageDir == "" {
			return nil, fmt.Errorf("baselinemanager: storage dir is required for the file backend")
		}
		return fs.NewSlotDirectory(cfg.StorageDir), nil
	case BackendSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("baselinemanager: sqlite path is required for the sqlite backend")
		}
		return sqlite.Open(cfg.SQLitePath)
	case BackendMemory:
		return memory.NewSlotMap(), nil
	default:
		return nil, fmt.Errorf("baselinemanager: unknown backend %q", cfg.Backend)
	}
}

// Instance is a Manager together with the storage it owns.
type Instance struct {
	*manager.Manager
	storage Storage
}

// Open opens the storage described by cfg and binds both stores to it.
// Extra options are passed to manager.New after the ones derived from cfg.
func Open(ctx context.Context, cfg Config, opts ...manager.Option) (*Instance, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendFile
	}
	if (cfg.Watch || cfg.Cleanup) && backend != BackendFile {
		return nil, ErrFileBackendRequired
	}

	storage, err := OpenStorage(cfg)
	if err != nil {
		return nil, err
	}

	mopts := []manager.Option{
		manager.WithLogger(cfg.Logger),
		manager.WithDiscardInvalid(cfg.DiscardInvalid),
	}
	if backend == BackendFile {
		mopts = append(mopts, manager.WithStorageDir(cfg.StorageDir))
	}
	if cfg.Watch {
		mopts = append(mopts, slotwatcher.WithSlotWatcher(cfg.WatchConfig))
	}
	if cfg.Cleanup {
		mopts = append(mopts, slotcleanup.WithSlotCleanup(cfg.CleanupConfig))
	}
	mopts = append(mopts, opts...)

	m, err := manager.New(ctx, storage, mopts...)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	return &Instance{Manager: m, storage: storage}, nil
}

// Storage returns the backend the instance persists to.
func (i *Instance) Storage() Storage {
	return i.storage
}

// Close stops the manager and closes the storage.
func (i *Instance) Close() error {
	return errors.Join(i.Manager.Close(), i.storage.Close())
}
