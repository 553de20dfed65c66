package slotwatcher

import "github.com/s3studio/baseline-manager/pkg/manager"

// WithSlotWatcher returns a manager Option that reloads stores when their
// slot files change on disk.
//
// Usage:
//
//	m, err := manager.New(ctx, storage,
//	    manager.WithStorageDir(dir),
//	    slotwatcher.WithSlotWatcher(slotwatcher.Config{
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithSlotWatcher(cfg Config) manager.Option {
	return manager.WithPlugin(New(cfg))
}
