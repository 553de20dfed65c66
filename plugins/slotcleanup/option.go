package slotcleanup

import "github.com/s3studio/baseline-manager/pkg/manager"

// WithSlotCleanup returns a manager Option that periodically removes
// temporary files left in the slot directory by interrupted writes.
//
// Usage:
//
//	m, err := manager.New(ctx, storage,
//	    manager.WithStorageDir(dir),
//	    slotcleanup.WithSlotCleanup(slotcleanup.Config{
//	        Schedule: "@every 30m",
//	        MinAge:   10 * time.Minute,
//	    }),
//	)
func WithSlotCleanup(cfg Config) manager.Option {
	return manager.WithPlugin(New(cfg))
}
