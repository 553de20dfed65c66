// Package persist couples a store to a durable key-value slot.
//
// Bind installs itself as the store's committer, so every mutation writes one
// full snapshot of the state to the slot, and then rehydrates the store from
// whatever the slot already holds. With an empty slot the default state is
// written instead.
//
// # Usage
//
//	s := store.New(domain.UIStoreName, domain.DefaultUI)
//	b, err := persist.Bind(ctx, s, storage, domain.UIStorageKey,
//	    persist.WithValidator(domain.Validate),
//	    persist.WithLogger(logger),
//	)
//	if err != nil {
//	    return err // malformed snapshot or unreadable storage
//	}
//	defer b.Close()
//
// # Snapshot format
//
// Snapshots are JSON envelopes:
//
//	{"schema_version": 1, "store": "ui", "state": {...}}
//
// A document without schema_version is a version 0 snapshot and is passed to
// the binding's Migration before it is decoded. Decoding rejects unknown
// fields.
package persist
