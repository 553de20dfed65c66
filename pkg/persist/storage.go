package persist

import "context"

// Storage is a durable key-value slot backend.
// Implementations must make Write atomic per key: a reader sees either the
// previous value or the new one.
type Storage interface {
	// Read returns the value stored under key.
	// ok is false and err nil when the key has never been written.
	Read(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Write replaces the value stored under key.
	Write(ctx context.Context, key string, data []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
