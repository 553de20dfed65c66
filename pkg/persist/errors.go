package persist

import "errors"

var (
	// ErrMalformedSnapshot is returned when stored data does not decode into
	// the expected state shape or fails validation.
	ErrMalformedSnapshot = errors.New("persist: malformed snapshot")

	// ErrUnsupportedVersion is returned for snapshots written by a newer schema.
	ErrUnsupportedVersion = errors.New("persist: unsupported snapshot version")

	// ErrStorageUnavailable is returned when the storage backend rejects a
	// read or a write.
	ErrStorageUnavailable = errors.New("persist: storage unavailable")
)
