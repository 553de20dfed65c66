package manager

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when plugins are already running.
	ErrAlreadyRunning = errors.New("manager: plugins already running")

	// ErrNotRunning is returned by Stop when plugins are not running.
	ErrNotRunning = errors.New("manager: plugins not running")

	// ErrShutdownTimeout is returned by Stop when plugins do not shut down in time.
	ErrShutdownTimeout = errors.New("manager: plugin shutdown timeout")

	// ErrUnknownKey is returned by Rehydrate for a key no store is bound to.
	ErrUnknownKey = errors.New("manager: no store bound to key")

	// ErrClosed is returned when using a manager after Close.
	ErrClosed = errors.New("manager: closed")
)
