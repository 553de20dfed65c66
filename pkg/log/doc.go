// Package log provides the logging abstraction used across baseline-manager.
//
// The Logger interface keeps the store, the persistence binder and the
// plugins independent of a concrete logging library. A zerolog adapter and a
// no-op logger are provided.
//
// # Usage
//
// Build a zerolog-backed logger from level and format settings:
//
//	logger := log.New(log.Config{Level: "debug", Format: "console"})
//
// Or wrap an existing zerolog.Logger:
//
//	logger := log.NewZerologAdapterWithLogger(zl)
//
// Use the no-op logger in tests:
//
//	logger := log.NewNoopLogger()
package log
