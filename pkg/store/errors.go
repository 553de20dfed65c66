package store

import "errors"

var (
	// ErrCommitterSet is returned when a committer is installed on a store
	// that already has one.
	ErrCommitterSet = errors.New("store: committer already set")

	// ErrTypeMismatch is returned when a registry name is reused for a
	// different state type.
	ErrTypeMismatch = errors.New("store: state type mismatch")
)
