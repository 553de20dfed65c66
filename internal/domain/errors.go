package domain

import "errors"

// Domain errors represent error conditions raised while editing state.
// These errors can be checked with errors.Is.
var (
	// ErrInvalidState is returned when a state tree fails validation.
	ErrInvalidState = errors.New("domain: invalid state")

	// ErrOptionLocked is returned when output options are changed while locked.
	ErrOptionLocked = errors.New("domain: option is locked")

	// ErrProfileLocked is returned when profiles are changed while locked.
	ErrProfileLocked = errors.New("domain: profile is locked")

	// ErrUnknownProvider is returned for a profile key outside the provider set.
	ErrUnknownProvider = errors.New("domain: unknown provider")

	// ErrUnknownCloudType is returned for a cloud type outside the cloud type set.
	ErrUnknownCloudType = errors.New("domain: unknown cloud type")

	// ErrUnknownOutputFormat is returned for an output format other than csv or json.
	ErrUnknownOutputFormat = errors.New("domain: unknown output format")

	// ErrUnknownListor is returned when a checker references a listor id that does not exist.
	ErrUnknownListor = errors.New("domain: checker references unknown listor")

	// ErrListorNotFound is returned when a listor id is not present.
	ErrListorNotFound = errors.New("domain: listor not found")

	// ErrBaselineNotFound is returned when a baseline id is not present.
	ErrBaselineNotFound = errors.New("domain: baseline not found")

	// ErrUnknownField is returned when a named field does not exist on a state.
	ErrUnknownField = errors.New("domain: unknown field")
)
