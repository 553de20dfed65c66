package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SchemaVersion is written into every snapshot envelope.
const SchemaVersion = 1

// Migration upgrades the raw state of a snapshot written at an older schema
// version to the current layout.
type Migration func(version int, raw json.RawMessage) (json.RawMessage, error)

type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Store         string          `json:"store"`
	State         json.RawMessage `json:"state"`
}

// Encode serializes state into a snapshot envelope for the named store.
func Encode[T any](storeName string, state T) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		SchemaVersion: SchemaVersion,
		Store:         storeName,
		State:         raw,
	})
}

// Decode parses a snapshot for the named store. Older snapshots go through
// migrate first when it is non-nil.
func Decode[T any](storeName string, data []byte, migrate Migration) (T, error) {
	var out T

	version, raw, err := unwrap(storeName, data)
	if err != nil {
		return out, err
	}

	if version < SchemaVersion && migrate != nil {
		raw, err = migrate(version, raw)
		if err != nil {
			return out, fmt.Errorf("%w: migrate from version %d: %w", ErrMalformedSnapshot, version, err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	if dec.More() {
		return out, fmt.Errorf("%w: trailing data after state", ErrMalformedSnapshot)
	}
	return out, nil
}

// unwrap returns the schema version and raw state of a snapshot.
func unwrap(storeName string, data []byte) (int, json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	if fields == nil {
		return 0, nil, fmt.Errorf("%w: snapshot is null", ErrMalformedSnapshot)
	}
	if _, ok := fields["schema_version"]; !ok {
		return 0, data, nil
	}

	var env envelope
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return 0, nil, fmt.Errorf("%w: envelope: %w", ErrMalformedSnapshot, err)
	}

	switch {
	case env.SchemaVersion > SchemaVersion:
		return 0, nil, fmt.Errorf("%w: %d (newest known %d)", ErrUnsupportedVersion, env.SchemaVersion, SchemaVersion)
	case env.SchemaVersion < 1:
		return 0, nil, fmt.Errorf("%w: schema_version %d", ErrMalformedSnapshot, env.SchemaVersion)
	case env.Store != "" && env.Store != storeName:
		return 0, nil, fmt.Errorf("%w: snapshot belongs to store %q", ErrMalformedSnapshot, env.Store)
	case len(env.State) == 0 || bytes.Equal(env.State, []byte("null")):
		return 0, nil, fmt.Errorf("%w: missing state", ErrMalformedSnapshot)
	}
	return env.SchemaVersion, env.State, nil
}
