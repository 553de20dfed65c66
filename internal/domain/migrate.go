package domain

import "encoding/json"

// MigrateConfSnapshot upgrades a configuration snapshot written at an older
// schema version. Version 0 snapshots come from the browser editor, whose
// store kept the tree under a "conf" member.
func MigrateConfSnapshot(version int, raw json.RawMessage) (json.RawMessage, error) {
	if version != 0 {
		return raw, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	if inner, ok := wrapped["conf"]; ok && len(wrapped) == 1 {
		return inner, nil
	}
	return raw, nil
}

// MigrateUISnapshot upgrades a UI snapshot written at an older schema
// version. The browser editor's layout is already the current one.
func MigrateUISnapshot(version int, raw json.RawMessage) (json.RawMessage, error) {
	return raw, nil
}
