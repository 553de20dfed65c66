package domain

import (
	"fmt"
	"strconv"
)

// UIStoreName and UIStorageKey identify the UI preference store and its slot.
const (
	UIStoreName  = "ui"
	UIStorageKey = "ui-store"
)

// UIState holds editor preferences. Field names match the snapshots written
// by the browser editor.
type UIState struct {
	ThemeName                string `json:"themeName" validate:"required"`
	ExportAll                bool   `json:"exportAll"`
	OptionLocked             bool   `json:"optionLocked"`
	ProfileLocked            bool   `json:"profileLocked"`
	DeleteBaselineWithListor bool   `json:"deleteBaselineWithListor"`
}

// DefaultUI returns the default UI preferences.
func DefaultUI() UIState {
	return UIState{ThemeName: "dark"}
}

// Clone returns a copy of s. UIState has no reference fields.
func (s UIState) Clone() UIState {
	return s
}

// UIFields lists the names accepted by SetField.
var UIFields = []string{"themeName", "exportAll", "optionLocked", "profileLocked", "deleteBaselineWithListor"}

// SetField assigns a field by its snapshot name from its text form.
func (s *UIState) SetField(name, value string) error {
	if name == "themeName" {
		if value == "" {
			return fmt.Errorf("%w: themeName must not be empty", ErrInvalidState)
		}
		s.ThemeName = value
		return nil
	}

	var dst *bool
	switch name {
	case "exportAll":
		dst = &s.ExportAll
	case "optionLocked":
		dst = &s.OptionLocked
	case "profileLocked":
		dst = &s.ProfileLocked
	case "deleteBaselineWithListor":
		dst = &s.DeleteBaselineWithListor
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*dst = b
	return nil
}
