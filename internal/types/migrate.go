package types

import (
	"strings"

	"github.com/google/uuid"
)

// Defaults substituted into legacy or malformed character records.
const (
	defaultName = "Unnamed Companion"
)

var defaultHairstyles = []string{"long straight hair", "loose waves", "high ponytail"}

// MigrateState upgrades a loaded document to the current schema. It reports
// whether anything changed so callers can decide to persist.
func MigrateState(state *AppState) bool {
	if state == nil {
		return false
	}
	changed := false
	if state.Characters == nil {
		state.Characters = []*Character{}
		changed = true
	}
	for _, c := range state.Characters {
		if MigrateCharacter(c) {
			changed = true
		}
	}
	return changed
}

// MigrateCharacter enforces the invariants every character must satisfy:
// a stable id, a non-empty profile name, and at least one hairstyle option.
// Records that needed defaults are flagged NeedsRefinement. Running the
// migration twice yields the same record as running it once.
func MigrateCharacter(c *Character) bool {
	if c == nil {
		return false
	}
	changed := false

	if strings.TrimSpace(c.ID) == "" {
		c.ID = uuid.NewString()
		changed = true
	}

	if strings.TrimSpace(c.Profile.BasicInfo.Name) == "" {
		c.Profile.BasicInfo.Name = defaultName
		c.NeedsRefinement = true
		changed = true
	}

	if len(c.Profile.PhysicalStyle.HairstyleOptions) == 0 {
		c.Profile.PhysicalStyle.HairstyleOptions = append([]string(nil), defaultHairstyles...)
		c.NeedsRefinement = true
		changed = true
	}

	if c.ChatHistory == nil {
		c.ChatHistory = []Message{}
		changed = true
	}
	if c.Media == nil {
		c.Media = []Media{}
		changed = true
	}

	// Power level is transient; a persisted value from a legacy blob is stale.
	if c.CurrentPowerLevel != PowerNone && !c.CurrentPowerLevel.Valid() {
		c.CurrentPowerLevel = PowerNone
		changed = true
	}

	return changed
}
