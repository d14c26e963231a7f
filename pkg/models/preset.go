package models

import "time"

// PresetSnapshot is the versioned subset of a preset: everything a user edits,
// nothing the store maintains. Versions embed it in full, never as a delta.
type PresetSnapshot struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Trigger     TriggerSpec  `json:"trigger"`
	Conditions  ConditionSet `json:"conditions"`
	Action      Action       `json:"action"`
	CooldownSec int          `json:"cooldown_sec"`
	RunAccess   RunAccess    `json:"run_access"`
	Tags        []string     `json:"tags,omitempty"`
}

// Preset is a detached, reusable automation-shaped template. Applying a preset
// to a live automation is a data copy performed by the caller; preset
// operations never touch live automations.
type Preset struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	PresetSnapshot

	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChangeType classifies why a preset version was appended.
type ChangeType string

const (
	ChangeTypeCreate   ChangeType = "create"
	ChangeTypeUpdate   ChangeType = "update"
	ChangeTypeRollback ChangeType = "rollback"
)

// PresetVersion is one immutable entry in a preset's append-only history.
// Ordinals are strictly increasing per preset; versions are never mutated or
// deleted, including by rollback, which only appends.
type PresetVersion struct {
	ID         string         `json:"id"`
	PresetID   string         `json:"preset_id"`
	Ordinal    int            `json:"ordinal"`
	Snapshot   PresetSnapshot `json:"snapshot"`
	ChangeType ChangeType     `json:"change_type"`
	Note       string         `json:"note,omitempty"`
	CreatedBy  string         `json:"created_by,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Snapshot extracts the versioned fields of a preset.
func (p *Preset) Snapshot() PresetSnapshot {
	return p.PresetSnapshot
}

// ApplySnapshot replaces the preset's versioned fields wholesale.
func (p *Preset) ApplySnapshot(s PresetSnapshot) {
	p.PresetSnapshot = s
}
