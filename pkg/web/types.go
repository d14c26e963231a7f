// Package web provides the HTTP handlers and request types for the
// automation API.
package web

import "github.com/asklab/relay/pkg/models"

// CreateAutomationRequest is the body for creating an automation. Enabled
// defaults to true when omitted.
type CreateAutomationRequest struct {
	ProjectID   string              `json:"project_id"   validate:"required"`
	Name        string              `json:"name"         validate:"required"`
	Description string              `json:"description"`
	Enabled     *bool               `json:"enabled"`
	Trigger     models.TriggerSpec  `json:"trigger"`
	Conditions  models.ConditionSet `json:"conditions"`
	Action      models.Action       `json:"action"`
	CooldownSec int                 `json:"cooldown_sec"`
	RunAccess   models.RunAccess    `json:"run_access"`
	Tags        []string            `json:"tags"`
	Actor       string              `json:"actor"`
}

// UpdateAutomationRequest carries partial updates. Omitted fields keep their
// current value; execution state is never writable through the API.
type UpdateAutomationRequest struct {
	Name        *string              `json:"name,omitempty"`
	Description *string              `json:"description,omitempty"`
	Enabled     *bool                `json:"enabled,omitempty"`
	Trigger     *models.TriggerSpec  `json:"trigger,omitempty"`
	Conditions  *models.ConditionSet `json:"conditions,omitempty"`
	Action      *models.Action       `json:"action,omitempty"`
	CooldownSec *int                 `json:"cooldown_sec,omitempty"`
	RunAccess   *models.RunAccess    `json:"run_access,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Actor       string               `json:"actor"`
}

// RunAutomationRequest is the body for a manual run or a simulation.
type RunAutomationRequest struct {
	Actor        string              `json:"actor"`
	ActorIsAdmin bool                `json:"actor_is_admin"`
	Payload      models.EventPayload `json:"payload"`
}

// DispatchEventRequest is the body for injecting a domain event. Events are
// always project-scoped; the fan-out only reaches automations of ProjectID.
type DispatchEventRequest struct {
	ProjectID string              `json:"project_id" validate:"required"`
	Name      string              `json:"name"       validate:"required"`
	Payload   models.EventPayload `json:"payload"`
}

// CreatePresetRequest is the body for saving a new preset.
type CreatePresetRequest struct {
	ProjectID string                `json:"project_id" validate:"required"`
	Snapshot  models.PresetSnapshot `json:"snapshot"`
	Actor     string                `json:"actor"`
}

// UpdatePresetRequest replaces a preset's snapshot in full and appends one
// history entry.
type UpdatePresetRequest struct {
	Snapshot models.PresetSnapshot `json:"snapshot"`
	Note     string                `json:"note"`
	Actor    string                `json:"actor"`
}

// RollbackPresetRequest targets a version ordinal from the preset's history.
type RollbackPresetRequest struct {
	Ordinal int    `json:"ordinal" validate:"required,gte=1"`
	Actor   string `json:"actor"`
}

// ApplyPresetRequest instantiates a preset as a live automation.
type ApplyPresetRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	Name      string `json:"name"`
	Enabled   *bool  `json:"enabled"`
	Actor     string `json:"actor"`
}
