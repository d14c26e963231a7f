// Package models defines the core domain models for the automation rule engine.
package models

import "time"

// RunAccess controls who may trigger a manual run. Scheduled and
// event-triggered runs are not subject to the actor check.
type RunAccess string

const (
	RunAccessMemberRunnable RunAccess = "member_runnable"
	RunAccessAdminOnly      RunAccess = "admin_only"
)

// CooldownSecMax caps cooldown_sec at 24 hours.
const CooldownSecMax = 24 * 3600

// Automation is a project-scoped rule: one trigger, one condition set, one
// action, plus guards and mutable execution state maintained by the engine.
type Automation struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"project_id"`
	Name        string       `json:"name"        validate:"required"`
	Description string       `json:"description"`
	Enabled     bool         `json:"enabled"`
	Trigger     TriggerSpec  `json:"trigger"`
	Conditions  ConditionSet `json:"conditions"`
	Action      Action       `json:"action"`
	CooldownSec int          `json:"cooldown_sec" validate:"gte=0,lte=86400"`
	RunAccess   RunAccess    `json:"run_access"`
	Tags        []string     `json:"tags,omitempty"`

	// Execution state, mutated by the engine on every non-simulated run.
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	LastStatus RunStatus  `json:"last_status,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty"`
	RunCount   int        `json:"run_count"`

	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
