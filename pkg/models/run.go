package models

import "time"

// RunStatus is the outcome of a single run attempt.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
	RunStatusSimulated RunStatus = "simulated"
)

// TriggerSource records what initiated a run attempt.
type TriggerSource string

const (
	TriggeredByManual     TriggerSource = "manual"
	TriggeredByEvent      TriggerSource = "event"
	TriggeredBySchedule   TriggerSource = "schedule"
	TriggeredBySimulation TriggerSource = "simulation"
)

// RunRecord is one persisted run attempt. Simulated records are returned to
// the caller and never counted toward the automation's last_* fields.
type RunRecord struct {
	ID           string         `json:"id"`
	AutomationID string         `json:"automation_id"`
	ProjectID    string         `json:"project_id"`
	Status       RunStatus      `json:"status"`
	TriggeredBy  TriggerSource  `json:"triggered_by"`
	Actor        string         `json:"actor,omitempty"`
	EventType    string         `json:"event_type,omitempty"`
	EventPayload EventPayload   `json:"event_payload,omitempty"`
	Result       map[string]any `json:"result,omitempty"`
	Diagnostics  []string       `json:"diagnostics,omitempty"`
	Error        string         `json:"error,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	DurationMs   int64          `json:"duration_ms"`
}
