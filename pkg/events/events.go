// Package events defines the lifecycle and domain events the engine
// publishes and consumes.
package events

import (
	"time"

	"github.com/asklab/relay/pkg/models"
)

type EventType string

// Topic is the single bus topic all relay events flow through.
const Topic = "relay.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// DomainEventDispatchedEvent carries a user-defined project event
	// (from the API or a dispatch_event action) to the engine, which fans
	// it out to matching event-triggered automations.
	DomainEventDispatchedEvent EventType = "domain.event.dispatched"

	// Automation lifecycle events.
	AutomationTriggeredEvent   EventType = "automation.triggered"
	AutomationRunFinishedEvent EventType = "automation.run.finished"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	ProjectID string         `json:"project_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// DomainEventDispatched is the bus envelope for a project domain event.
// Origin and Depth travel with it so chained dispatches keep loop guards.
type DomainEventDispatched struct {
	BaseEvent

	Name    string              `json:"name"`
	Payload models.EventPayload `json:"payload,omitempty"`
	Origin  string              `json:"origin,omitempty"`
	Depth   int                 `json:"depth"`
}

func (e DomainEventDispatched) GetType() EventType {
	return DomainEventDispatchedEvent
}

type AutomationTriggered struct {
	BaseEvent

	AutomationID string               `json:"automation_id"`
	Source       models.TriggerSource `json:"source"`
	EventName    string               `json:"event_name,omitempty"`
}

func (e AutomationTriggered) GetType() EventType {
	return AutomationTriggeredEvent
}

type AutomationRunFinished struct {
	BaseEvent

	AutomationID string           `json:"automation_id"`
	RunID        string           `json:"run_id"`
	Status       models.RunStatus `json:"status"`
	Error        string           `json:"error,omitempty"`
	DurationMs   int64            `json:"duration_ms"`

	// Depth is the dispatch chain depth of the finished run, so reactions
	// to this event inherit the loop guard.
	Depth int `json:"depth"`
}

func (e AutomationRunFinished) GetType() EventType {
	return AutomationRunFinishedEvent
}
