package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/asklab/relay/pkg/eventbus"
	"github.com/asklab/relay/pkg/events"
	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/schedule"
	"github.com/google/uuid"
)

// RunByID loads an automation and runs it. The web layer uses this for
// manual runs and simulations.
func (e *Engine) RunByID(ctx context.Context, automationID string, req RunRequest) (*models.RunRecord, error) {
	automation, err := e.persistence.AutomationRepository().GetByID(ctx, automationID)
	if err != nil {
		return nil, err
	}

	req.Automation = automation

	return e.Run(ctx, req)
}

// FanOutEvent runs every enabled automation of the payload's project whose
// event trigger matches the event name. Events are strictly project-scoped;
// the payload must carry project_id. The origin automation never reacts to
// its own chain.
func (e *Engine) FanOutEvent(ctx context.Context, name string, payload models.EventPayload, origin string, depth int) ([]*models.RunRecord, error) {
	if depth > models.DispatchDepthMax {
		return nil, fmt.Errorf("%w: depth %d exceeds limit %d", ErrDispatchLoop, depth, models.DispatchDepthMax)
	}

	project := payload.String(models.PayloadProjectID)
	if project == "" {
		return nil, fmt.Errorf("event %s has no project scope", name)
	}

	automations, err := e.persistence.AutomationRepository().ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]*models.RunRecord, 0)

	for _, automation := range automations {
		if !schedule.MatchesEvent(automation.Trigger.Trigger, name) {
			continue
		}

		if automation.ProjectID != project {
			continue
		}

		if automation.ID == origin {
			e.logger.InfoContext(ctx, "Skipping origin automation in event fan-out",
				"automation_id", automation.ID, "event", name)

			continue
		}

		record, err := e.Run(ctx, RunRequest{
			Automation: automation,
			Source:     models.TriggeredByEvent,
			EventType:  name,
			Payload:    payload,
			Origin:     origin,
			Depth:      depth,
		})
		if err != nil {
			e.logger.ErrorContext(ctx, "Event-triggered run failed to start",
				"automation_id", automation.ID, "event", name, "error", err)

			continue
		}

		records = append(records, record)
	}

	return records, nil
}

// BindBus subscribes the engine to domain events and run lifecycle events
// on the bus.
func (e *Engine) BindBus(bus eventbus.EventBus) error {
	err := bus.Handle(events.DomainEventDispatchedEvent, func(ctx context.Context, event any) error {
		dispatched, ok := event.(*events.DomainEventDispatched)
		if !ok {
			return fmt.Errorf("unexpected event payload %T", event)
		}

		_, err := e.FanOutEvent(ctx, dispatched.Name, dispatched.Payload, dispatched.Origin, dispatched.Depth)

		return err
	})
	if err != nil {
		return err
	}

	return bus.Handle(events.AutomationRunFinishedEvent, func(ctx context.Context, event any) error {
		finished, ok := event.(*events.AutomationRunFinished)
		if !ok {
			return fmt.Errorf("unexpected event payload %T", event)
		}

		return e.fanOutRunFinished(ctx, finished)
	})
}

// fanOutRunFinished turns terminal run outcomes into domain events so other
// automations can react to them. The finished automation is the origin of
// the new chain and its depth carries over, so reaction chains stay bounded.
func (e *Engine) fanOutRunFinished(ctx context.Context, finished *events.AutomationRunFinished) error {
	var name string

	switch finished.Status {
	case models.RunStatusSucceeded:
		name = "automation.run.succeeded"
	case models.RunStatusFailed:
		name = "automation.run.failed"
	default:
		return nil
	}

	payload := models.EventPayload{
		"automation_id":         finished.AutomationID,
		"run_id":                finished.RunID,
		"status":                string(finished.Status),
		"duration_ms":           finished.DurationMs,
		models.PayloadProjectID: finished.ProjectID,
	}
	if finished.Error != "" {
		payload[models.PayloadMessage] = finished.Error
	}

	_, err := e.FanOutEvent(ctx, name, payload, finished.AutomationID, finished.Depth+1)
	if errors.Is(err, ErrDispatchLoop) {
		e.logger.WarnContext(ctx, "Dropping run lifecycle fan-out at depth limit",
			"automation_id", finished.AutomationID, "event", name)

		return nil
	}

	return err
}

// PublishDomainEvent puts a domain event on the bus, or fans out inline when
// no bus is configured.
func (e *Engine) PublishDomainEvent(ctx context.Context, name string, payload models.EventPayload, origin string, depth int) error {
	if depth > models.DispatchDepthMax {
		return fmt.Errorf("%w: depth %d exceeds limit %d", ErrDispatchLoop, depth, models.DispatchDepthMax)
	}

	if e.bus == nil {
		_, err := e.FanOutEvent(ctx, name, payload, origin, depth)

		return err
	}

	return e.bus.Publish(ctx, name, events.DomainEventDispatched{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.DomainEventDispatchedEvent,
			Timestamp: e.now(),
		},
		Name:    name,
		Payload: payload,
		Origin:  origin,
		Depth:   depth,
	})
}

// DispatchEvent implements actions.Dispatcher for the dispatch_event action.
func (e *Engine) DispatchEvent(ctx context.Context, execCtx models.ExecutionContext, name string, payload models.EventPayload) error {
	return e.PublishDomainEvent(ctx, name, payload, execCtx.Origin, execCtx.Depth+1)
}

// RunAutomation implements actions.Dispatcher for the run_automation action.
func (e *Engine) RunAutomation(ctx context.Context, execCtx models.ExecutionContext, automationID string) error {
	if execCtx.Depth+1 > models.DispatchDepthMax {
		return fmt.Errorf("%w: depth %d exceeds limit %d", ErrDispatchLoop, execCtx.Depth+1, models.DispatchDepthMax)
	}

	if automationID == execCtx.Origin || automationID == execCtx.AutomationID {
		return fmt.Errorf("%w: automation %s cannot run itself", ErrDispatchLoop, automationID)
	}

	record, err := e.RunByID(ctx, automationID, RunRequest{
		Source:  models.TriggeredByEvent,
		Payload: execCtx.Payload,
		Origin:  execCtx.Origin,
		Depth:   execCtx.Depth + 1,
	})
	if err != nil {
		return err
	}

	if record.Status == models.RunStatusFailed {
		return fmt.Errorf("automation %s failed: %s", automationID, record.Error)
	}

	return nil
}

// SetAutomationEnabled implements actions.Dispatcher for the
// set_automation_enabled action.
func (e *Engine) SetAutomationEnabled(ctx context.Context, automationID string, enabled bool) error {
	automation, err := e.persistence.AutomationRepository().GetByID(ctx, automationID)
	if err != nil {
		return err
	}

	automation.Enabled = enabled

	if enabled {
		automation.NextRunAt = schedule.NextRun(automation.Trigger.Trigger, e.now())
	} else {
		automation.NextRunAt = nil
	}

	automation.UpdatedAt = e.now()

	return e.persistence.AutomationRepository().Update(ctx, automation)
}
