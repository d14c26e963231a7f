// Package engine runs automations: it matches triggers, evaluates
// conditions, claims guard slots, dispatches actions, and records runs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asklab/relay/pkg/conditions"
	"github.com/asklab/relay/pkg/eventbus"
	"github.com/asklab/relay/pkg/events"
	"github.com/asklab/relay/pkg/guard"
	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/otelhelper"
	"github.com/asklab/relay/pkg/persistence"
	"github.com/asklab/relay/pkg/registry"
	"github.com/asklab/relay/pkg/schedule"
	"github.com/asklab/relay/pkg/template"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// actionTimeout bounds a single action dispatch.
const actionTimeout = 30 * time.Second

// runHistoryKeep is how many runs Prune retains per automation.
const runHistoryKeep = 200

// ErrAutomationDisabled rejects manual runs of disabled automations.
var ErrAutomationDisabled = errors.New("automation is disabled")

// ErrDispatchLoop stops automation chains that exceed the depth limit or
// circle back to their origin.
var ErrDispatchLoop = errors.New("automation dispatch loop detected")

// RunRequest describes one run attempt.
type RunRequest struct {
	Automation   *models.Automation
	Source       models.TriggerSource
	Actor        string
	ActorIsAdmin bool
	EventType    string
	Payload      models.EventPayload
	DryRun       bool

	// Origin and Depth carry the dispatch chain guards, zero for runs
	// started outside another automation.
	Origin string
	Depth  int
}

// Engine executes automations against a persistence layer, a guard, and the
// action registry.
type Engine struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	guard       guard.Guard
	bus         eventbus.EventPublisher
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

func NewEngine(p persistence.Persistence, r *registry.Registry, g guard.Guard, bus eventbus.EventPublisher, logger *slog.Logger) *Engine {
	return &Engine{
		persistence: p,
		registry:    r,
		guard:       g,
		bus:         bus,
		logger:      logger.With("module", "engine"),
		tracer:      noop.NewTracerProvider().Tracer("relay"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithTracer replaces the no-op tracer.
func (e *Engine) WithTracer(tracer trace.Tracer) *Engine {
	e.tracer = tracer

	return e
}

// Run executes one automation and returns the persisted run record. Skips
// (conditions unmet, cooldown active, slot held) come back as a record with
// status skipped and a nil error; only infrastructure problems are errors.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*models.RunRecord, error) {
	automation := req.Automation

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.run",
		attribute.String(otelhelper.AutomationIDKey, automation.ID),
		attribute.String(otelhelper.ProjectIDKey, automation.ProjectID),
		attribute.String(otelhelper.ActionTypeKey, automation.Action.Type),
	)
	defer span.End()

	logger := e.logger.With("automation_id", automation.ID, "source", req.Source)

	if !automation.Enabled && !req.DryRun {
		return nil, ErrAutomationDisabled
	}

	if err := guard.CheckAccess(automation.RunAccess, req.Source, req.ActorIsAdmin); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	started := e.now()
	record := e.newRecord(automation, req, started)

	condResult := conditions.Evaluate(automation.Conditions, req.Payload)
	record.Diagnostics = condResult.Diagnostics()

	if req.DryRun {
		return e.simulate(ctx, logger, automation, record, condResult)
	}

	// An explicit manual run executes regardless of conditions; condition
	// gating applies to event and schedule flow. The evaluation still lands
	// in the record's diagnostics.
	if !condResult.Matched && req.Source != models.TriggeredByManual {
		logger.InfoContext(ctx, "Conditions not met, skipping run")

		return e.finishSkipped(ctx, automation, record, "conditions not met", req.Depth)
	}

	cooldown := time.Duration(automation.CooldownSec) * time.Second
	if err := e.guard.Acquire(ctx, automation.ID, automation.LastRunAt, cooldown); err != nil {
		if guard.Skipped(err) {
			logger.InfoContext(ctx, "Run slot unavailable, skipping run", "reason", err)

			return e.finishSkipped(ctx, automation, record, err.Error(), req.Depth)
		}

		otelhelper.SetError(span, err)

		return nil, err
	}
	defer e.guard.Release(ctx, automation.ID)

	e.publishTriggered(ctx, automation, req)

	result, runErr := e.dispatch(ctx, automation, req)

	finished := e.now()
	record.FinishedAt = finished
	record.DurationMs = finished.Sub(record.StartedAt).Milliseconds()
	record.Result = result

	if runErr != nil {
		record.Status = models.RunStatusFailed
		record.Error = runErr.Error()
		otelhelper.SetError(span, runErr)
		logger.ErrorContext(ctx, "Run failed", "error", runErr)
	} else {
		record.Status = models.RunStatusSucceeded
		logger.InfoContext(ctx, "Run succeeded", "duration_ms", record.DurationMs)
	}

	span.SetAttributes(attribute.String(otelhelper.RunStatusKey, string(record.Status)))

	if err := e.persistRun(ctx, record); err != nil {
		return nil, err
	}

	if err := e.advanceState(ctx, automation, record, finished); err != nil {
		return nil, err
	}

	e.publishFinished(ctx, record, req.Depth)

	return record, nil
}

// dispatch renders the action params against the payload and executes the
// handler under the action timeout in its own goroutine.
func (e *Engine) dispatch(ctx context.Context, automation *models.Automation, req RunRequest) (map[string]any, error) {
	handler, err := e.registry.Handler(automation.Action.Type)
	if err != nil {
		return nil, err
	}

	rendered := template.RenderParams(automation.Action.Params, req.Payload)

	params, err := e.registry.ValidateParams(automation.Action.Type, rendered)
	if err != nil {
		return nil, err
	}

	execCtx := models.ExecutionContext{
		AutomationID: automation.ID,
		ProjectID:    automation.ProjectID,
		Source:       req.Source,
		Actor:        req.Actor,
		Payload:      req.Payload,
		DryRun:       req.DryRun,
		Origin:       req.Origin,
		Depth:        req.Depth,
	}

	if execCtx.Origin == "" {
		execCtx.Origin = automation.ID
	}

	runCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		result, err := handler.Execute(runCtx, execCtx, params, e.logger)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}

		if m, ok := out.result.(map[string]any); ok {
			return m, nil
		}

		if out.result == nil {
			return nil, nil
		}

		return map[string]any{"result": out.result}, nil
	case <-runCtx.Done():
		return nil, fmt.Errorf("action %s timed out after %s", automation.Action.Type, actionTimeout)
	}
}

// simulate is the dry-run path: evaluate, render, and report without
// touching the guard, the automation state, or any external system.
func (e *Engine) simulate(ctx context.Context, logger *slog.Logger, automation *models.Automation, record *models.RunRecord, condResult conditions.Result) (*models.RunRecord, error) {
	record.Status = models.RunStatusSimulated

	if condResult.Matched {
		req := RunRequest{
			Automation: automation,
			Source:     models.TriggeredBySimulation,
			Payload:    record.EventPayload,
			DryRun:     true,
		}

		result, err := e.dispatch(ctx, automation, req)
		if err != nil {
			record.Error = err.Error()
		}

		record.Result = result
	} else {
		record.Result = map[string]any{"matched": false}
	}

	finished := e.now()
	record.FinishedAt = finished
	record.DurationMs = finished.Sub(record.StartedAt).Milliseconds()

	logger.InfoContext(ctx, "Simulated run", "matched", condResult.Matched)

	if err := e.persistRun(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

func (e *Engine) finishSkipped(ctx context.Context, automation *models.Automation, record *models.RunRecord, reason string, depth int) (*models.RunRecord, error) {
	record.Status = models.RunStatusSkipped
	record.Error = ""
	record.Diagnostics = append(record.Diagnostics, reason)

	finished := e.now()
	record.FinishedAt = finished
	record.DurationMs = finished.Sub(record.StartedAt).Milliseconds()

	if err := e.persistRun(ctx, record); err != nil {
		return nil, err
	}

	e.publishFinished(ctx, record, depth)

	return record, nil
}

// advanceState updates the automation's execution bookkeeping after a
// non-simulated run: last_* fields, run_count, next_run_at, and once-trigger
// exhaustion. next_run_at advances on failure too; it is informational and
// never the firing gate.
func (e *Engine) advanceState(ctx context.Context, automation *models.Automation, record *models.RunRecord, finished time.Time) error {
	automation.LastRunAt = &record.StartedAt
	automation.LastStatus = record.Status
	automation.LastError = record.Error
	automation.RunCount++
	automation.NextRunAt = schedule.NextRun(automation.Trigger.Trigger, finished)
	automation.UpdatedAt = finished

	if automation.Trigger.Kind() == models.TriggerKindOnce {
		// A once trigger is exhausted by any completed attempt.
		automation.Enabled = false
		automation.NextRunAt = nil
	}

	if err := e.persistence.AutomationRepository().Update(ctx, automation); err != nil {
		return fmt.Errorf("failed to update automation state: %w", err)
	}

	return nil
}

func (e *Engine) newRecord(automation *models.Automation, req RunRequest, started time.Time) *models.RunRecord {
	return &models.RunRecord{
		ID:           uuid.New().String(),
		AutomationID: automation.ID,
		ProjectID:    automation.ProjectID,
		TriggeredBy:  req.Source,
		Actor:        req.Actor,
		EventType:    req.EventType,
		EventPayload: req.Payload,
		StartedAt:    started,
	}
}

func (e *Engine) persistRun(ctx context.Context, record *models.RunRecord) error {
	if err := e.persistence.RunRepository().Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}

	if err := e.persistence.RunRepository().Prune(ctx, record.AutomationID, runHistoryKeep); err != nil {
		e.logger.WarnContext(ctx, "Failed to prune run history", "automation_id", record.AutomationID, "error", err)
	}

	return nil
}

func (e *Engine) publishTriggered(ctx context.Context, automation *models.Automation, req RunRequest) {
	if e.bus == nil {
		return
	}

	event := events.AutomationTriggered{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.AutomationTriggeredEvent,
			Timestamp: e.now(),
			ProjectID: automation.ProjectID,
		},
		AutomationID: automation.ID,
		Source:       req.Source,
		EventName:    req.EventType,
	}

	if err := e.bus.Publish(ctx, automation.ID, event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish run triggered event", "error", err)
	}
}

func (e *Engine) publishFinished(ctx context.Context, record *models.RunRecord, depth int) {
	if e.bus == nil {
		return
	}

	event := events.AutomationRunFinished{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.AutomationRunFinishedEvent,
			Timestamp: e.now(),
			ProjectID: record.ProjectID,
		},
		AutomationID: record.AutomationID,
		RunID:        record.ID,
		Status:       record.Status,
		Error:        record.Error,
		DurationMs:   record.DurationMs,
		Depth:        depth,
	}

	if err := e.bus.Publish(ctx, record.AutomationID, event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish run finished event", "error", err)
	}
}
