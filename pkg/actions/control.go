package actions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/protocol"
	"github.com/asklab/relay/pkg/registry"
	"github.com/asklab/relay/pkg/schedule"
)

func dispatchEventSchema() registry.ActionSchema {
	return registry.ActionSchema{
		Type:        "dispatch_event",
		Description: "Dispatch a project event that other automations may react to",
		Fields: []registry.FieldSchema{
			{Key: "name", Kind: registry.KindString, Required: true},
			{Key: "payload", Kind: registry.KindJSON},
		},
	}
}

func (c *Catalog) dispatchEvent() protocol.ActionHandler {
	return protocol.ActionHandlerFunc(func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any, logger *slog.Logger) (any, error) {
		name, err := schedule.NormalizeEventType(stringParam(params, "name"))
		if err != nil {
			return nil, err
		}

		payload := models.EventPayload{}
		if raw, ok := params["payload"].(map[string]any); ok {
			payload = models.EventPayload(raw)
		}

		// Chained events stay inside the dispatching automation's project.
		if payload.String(models.PayloadProjectID) == "" {
			payload[models.PayloadProjectID] = execCtx.ProjectID
		}

		if execCtx.DryRun {
			return map[string]any{"would_dispatch_event": name}, nil
		}

		if err := c.Dispatcher.DispatchEvent(ctx, execCtx, name, payload); err != nil {
			return nil, fmt.Errorf("failed to dispatch event %s: %w", name, err)
		}

		logger.InfoContext(ctx, "Dispatched chained event", "event", name, "depth", execCtx.Depth)

		return map[string]any{"event": name}, nil
	})
}

func runAutomationSchema() registry.ActionSchema {
	return registry.ActionSchema{
		Type:        "run_automation",
		Description: "Run another automation in the same project",
		Fields: []registry.FieldSchema{
			{Key: "automation_id", Kind: registry.KindString, Required: true},
		},
	}
}

func (c *Catalog) runAutomation() protocol.ActionHandler {
	return protocol.ActionHandlerFunc(func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any, _ *slog.Logger) (any, error) {
		automationID := stringParam(params, "automation_id")

		if execCtx.DryRun {
			return map[string]any{"would_run_automation": automationID}, nil
		}

		if err := c.Dispatcher.RunAutomation(ctx, execCtx, automationID); err != nil {
			return nil, fmt.Errorf("failed to run automation %s: %w", automationID, err)
		}

		return map[string]any{"automation_id": automationID}, nil
	})
}

func setAutomationEnabledSchema() registry.ActionSchema {
	return registry.ActionSchema{
		Type:        "set_automation_enabled",
		Description: "Enable or disable another automation",
		Fields: []registry.FieldSchema{
			{Key: "automation_id", Kind: registry.KindString, Required: true},
			{Key: "enabled", Kind: registry.KindBoolean, Required: true},
		},
	}
}

func (c *Catalog) setAutomationEnabled() protocol.ActionHandler {
	return protocol.ActionHandlerFunc(func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any, logger *slog.Logger) (any, error) {
		automationID := stringParam(params, "automation_id")
		enabled, _ := params["enabled"].(bool)

		if execCtx.DryRun {
			return map[string]any{"would_set_enabled": enabled}, nil
		}

		if err := c.Dispatcher.SetAutomationEnabled(ctx, automationID, enabled); err != nil {
			return nil, fmt.Errorf("failed to toggle automation %s: %w", automationID, err)
		}

		logger.InfoContext(ctx, "Toggled automation", "automation_id", automationID, "enabled", enabled)

		return map[string]any{"automation_id": automationID, "enabled": enabled}, nil
	})
}
