package actions

import (
	"context"
	"log/slog"

	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/protocol"
	"github.com/asklab/relay/pkg/registry"
)

func logMessageSchema() registry.ActionSchema {
	return registry.ActionSchema{
		Type:        "log",
		Description: "Write a message to the engine log",
		Fields: []registry.FieldSchema{
			{Key: "message", Kind: registry.KindMultiline, Required: true},
			{Key: "level", Kind: registry.KindString, Enum: []string{"debug", "info", "warn", "error"}},
		},
	}
}

// logMessage has no external dependency, which makes it the default action
// for trying out triggers and conditions.
func (c *Catalog) logMessage() protocol.ActionHandler {
	return protocol.ActionHandlerFunc(func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any, logger *slog.Logger) (any, error) {
		message := stringParam(params, "message")
		level := stringParam(params, "level")

		if execCtx.DryRun {
			return map[string]any{"would_log": message, "level": level}, nil
		}

		attrs := []any{"automation_id", execCtx.AutomationID, "project_id", execCtx.ProjectID}

		switch level {
		case "debug":
			logger.DebugContext(ctx, message, attrs...)
		case "warn":
			logger.WarnContext(ctx, message, attrs...)
		case "error":
			logger.ErrorContext(ctx, message, attrs...)
		default:
			logger.InfoContext(ctx, message, attrs...)
		}

		return map[string]any{"logged": message}, nil
	})
}
