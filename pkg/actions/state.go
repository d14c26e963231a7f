package actions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/protocol"
	"github.com/asklab/relay/pkg/registry"
)

func upsertStateValueSchema() registry.ActionSchema {
	return registry.ActionSchema{
		Type:        "upsert_state_value",
		Description: "Write a project-scoped state value",
		Fields: []registry.FieldSchema{
			{Key: "key", Kind: registry.KindString, Required: true},
			{Key: "value", Kind: registry.KindJSON, Required: true},
		},
	}
}

func (c *Catalog) upsertStateValue() protocol.ActionHandler {
	return protocol.ActionHandlerFunc(func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any, _ *slog.Logger) (any, error) {
		key := stringParam(params, "key")

		if execCtx.DryRun {
			return map[string]any{"would_upsert_key": key}, nil
		}

		if err := c.State.Upsert(ctx, execCtx.ProjectID, key, params["value"]); err != nil {
			return nil, fmt.Errorf("failed to upsert state value %s: %w", key, err)
		}

		return map[string]any{"key": key}, nil
	})
}
