// Package protocol defines the contracts between the engine and pluggable
// action handlers.
package protocol

import (
	"context"
	"log/slog"

	"github.com/asklab/relay/pkg/models"
)

// ActionHandler executes one action type. Params arrive already validated
// and coerced by the registry and template-rendered by the engine. Handlers
// must honor DryRun by describing the side effect instead of performing it.
type ActionHandler interface {
	Execute(ctx context.Context, execCtx models.ExecutionContext, params map[string]any, logger *slog.Logger) (any, error)
}

// ActionHandlerFunc adapts a function to the ActionHandler interface.
type ActionHandlerFunc func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any, logger *slog.Logger) (any, error)

func (f ActionHandlerFunc) Execute(ctx context.Context, execCtx models.ExecutionContext, params map[string]any, logger *slog.Logger) (any, error) {
	return f(ctx, execCtx, params, logger)
}
