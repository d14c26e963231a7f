// Package registry holds the action catalog: every runnable action type,
// its parameter schema, and the handler factory that executes it.
package registry

import (
	"fmt"
	"sort"

	"github.com/asklab/relay/pkg/protocol"
)

type Registry struct {
	entries map[string]entry
}

type entry struct {
	schema  ActionSchema
	handler protocol.ActionHandler
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds an action type to the catalog. Registering the same type
// twice replaces the earlier entry.
func (r *Registry) Register(schema ActionSchema, handler protocol.ActionHandler) {
	r.entries[schema.Type] = entry{schema: schema, handler: handler}
}

// Handler returns the executable handler for an action type.
func (r *Registry) Handler(actionType string) (protocol.ActionHandler, error) {
	e, ok := r.entries[actionType]
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", actionType)
	}

	return e.handler, nil
}

// Schema returns the declared schema for an action type.
func (r *Registry) Schema(actionType string) (ActionSchema, error) {
	e, ok := r.entries[actionType]
	if !ok {
		return ActionSchema{}, fmt.Errorf("action type '%s' not registered", actionType)
	}

	return e.schema, nil
}

// Schemas lists every registered schema sorted by type, for the catalog
// endpoint that editors render forms from.
func (r *Registry) Schemas() []ActionSchema {
	out := make([]ActionSchema, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.schema)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })

	return out
}

// ValidateParams checks params against the action type's schema: unknown
// keys are rejected, required fields must be present, and every value is
// coerced to its declared kind. The returned map holds the coerced values.
func (r *Registry) ValidateParams(actionType string, params map[string]any) (map[string]any, error) {
	e, ok := r.entries[actionType]
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", actionType)
	}

	return e.schema.Validate(params)
}
