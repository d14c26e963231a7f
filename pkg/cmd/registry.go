package cmd

import (
	"log/slog"

	"github.com/asklab/relay/pkg/actions"
	"github.com/asklab/relay/pkg/registry"
)

// NewRegistry builds the action registry with every built-in action. The
// dispatcher is wired later, once the engine exists, so registration takes
// the catalog by pointer.
func NewRegistry(logger *slog.Logger, catalog *actions.Catalog) *registry.Registry {
	if catalog.Chats == nil {
		store := actions.NewLogStore(logger)
		catalog.Chats = store

		if catalog.State == nil {
			catalog.State = store
		}
	}

	r := registry.NewRegistry()
	actions.RegisterBuiltins(r, catalog)

	return r
}
