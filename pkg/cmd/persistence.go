// Package cmd provides common initialization for the relay binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/asklab/relay/pkg/persistence"
	"github.com/asklab/relay/pkg/persistence/file"
	"github.com/asklab/relay/pkg/persistence/postgresql"
)

// NewPersistence picks the storage backend from the database URL scheme:
// postgres:// and postgresql:// use PostgreSQL, anything else is treated as
// a file path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgresql persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parseProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
