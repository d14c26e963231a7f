package cmd

import (
	"fmt"
	"log/slog"

	"github.com/asklab/relay/pkg/guard"
	"github.com/redis/go-redis/v9"
)

// NewGuard returns the distributed redis guard when a redis URL is set, and
// the in-process guard otherwise. Multi-replica deployments need redis so a
// run slot is held across all replicas.
func NewGuard(redisURL string, logger *slog.Logger) guard.Guard {
	if redisURL == "" {
		return guard.NewMemory()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("invalid redis url: %w", err))
	}

	return guard.NewRedis(redis.NewClient(opts), logger)
}
