package guard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// slotTTL bounds how long a crashed process can hold a run slot.
const slotTTL = 5 * time.Minute

// Redis is the distributed guard for multi-replica deployments. The run
// slot is a SET NX key so the claim is atomic across processes; cooldown
// math stays local since last_run_at comes from the store.
type Redis struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

func NewRedis(client redis.UniversalClient, logger *slog.Logger) *Redis {
	return &Redis{
		client: client,
		prefix: "relay:runslot:",
		logger: logger.With("module", "guard"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (g *Redis) Acquire(ctx context.Context, automationID string, lastRunAt *time.Time, cooldown time.Duration) error {
	if remaining := Remaining(lastRunAt, cooldown, g.now()); remaining > 0 {
		return cooldownErr(remaining)
	}

	claimed, err := g.client.SetNX(ctx, g.prefix+automationID, g.now().Format(time.RFC3339), slotTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to claim run slot: %w", err)
	}

	if !claimed {
		return ErrRunInFlight
	}

	return nil
}

func (g *Redis) Release(ctx context.Context, automationID string) {
	if err := g.client.Del(ctx, g.prefix+automationID).Err(); err != nil {
		g.logger.WarnContext(ctx, "Failed to release run slot", "automation_id", automationID, "error", err)
	}
}
