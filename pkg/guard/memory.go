package guard

import (
	"context"
	"sync"
	"time"
)

// Memory is the in-process guard. A single mutex over the in-flight set
// makes the check-and-claim atomic for every caller in this process.
type Memory struct {
	mu       sync.Mutex
	inflight map[string]struct{}
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		inflight: make(map[string]struct{}),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (g *Memory) Acquire(_ context.Context, automationID string, lastRunAt *time.Time, cooldown time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.inflight[automationID]; held {
		return ErrRunInFlight
	}

	if remaining := Remaining(lastRunAt, cooldown, g.now()); remaining > 0 {
		return cooldownErr(remaining)
	}

	g.inflight[automationID] = struct{}{}

	return nil
}

func (g *Memory) Release(_ context.Context, automationID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.inflight, automationID)
}
