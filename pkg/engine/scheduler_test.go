package engine_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/asklab/relay/pkg/engine"
	"github.com/asklab/relay/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickRunsDueAutomationsOnly(t *testing.T) {
	ctx := context.Background()
	rig := newRig(t)

	now := time.Now().UTC()

	// A midnight slot is always due on the current day.
	due := rig.saveAutomation(t, func(a *models.Automation) {
		a.Trigger = models.TriggerSpec{Trigger: models.DailyTrigger{Hour: 0, Minute: 0}}
	})
	rig.saveAutomation(t, nil) // manual triggers never fire from the clock

	lastRun := now
	rig.saveAutomation(t, func(a *models.Automation) {
		// Already fired today.
		a.Trigger = models.TriggerSpec{Trigger: models.DailyTrigger{Hour: 0, Minute: 0}}
		a.LastRunAt = &lastRun
	})

	scheduler := engine.NewScheduler(rig.engine, slog.Default(), "")
	scheduler.Tick(ctx)
	scheduler.Stop() // drain the spawned runs

	runs, err := rig.persistence.RunRepository().ListByAutomation(ctx, due.ID, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.TriggeredBySchedule, runs[0].TriggeredBy)
	assert.Equal(t, int64(1), rig.executions.Load())

	// A second sweep in the same slot is a no-op.
	scheduler.Tick(ctx)
	scheduler.Stop()

	runs, err = rig.persistence.RunRepository().ListByAutomation(ctx, due.ID, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestTickReturnsWhileRunsInFlight(t *testing.T) {
	ctx := context.Background()
	rig := newRig(t)

	rig.saveAutomation(t, func(a *models.Automation) {
		a.Trigger = models.TriggerSpec{Trigger: models.DailyTrigger{Hour: 0, Minute: 0}}
	})

	rig.gate = make(chan struct{})

	scheduler := engine.NewScheduler(rig.engine, slog.Default(), "")

	done := make(chan struct{})

	go func() {
		scheduler.Tick(ctx)
		close(done)
	}()

	// The sweep must come back while the handler is still blocked.
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tick blocked on an in-flight run")
	}

	close(rig.gate)
	scheduler.Stop()

	assert.Equal(t, int64(1), rig.executions.Load())
}
