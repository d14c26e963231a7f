package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/schedule"
	"github.com/robfig/cron/v3"
)

// DefaultTickSpec is the scheduler poll cadence. A minute-level wall clock
// trigger never needs finer granularity than this.
const DefaultTickSpec = "@every 10s"

// Scheduler periodically sweeps enabled automations and runs the ones whose
// time-based trigger is due. Firing is decided by Due against last_run_at,
// never by next_run_at.
type Scheduler struct {
	engine   *Engine
	logger   *slog.Logger
	tickSpec string
	cron     *cron.Cron

	// inflight counts spawned runs so Stop can drain them. Ticks never
	// wait on it; a slow action must not delay the next sweep.
	inflight sync.WaitGroup
}

func NewScheduler(engine *Engine, logger *slog.Logger, tickSpec string) *Scheduler {
	if tickSpec == "" {
		tickSpec = DefaultTickSpec
	}

	return &Scheduler{
		engine:   engine,
		logger:   logger.With("module", "scheduler"),
		tickSpec: tickSpec,
	}
}

// Start begins ticking until Stop or context cancellation.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := s.cron.AddFunc(s.tickSpec, func() { s.Tick(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule tick %q: %w", s.tickSpec, err)
	}

	s.logger.InfoContext(ctx, "Starting scheduler", "tick", s.tickSpec)
	s.cron.Start()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts ticking and drains in-flight runs.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	s.inflight.Wait()
}

// Tick sweeps all enabled automations once and returns without waiting for
// the spawned runs; the guard's in-flight slot prevents double-fire if a run
// outlives the next sweep. Exported so a single process can drive the
// scheduler from its own loop in tests.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.engine.now()

	automations, err := s.engine.persistence.AutomationRepository().ListEnabled(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list automations for tick", "error", err)

		return
	}

	for _, automation := range automations {
		if !schedule.Due(automation.Trigger.Trigger, automation.LastRunAt, now) {
			continue
		}

		s.logger.InfoContext(ctx, "Trigger due, running automation",
			"automation_id", automation.ID, "trigger", automation.Trigger.Kind())

		s.inflight.Add(1)

		go func(automation *models.Automation) {
			defer s.inflight.Done()

			_, err := s.engine.Run(ctx, RunRequest{
				Automation: automation,
				Source:     models.TriggeredBySchedule,
				Payload:    models.EventPayload{"scheduled_for": now.Format("2006-01-02T15:04:05Z")},
			})
			if err != nil {
				s.logger.ErrorContext(ctx, "Scheduled run failed to start",
					"automation_id", automation.ID, "error", err)
			}
		}(automation)
	}
}
