// Package main provides the relay scheduler: the process that fires
// time-based triggers and reacts to dispatched domain events.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/asklab/relay/pkg/actions"
	"github.com/asklab/relay/pkg/cmd"
	"github.com/asklab/relay/pkg/engine"
	"github.com/asklab/relay/pkg/log"
	"github.com/asklab/relay/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("scheduler")

	command := &cli.Command{
		Name:                  "relay-scheduler",
		Usage:                 "Fire time-based automation triggers",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the distributed run guard (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "tick",
				Usage:   "Scheduler sweep cadence as a cron spec",
				Value:   engine.DefaultTickSpec,
				Sources: cli.EnvVars("SCHEDULER_TICK"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Relay scheduler")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			catalog := &actions.Catalog{}
			registry := cmd.NewRegistry(logger, catalog)
			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			runGuard := cmd.NewGuard(command.String("redis-url"), logger)

			eng := engine.NewEngine(persistence, registry, runGuard, eventBus, logger)
			catalog.Dispatcher = eng

			if tracer, err := otelhelper.NewTracer(ctx, "relay-scheduler"); err == nil {
				eng.WithTracer(tracer)
			} else {
				logger.WarnContext(ctx, "Tracing disabled", "error", err)
			}

			if err := eng.BindBus(eventBus); err != nil {
				return err
			}

			go func() {
				if err := eventBus.Subscribe(ctx); err != nil {
					logger.ErrorContext(ctx, "Event bus subscription ended", "error", err)
				}
			}()

			scheduler := engine.NewScheduler(eng, logger, command.String("tick"))
			if err := scheduler.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()

			logger.Info("Shutting down scheduler")
			scheduler.Stop()

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
