package main

import (
	"context"
	"os"

	"github.com/asklab/relay/pkg/actions"
	"github.com/asklab/relay/pkg/cmd"
	"github.com/asklab/relay/pkg/engine"
	"github.com/asklab/relay/pkg/log"
	"github.com/asklab/relay/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9081

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "relay-api",
		Usage:                 "Create and manage automations and presets",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
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
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Relay API")

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

			if tracer, err := otelhelper.NewTracer(ctx, "relay-api"); err == nil {
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

			api := NewAPI(logger, persistence, registry, eng)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
