// Package main provides the relay API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/asklab/relay/pkg/automations"
	"github.com/asklab/relay/pkg/engine"
	"github.com/asklab/relay/pkg/persistence"
	"github.com/asklab/relay/pkg/presets"
	"github.com/asklab/relay/pkg/registry"
	"github.com/asklab/relay/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	engine      *engine.Engine
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eng *engine.Engine,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		engine:      eng,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	automationService := automations.NewService(a.persistence, a.registry, a.logger)
	presetService := presets.NewService(a.persistence.PresetRepository(), a.logger)

	handlers := web.NewAPIHandlers(automationService, presetService, a.engine, a.registry, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Relay API")
	})

	au := app.Group("/automations")
	au.Get("/templates", handlers.GetAutomationTemplates)
	au.Get("/", handlers.GetAutomations)
	au.Post("/", handlers.CreateAutomation)
	au.Get("/:id", handlers.GetAutomation)
	au.Patch("/:id", handlers.UpdateAutomation)
	au.Delete("/:id", handlers.DeleteAutomation)
	au.Post("/:id/run", handlers.RunAutomation)
	au.Get("/:id/runs", handlers.GetAutomationRuns)

	pr := app.Group("/presets")
	pr.Get("/", handlers.GetPresets)
	pr.Post("/", handlers.CreatePreset)
	pr.Get("/:id", handlers.GetPreset)
	pr.Patch("/:id", handlers.UpdatePreset)
	pr.Delete("/:id", handlers.DeletePreset)
	pr.Get("/:id/versions", handlers.GetPresetVersions)
	pr.Get("/:id/versions/:ordinal/diff", handlers.PreviewRollback)
	pr.Post("/:id/rollback", handlers.RollbackPreset)
	pr.Post("/:id/apply", handlers.ApplyPreset)

	app.Post("/events", handlers.DispatchEvent)
	app.Get("/actions", handlers.GetActionSchemas)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
