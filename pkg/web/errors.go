package web

import (
	"errors"

	"github.com/asklab/relay/pkg/automations"
	"github.com/asklab/relay/pkg/engine"
	"github.com/asklab/relay/pkg/guard"
	"github.com/asklab/relay/pkg/persistence"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func forbidden(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(403).
		WithInstance(c.Path()).
		WithType("forbidden").
		WithDetail(detail)

	return c.Status(fiber.StatusForbidden).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service and store errors onto problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case automations.IsValidation(err):
		return badRequest(c, err.Error())

	case errors.Is(err, guard.ErrAdminOnly):
		return forbidden(c, "this automation can only be run manually by an admin")

	case errors.Is(err, engine.ErrAutomationDisabled):
		return conflict(c, "automation is disabled")

	case errors.Is(err, engine.ErrDispatchLoop):
		return conflict(c, err.Error())

	case persistence.IsAutomationNotFound(err):
		return notFound(c, "automation not found")

	case persistence.IsPresetNotFound(err):
		return notFound(c, "preset not found")

	case errors.Is(err, persistence.ErrPresetVersionNotFound):
		return notFound(c, "preset version not found")

	case errors.Is(err, persistence.ErrRunNotFound):
		return notFound(c, "run not found")

	case persistence.IsConcurrentModification(err):
		return conflict(c, "preset was modified concurrently, reload and retry")

	default:
		return internalError(c, err)
	}
}
