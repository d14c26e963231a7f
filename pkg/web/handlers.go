package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/asklab/relay/pkg/automations"
	"github.com/asklab/relay/pkg/engine"
	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/presets"
	"github.com/asklab/relay/pkg/registry"
	"github.com/asklab/relay/pkg/schedule"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	automationService *automations.Service
	presetService     *presets.Service
	engine            *engine.Engine
	registry          *registry.Registry
	validator         *validator.Validate
}

func NewAPIHandlers(
	automationService *automations.Service,
	presetService *presets.Service,
	eng *engine.Engine,
	reg *registry.Registry,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		automationService: automationService,
		presetService:     presetService,
		engine:            eng,
		registry:          reg,
		validator:         validate,
	}
}

func (h *APIHandlers) GetAutomations(c fiber.Ctx) error {
	result, err := h.automationService.List(c.Context(), c.Query("project_id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"automations": result})
}

func (h *APIHandlers) CreateAutomation(c fiber.Ctx) error {
	var req CreateAutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	automation := &models.Automation{
		ProjectID:   req.ProjectID,
		Name:        req.Name,
		Description: req.Description,
		Enabled:     enabled,
		Trigger:     req.Trigger,
		Conditions:  req.Conditions,
		Action:      req.Action,
		CooldownSec: req.CooldownSec,
		RunAccess:   req.RunAccess,
		Tags:        req.Tags,
	}

	created, err := h.automationService.Create(c.Context(), automation, req.Actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	automation, err := h.automationService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(automation)
}

func (h *APIHandlers) UpdateAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	var req UpdateAutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	existing, err := h.automationService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}

	if req.Trigger != nil {
		existing.Trigger = *req.Trigger
	}

	if req.Conditions != nil {
		existing.Conditions = *req.Conditions
	}

	if req.Action != nil {
		existing.Action = *req.Action
	}

	if req.CooldownSec != nil {
		existing.CooldownSec = *req.CooldownSec
	}

	if req.RunAccess != nil {
		existing.RunAccess = *req.RunAccess
	}

	if req.Tags != nil {
		existing.Tags = req.Tags
	}

	updated, err := h.automationService.Update(c.Context(), id, existing, req.Actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	// Resolve first so unknown ids answer 404 rather than silently
	// succeeding.
	if _, err := h.automationService.Get(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	if err := h.automationService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RunAutomation starts a manual run. With ?dry_run=true the run is simulated:
// conditions and rendering are reported but no side effect executes and no
// state advances.
func (h *APIHandlers) RunAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	var req RunAutomationRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	dryRun, err := parseBoolQuery(c, "dry_run")
	if err != nil {
		return badRequest(c, "dry_run must be a boolean")
	}

	source := models.TriggeredByManual
	if dryRun {
		source = models.TriggeredBySimulation
	}

	record, err := h.engine.RunByID(c.Context(), id, engine.RunRequest{
		Source:       source,
		Actor:        req.Actor,
		ActorIsAdmin: req.ActorIsAdmin,
		Payload:      req.Payload,
		DryRun:       dryRun,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) GetAutomationRuns(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}

		limit = parsed
	}

	runs, err := h.automationService.Runs(c.Context(), id, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"runs": runs})
}

// DispatchEvent injects a domain event, fanning out to every enabled
// automation with a matching event trigger.
func (h *APIHandlers) DispatchEvent(c fiber.Ctx) error {
	var req DispatchEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	name, err := schedule.NormalizeEventType(req.Name)
	if err != nil {
		return badRequest(c, err.Error())
	}

	payload := req.Payload.Clone()
	payload[models.PayloadProjectID] = req.ProjectID

	if err := h.engine.PublishDomainEvent(c.Context(), name, payload, "", 0); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"dispatched": name})
}

// GetAutomationTemplates lists the built-in starter catalog.
func (h *APIHandlers) GetAutomationTemplates(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"templates": automations.StarterTemplates()})
}

// GetActionSchemas lists every registered action type with its field schema,
// for editors that render parameter forms.
func (h *APIHandlers) GetActionSchemas(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"actions": h.registry.Schemas()})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK

	var detail string

	if err := h.automationService.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
		detail = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"detail":    detail,
		"timestamp": time.Now().UTC(),
	})
}

func parseBoolQuery(c fiber.Ctx, key string) (bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return false, nil
	}

	return strconv.ParseBool(raw)
}
