package web

import (
	"strconv"

	"github.com/asklab/relay/pkg/models"
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) GetPresets(c fiber.Ctx) error {
	result, err := h.presetService.List(c.Context(), c.Query("project_id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"presets": result})
}

func (h *APIHandlers) CreatePreset(c fiber.Ctx) error {
	var req CreatePresetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	snapshot, err := h.automationService.ValidateSnapshot(req.Snapshot)
	if err != nil {
		return handleServiceError(c, err)
	}

	created, err := h.presetService.Create(c.Context(), req.ProjectID, snapshot, req.Actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetPreset(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Preset ID is required")
	}

	preset, err := h.presetService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(preset)
}

func (h *APIHandlers) UpdatePreset(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Preset ID is required")
	}

	var req UpdatePresetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	snapshot, err := h.automationService.ValidateSnapshot(req.Snapshot)
	if err != nil {
		return handleServiceError(c, err)
	}

	updated, err := h.presetService.Update(c.Context(), id, snapshot, req.Note, req.Actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeletePreset(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Preset ID is required")
	}

	if _, err := h.presetService.Get(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	if err := h.presetService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetPresetVersions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Preset ID is required")
	}

	versions, err := h.presetService.Versions(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"versions": versions})
}

// PreviewRollback diffs the live preset against a historical version without
// mutating anything.
func (h *APIHandlers) PreviewRollback(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Preset ID is required")
	}

	ordinal, err := strconv.Atoi(c.Params("ordinal"))
	if err != nil || ordinal < 1 {
		return badRequest(c, "ordinal must be a positive integer")
	}

	rows, err := h.presetService.DiffPreview(c.Context(), id, ordinal)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"ordinal": ordinal, "changes": rows})
}

// RollbackPreset restores a historical snapshot by appending a new rollback
// version. History is never rewritten.
func (h *APIHandlers) RollbackPreset(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Preset ID is required")
	}

	var req RollbackPresetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	preset, err := h.presetService.Rollback(c.Context(), id, req.Ordinal, req.Actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(preset)
}

// ApplyPreset copies a preset's snapshot into a new live automation. The
// preset itself is untouched; later preset edits do not propagate.
func (h *APIHandlers) ApplyPreset(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Preset ID is required")
	}

	var req ApplyPresetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	preset, err := h.presetService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	snapshot := preset.Snapshot()

	name := snapshot.Name
	if req.Name != "" {
		name = req.Name
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	automation := &models.Automation{
		ProjectID:   req.ProjectID,
		Name:        name,
		Description: snapshot.Description,
		Enabled:     enabled,
		Trigger:     snapshot.Trigger,
		Conditions:  snapshot.Conditions,
		Action:      snapshot.Action,
		CooldownSec: snapshot.CooldownSec,
		RunAccess:   snapshot.RunAccess,
		Tags:        snapshot.Tags,
	}

	created, err := h.automationService.Create(c.Context(), automation, req.Actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}
