// Package automations is the write-side service for automation definitions:
// it normalizes and validates every shape before it reaches storage.
package automations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/asklab/relay/pkg/conditions"
	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/persistence"
	"github.com/asklab/relay/pkg/registry"
	"github.com/asklab/relay/pkg/schedule"
	"github.com/asklab/relay/pkg/template"
	"github.com/google/uuid"
)

// ErrValidation marks definition errors the caller must fix. Handlers map it
// to a 400 response.
var ErrValidation = errors.New("validation failed")

// IsValidation reports whether err is a definition validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Service owns automation CRUD. The engine mutates execution state directly
// through the repository; everything user-editable passes through here.
type Service struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(p persistence.Persistence, r *registry.Registry, logger *slog.Logger) *Service {
	return &Service{
		persistence: p,
		registry:    r,
		logger:      logger.With("module", "automations"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, projectID string) ([]*models.Automation, error) {
	return s.persistence.AutomationRepository().List(ctx, projectID)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Automation, error) {
	return s.persistence.AutomationRepository().GetByID(ctx, id)
}

// Create validates and stores a new automation. The caller provides the
// user-editable fields; identity, timestamps, and execution state are set
// here.
func (s *Service) Create(ctx context.Context, automation *models.Automation, actor string) (*models.Automation, error) {
	if err := s.normalize(automation); err != nil {
		return nil, err
	}

	now := s.now()
	automation.ID = uuid.New().String()
	automation.CreatedBy = actor
	automation.UpdatedBy = actor
	automation.CreatedAt = now
	automation.UpdatedAt = now
	automation.LastRunAt = nil
	automation.LastStatus = ""
	automation.LastError = ""
	automation.RunCount = 0
	automation.NextRunAt = nil

	if automation.Enabled {
		automation.NextRunAt = schedule.NextRun(automation.Trigger.Trigger, now)
	}

	if err := s.persistence.AutomationRepository().Save(ctx, automation); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Created automation",
		"automation_id", automation.ID, "project_id", automation.ProjectID)

	return automation, nil
}

// Update replaces the user-editable fields of an existing automation.
// Execution state carries over untouched except next_run_at, which is
// recomputed for the possibly changed trigger.
func (s *Service) Update(ctx context.Context, id string, incoming *models.Automation, actor string) (*models.Automation, error) {
	existing, err := s.persistence.AutomationRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.normalize(incoming); err != nil {
		return nil, err
	}

	existing.Name = incoming.Name
	existing.Description = incoming.Description
	existing.Enabled = incoming.Enabled
	existing.Trigger = incoming.Trigger
	existing.Conditions = incoming.Conditions
	existing.Action = incoming.Action
	existing.CooldownSec = incoming.CooldownSec
	existing.RunAccess = incoming.RunAccess
	existing.Tags = incoming.Tags
	existing.UpdatedBy = actor
	existing.UpdatedAt = s.now()

	existing.NextRunAt = nil
	if existing.Enabled {
		existing.NextRunAt = schedule.NextRun(existing.Trigger.Trigger, existing.UpdatedAt)
	}

	if err := s.persistence.AutomationRepository().Update(ctx, existing); err != nil {
		return nil, err
	}

	return existing, nil
}

// Delete removes the automation and its entire run history.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.persistence.AutomationRepository().Delete(ctx, id); err != nil {
		return err
	}

	if err := s.persistence.RunRepository().Prune(ctx, id, 0); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete run history", "automation_id", id, "error", err)
	}

	return nil
}

func (s *Service) Runs(ctx context.Context, automationID string, limit int) ([]*models.RunRecord, error) {
	// Confirm the automation exists so an unknown id is a 404, not an
	// empty list.
	if _, err := s.persistence.AutomationRepository().GetByID(ctx, automationID); err != nil {
		return nil, err
	}

	return s.persistence.RunRepository().ListByAutomation(ctx, automationID, limit)
}

func (s *Service) HealthCheck(ctx context.Context) error {
	return s.persistence.HealthCheck(ctx)
}

// ValidateSnapshot normalizes the automation-shaped fields of a preset. The
// preset store accepts only snapshots that would make a valid automation.
func (s *Service) ValidateSnapshot(snapshot models.PresetSnapshot) (models.PresetSnapshot, error) {
	scratch := &models.Automation{
		ProjectID:   "preset",
		Name:        snapshot.Name,
		Description: snapshot.Description,
		Trigger:     snapshot.Trigger,
		Conditions:  snapshot.Conditions,
		Action:      snapshot.Action,
		CooldownSec: snapshot.CooldownSec,
		RunAccess:   snapshot.RunAccess,
		Tags:        snapshot.Tags,
	}

	if err := s.normalize(scratch); err != nil {
		return models.PresetSnapshot{}, err
	}

	snapshot.Name = scratch.Name
	snapshot.Trigger = scratch.Trigger
	snapshot.Conditions = scratch.Conditions
	snapshot.CooldownSec = scratch.CooldownSec
	snapshot.RunAccess = scratch.RunAccess
	snapshot.Tags = scratch.Tags

	return snapshot, nil
}

// normalize validates the definition in place: trigger and condition shapes,
// cooldown clamp, run access, and the action against its type's schema.
func (s *Service) normalize(automation *models.Automation) error {
	automation.Name = strings.TrimSpace(automation.Name)
	if automation.Name == "" {
		return validationErr("name is required")
	}

	if strings.TrimSpace(automation.ProjectID) == "" {
		return validationErr("project_id is required")
	}

	trigger, err := schedule.NormalizeTrigger(automation.Trigger.Trigger)
	if err != nil {
		return validationErr("trigger: %s", err)
	}

	automation.Trigger = models.TriggerSpec{Trigger: trigger}

	normalized, err := conditions.Normalize(automation.Conditions)
	if err != nil {
		return validationErr("conditions: %s", err)
	}

	automation.Conditions = normalized

	if automation.CooldownSec < 0 {
		automation.CooldownSec = 0
	}

	if automation.CooldownSec > models.CooldownSecMax {
		automation.CooldownSec = models.CooldownSecMax
	}

	switch automation.RunAccess {
	case models.RunAccessMemberRunnable, models.RunAccessAdminOnly:
	case "":
		automation.RunAccess = models.RunAccessMemberRunnable
	default:
		return validationErr("run_access must be member_runnable or admin_only")
	}

	automation.Tags = dedupeTags(automation.Tags)

	if err := s.validateAction(automation.Action); err != nil {
		return err
	}

	return nil
}

// validateAction checks the action against its schema at save time. Values
// holding template placeholders cannot be type-checked yet, so they are
// swapped for kind-conformant stand-ins; their real values are validated
// again at dispatch, after rendering.
func (s *Service) validateAction(action models.Action) error {
	schema, err := s.registry.Schema(action.Type)
	if err != nil {
		return validationErr("action: %s", err)
	}

	fields := make(map[string]registry.FieldSchema, len(schema.Fields))
	for _, field := range schema.Fields {
		fields[field.Key] = field
	}

	scratch := make(map[string]any, len(action.Params))

	for key, value := range action.Params {
		str, ok := value.(string)
		if ok && template.HasPlaceholder(str) {
			scratch[key] = placeholderStandIn(fields[key])

			continue
		}

		scratch[key] = value
	}

	if _, err := s.registry.ValidateParams(action.Type, scratch); err != nil {
		return validationErr("action: %s", err)
	}

	return nil
}

func placeholderStandIn(field registry.FieldSchema) any {
	if len(field.Enum) > 0 {
		return field.Enum[0]
	}

	switch field.Kind {
	case registry.KindNumber:
		return "0"
	case registry.KindBoolean:
		return "true"
	case registry.KindCSVList:
		return "placeholder"
	case registry.KindJSON:
		return "{}"
	default:
		return "placeholder"
	}
}

func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}

		if _, dup := seen[tag]; dup {
			continue
		}

		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	return out
}
