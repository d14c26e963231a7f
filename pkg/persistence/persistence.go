// Package persistence provides the storage abstraction for automations,
// run records, and presets.
package persistence

import (
	"context"
	"time"

	"github.com/asklab/relay/pkg/models"
)

type Persistence interface {
	AutomationRepository() AutomationRepository
	RunRepository() RunRepository
	PresetRepository() PresetRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// AutomationRepository stores automation definitions and their execution
// state. Save creates, Update overwrites the full row.
type AutomationRepository interface {
	List(ctx context.Context, projectID string) ([]*models.Automation, error)

	// ListEnabled returns every enabled automation across projects. The
	// scheduler and the event matcher iterate this set.
	ListEnabled(ctx context.Context) ([]*models.Automation, error)

	GetByID(ctx context.Context, id string) (*models.Automation, error)
	Save(ctx context.Context, automation *models.Automation) error
	Update(ctx context.Context, automation *models.Automation) error
	Delete(ctx context.Context, id string) error
}

// RunRepository is the append-only run history.
type RunRepository interface {
	Save(ctx context.Context, run *models.RunRecord) error
	GetByID(ctx context.Context, id string) (*models.RunRecord, error)

	// ListByAutomation returns the newest runs first, at most limit.
	ListByAutomation(ctx context.Context, automationID string, limit int) ([]*models.RunRecord, error)

	// Prune drops all but the newest keep runs of an automation.
	Prune(ctx context.Context, automationID string, keep int) error
}

// PresetRepository stores presets and their append-only version history.
type PresetRepository interface {
	List(ctx context.Context, projectID string) ([]*models.Preset, error)
	GetByID(ctx context.Context, id string) (*models.Preset, error)
	Save(ctx context.Context, preset *models.Preset) error

	// Update overwrites the preset only when its stored updated_at still
	// equals expectedUpdatedAt, otherwise ErrConcurrentModification.
	Update(ctx context.Context, preset *models.Preset, expectedUpdatedAt time.Time) error

	Delete(ctx context.Context, id string) error

	// Versions returns the history ordered by ordinal ascending.
	Versions(ctx context.Context, presetID string) ([]*models.PresetVersion, error)
	Version(ctx context.Context, presetID string, ordinal int) (*models.PresetVersion, error)
	AppendVersion(ctx context.Context, version *models.PresetVersion) error
}
