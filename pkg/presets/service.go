// Package presets implements the preset version store: every create, update,
// and rollback appends an immutable snapshot to the preset's history.
package presets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/asklab/relay/pkg/diff"
	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/persistence"
	"github.com/google/uuid"
)

type Service struct {
	repo   persistence.PresetRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo persistence.PresetRepository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With("module", "presets"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, projectID string) ([]*models.Preset, error) {
	return s.repo.List(ctx, projectID)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Preset, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Versions(ctx context.Context, presetID string) ([]*models.PresetVersion, error) {
	if _, err := s.repo.GetByID(ctx, presetID); err != nil {
		return nil, err
	}

	return s.repo.Versions(ctx, presetID)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Create stores a new preset and its ordinal-1 version.
func (s *Service) Create(ctx context.Context, projectID string, snapshot models.PresetSnapshot, actor string) (*models.Preset, error) {
	now := s.now()

	preset := &models.Preset{
		ID:             uuid.New().String(),
		ProjectID:      projectID,
		PresetSnapshot: snapshot,
		CreatedBy:      actor,
		UpdatedBy:      actor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Save(ctx, preset); err != nil {
		return nil, err
	}

	err := s.appendVersion(ctx, preset, 1, models.ChangeTypeCreate, "", actor)
	if err != nil {
		return nil, err
	}

	return preset, nil
}

// Update replaces the preset's versioned fields and appends the next
// version. The conditional update on updated_at is the serialization point:
// of two concurrent updaters exactly one wins, the other gets
// ErrConcurrentModification with no version appended.
func (s *Service) Update(ctx context.Context, id string, snapshot models.PresetSnapshot, note, actor string) (*models.Preset, error) {
	preset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ordinal, err := s.nextOrdinal(ctx, id)
	if err != nil {
		return nil, err
	}

	expected := preset.UpdatedAt
	preset.ApplySnapshot(snapshot)
	preset.UpdatedBy = actor
	preset.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, preset, expected); err != nil {
		return nil, err
	}

	if err := s.appendVersion(ctx, preset, ordinal, models.ChangeTypeUpdate, note, actor); err != nil {
		return nil, err
	}

	return preset, nil
}

// Rollback restores the snapshot of an earlier version by appending it as a
// new version with change_type rollback. History is never rewritten; a
// failed rollback leaves the preset untouched.
func (s *Service) Rollback(ctx context.Context, id string, toOrdinal int, actor string) (*models.Preset, error) {
	preset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	target, err := s.repo.Version(ctx, id, toOrdinal)
	if err != nil {
		return nil, err
	}

	ordinal, err := s.nextOrdinal(ctx, id)
	if err != nil {
		return nil, err
	}

	expected := preset.UpdatedAt
	preset.ApplySnapshot(target.Snapshot)
	preset.UpdatedBy = actor
	preset.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, preset, expected); err != nil {
		return nil, err
	}

	note := fmt.Sprintf("rollback to version %d", toOrdinal)
	if err := s.appendVersion(ctx, preset, ordinal, models.ChangeTypeRollback, note, actor); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Preset rolled back", "preset_id", id, "to_ordinal", toOrdinal, "new_ordinal", ordinal)

	return preset, nil
}

// DiffPreview returns the structural differences between the preset's
// current snapshot and a stored version, without changing anything.
func (s *Service) DiffPreview(ctx context.Context, id string, ordinal int) ([]diff.Row, error) {
	preset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	target, err := s.repo.Version(ctx, id, ordinal)
	if err != nil {
		return nil, err
	}

	return diff.Snapshots(preset.Snapshot(), target.Snapshot)
}

func (s *Service) nextOrdinal(ctx context.Context, presetID string) (int, error) {
	versions, err := s.repo.Versions(ctx, presetID)
	if err != nil {
		return 0, err
	}

	if len(versions) == 0 {
		return 1, nil
	}

	return versions[len(versions)-1].Ordinal + 1, nil
}

func (s *Service) appendVersion(ctx context.Context, preset *models.Preset, ordinal int, changeType models.ChangeType, note, actor string) error {
	return s.repo.AppendVersion(ctx, &models.PresetVersion{
		ID:         uuid.New().String(),
		PresetID:   preset.ID,
		Ordinal:    ordinal,
		Snapshot:   preset.Snapshot(),
		ChangeType: changeType,
		Note:       note,
		CreatedBy:  actor,
		CreatedAt:  s.now(),
	})
}
