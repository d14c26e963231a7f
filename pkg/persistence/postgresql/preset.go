package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/persistence"
	"github.com/lib/pq"
)

const presetColumns = `
	id
  , project_id
  , name
  , description
  , trigger
  , conditions
  , action
  , cooldown_sec
  , run_access
  , tags
  , created_by
  , updated_by
  , created_at
  , updated_at
`

// PresetRepository handles preset and preset version database operations.
type PresetRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPresetRepository(db *sql.DB, logger *slog.Logger) *PresetRepository {
	return &PresetRepository{db: db, logger: logger}
}

func (r *PresetRepository) List(ctx context.Context, projectID string) ([]*models.Preset, error) {
	query := `
		SELECT ` + presetColumns + `
		FROM presets
		WHERE ($1 = '' OR project_id = $1)
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query presets: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	presets := make([]*models.Preset, 0)

	for rows.Next() {
		preset, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preset: %w", err)
		}

		presets = append(presets, preset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating presets: %w", err)
	}

	return presets, nil
}

func (r *PresetRepository) GetByID(ctx context.Context, id string) (*models.Preset, error) {
	query := `
		SELECT ` + presetColumns + `
		FROM presets
		WHERE id = $1
	`

	preset, err := scanPreset(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewPresetError("GetByID", id, persistence.ErrPresetNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan preset: %w", err)
	}

	return preset, nil
}

func (r *PresetRepository) Save(ctx context.Context, preset *models.Preset) error {
	query := `
		INSERT INTO presets (` + presetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	args, err := presetArgs(preset)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert preset: %w", err)
	}

	return nil
}

// Update overwrites the preset only when updated_at still matches, making
// concurrent editors lose cleanly instead of silently.
func (r *PresetRepository) Update(ctx context.Context, preset *models.Preset, expectedUpdatedAt time.Time) error {
	query := `
		UPDATE presets SET
			project_id = $2
		  , name = $3
		  , description = $4
		  , trigger = $5
		  , conditions = $6
		  , action = $7
		  , cooldown_sec = $8
		  , run_access = $9
		  , tags = $10
		  , created_by = $11
		  , updated_by = $12
		  , created_at = $13
		  , updated_at = $14
		WHERE id = $1 AND updated_at = $15
	`

	args, err := presetArgs(preset)
	if err != nil {
		return err
	}

	args = append(args, expectedUpdatedAt)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update preset: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}

	if affected == 0 {
		if _, err := r.GetByID(ctx, preset.ID); persistence.IsPresetNotFound(err) {
			return err
		}

		return persistence.NewPresetError("Update", preset.ID, persistence.ErrConcurrentModification)
	}

	return nil
}

func (r *PresetRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM presets WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete preset: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.NewPresetError("Delete", id, persistence.ErrPresetNotFound)
	}

	// preset_versions rows stay for audit.
	return nil
}

func (r *PresetRepository) Versions(ctx context.Context, presetID string) ([]*models.PresetVersion, error) {
	query := `
		SELECT id, preset_id, ordinal, snapshot, change_type, note, created_by, created_at
		FROM preset_versions
		WHERE preset_id = $1
		ORDER BY ordinal ASC
	`

	rows, err := r.db.QueryContext(ctx, query, presetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query preset versions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	versions := make([]*models.PresetVersion, 0)

	for rows.Next() {
		version, err := scanPresetVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preset version: %w", err)
		}

		versions = append(versions, version)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating preset versions: %w", err)
	}

	return versions, nil
}

func (r *PresetRepository) Version(ctx context.Context, presetID string, ordinal int) (*models.PresetVersion, error) {
	query := `
		SELECT id, preset_id, ordinal, snapshot, change_type, note, created_by, created_at
		FROM preset_versions
		WHERE preset_id = $1 AND ordinal = $2
	`

	version, err := scanPresetVersion(r.db.QueryRowContext(ctx, query, presetID, ordinal))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewPresetError("Version", presetID, persistence.ErrPresetVersionNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan preset version: %w", err)
	}

	return version, nil
}

func (r *PresetRepository) AppendVersion(ctx context.Context, version *models.PresetVersion) error {
	query := `
		INSERT INTO preset_versions (id, preset_id, ordinal, snapshot, change_type, note, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	snapshotJSON, err := json.Marshal(version.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		version.ID,
		version.PresetID,
		version.Ordinal,
		snapshotJSON,
		version.ChangeType,
		nullString(version.Note),
		nullString(version.CreatedBy),
		version.CreatedAt,
	)

	// The (preset_id, ordinal) unique constraint is the append-only CAS:
	// two writers computing the same next ordinal cannot both land.
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return persistence.NewPresetError("AppendVersion", version.PresetID, persistence.ErrConcurrentModification)
	}

	if err != nil {
		return fmt.Errorf("failed to insert preset version: %w", err)
	}

	return nil
}

func scanPreset(row rowScanner) (*models.Preset, error) {
	var (
		preset      models.Preset
		triggerJSON []byte
		condJSON    []byte
		actionJSON  []byte
		tagsJSON    []byte
		createdBy   sql.NullString
		updatedBy   sql.NullString
	)

	err := row.Scan(
		&preset.ID,
		&preset.ProjectID,
		&preset.Name,
		&preset.Description,
		&triggerJSON,
		&condJSON,
		&actionJSON,
		&preset.CooldownSec,
		&preset.RunAccess,
		&tagsJSON,
		&createdBy,
		&updatedBy,
		&preset.CreatedAt,
		&preset.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(triggerJSON, &preset.Trigger); err != nil {
		return nil, fmt.Errorf("failed to decode trigger: %w", err)
	}

	if err := json.Unmarshal(condJSON, &preset.Conditions); err != nil {
		return nil, fmt.Errorf("failed to decode conditions: %w", err)
	}

	if err := json.Unmarshal(actionJSON, &preset.Action); err != nil {
		return nil, fmt.Errorf("failed to decode action: %w", err)
	}

	if tagsJSON != nil {
		if err := json.Unmarshal(tagsJSON, &preset.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}

	preset.CreatedBy = createdBy.String
	preset.UpdatedBy = updatedBy.String

	return &preset, nil
}

func scanPresetVersion(row rowScanner) (*models.PresetVersion, error) {
	var (
		version      models.PresetVersion
		snapshotJSON []byte
		note         sql.NullString
		createdBy    sql.NullString
	)

	err := row.Scan(
		&version.ID,
		&version.PresetID,
		&version.Ordinal,
		&snapshotJSON,
		&version.ChangeType,
		&note,
		&createdBy,
		&version.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(snapshotJSON, &version.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	version.Note = note.String
	version.CreatedBy = createdBy.String

	return &version, nil
}

func presetArgs(preset *models.Preset) ([]any, error) {
	triggerJSON, err := json.Marshal(preset.Trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trigger: %w", err)
	}

	condJSON, err := json.Marshal(preset.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode conditions: %w", err)
	}

	actionJSON, err := json.Marshal(preset.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to encode action: %w", err)
	}

	var tagsJSON []byte
	if preset.Tags != nil {
		tagsJSON, err = json.Marshal(preset.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tags: %w", err)
		}
	}

	return []any{
		preset.ID,
		preset.ProjectID,
		preset.Name,
		preset.Description,
		triggerJSON,
		condJSON,
		actionJSON,
		preset.CooldownSec,
		preset.RunAccess,
		tagsJSON,
		nullString(preset.CreatedBy),
		nullString(preset.UpdatedBy),
		preset.CreatedAt,
		preset.UpdatedAt,
	}, nil
}
