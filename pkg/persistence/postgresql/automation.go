package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/persistence"
	"github.com/lib/pq"
)

const automationColumns = `
	id
  , project_id
  , name
  , description
  , enabled
  , trigger
  , conditions
  , action
  , cooldown_sec
  , run_access
  , tags
  , last_run_at
  , last_status
  , last_error
  , next_run_at
  , run_count
  , created_by
  , updated_by
  , created_at
  , updated_at
`

// AutomationRepository handles automation-related database operations.
type AutomationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewAutomationRepository(db *sql.DB, logger *slog.Logger) *AutomationRepository {
	return &AutomationRepository{db: db, logger: logger}
}

func (r *AutomationRepository) List(ctx context.Context, projectID string) ([]*models.Automation, error) {
	query := `
		SELECT ` + automationColumns + `
		FROM automations
		WHERE ($1 = '' OR project_id = $1)
		ORDER BY created_at ASC
	`

	return r.queryAutomations(ctx, query, projectID)
}

func (r *AutomationRepository) ListEnabled(ctx context.Context) ([]*models.Automation, error) {
	query := `
		SELECT ` + automationColumns + `
		FROM automations
		WHERE enabled = true
		ORDER BY created_at ASC
	`

	return r.queryAutomations(ctx, query)
}

func (r *AutomationRepository) GetByID(ctx context.Context, id string) (*models.Automation, error) {
	query := `
		SELECT ` + automationColumns + `
		FROM automations
		WHERE id = $1
	`

	automation, err := scanAutomation(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewAutomationError("GetByID", id, persistence.ErrAutomationNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan automation: %w", err)
	}

	return automation, nil
}

func (r *AutomationRepository) Save(ctx context.Context, automation *models.Automation) error {
	query := `
		INSERT INTO automations (` + automationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	args, err := automationArgs(automation)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return persistence.NewAutomationError("Save", automation.ID, persistence.ErrAutomationAlreadyExists)
	}

	if err != nil {
		return fmt.Errorf("failed to insert automation: %w", err)
	}

	return nil
}

func (r *AutomationRepository) Update(ctx context.Context, automation *models.Automation) error {
	query := `
		UPDATE automations SET
			project_id = $2
		  , name = $3
		  , description = $4
		  , enabled = $5
		  , trigger = $6
		  , conditions = $7
		  , action = $8
		  , cooldown_sec = $9
		  , run_access = $10
		  , tags = $11
		  , last_run_at = $12
		  , last_status = $13
		  , last_error = $14
		  , next_run_at = $15
		  , run_count = $16
		  , created_by = $17
		  , updated_by = $18
		  , created_at = $19
		  , updated_at = $20
		WHERE id = $1
	`

	args, err := automationArgs(automation)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update automation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}

	if affected == 0 {
		return persistence.NewAutomationError("Update", automation.ID, persistence.ErrAutomationNotFound)
	}

	return nil
}

func (r *AutomationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM automations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete automation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.NewAutomationError("Delete", id, persistence.ErrAutomationNotFound)
	}

	return nil
}

func (r *AutomationRepository) queryAutomations(ctx context.Context, query string, args ...any) ([]*models.Automation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query automations: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	automations := make([]*models.Automation, 0)

	for rows.Next() {
		automation, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation: %w", err)
		}

		automations = append(automations, automation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating automations: %w", err)
	}

	return automations, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAutomation(row rowScanner) (*models.Automation, error) {
	var (
		automation  models.Automation
		triggerJSON []byte
		condJSON    []byte
		actionJSON  []byte
		tagsJSON    []byte
		lastStatus  sql.NullString
		lastError   sql.NullString
		createdBy   sql.NullString
		updatedBy   sql.NullString
	)

	err := row.Scan(
		&automation.ID,
		&automation.ProjectID,
		&automation.Name,
		&automation.Description,
		&automation.Enabled,
		&triggerJSON,
		&condJSON,
		&actionJSON,
		&automation.CooldownSec,
		&automation.RunAccess,
		&tagsJSON,
		&automation.LastRunAt,
		&lastStatus,
		&lastError,
		&automation.NextRunAt,
		&automation.RunCount,
		&createdBy,
		&updatedBy,
		&automation.CreatedAt,
		&automation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(triggerJSON, &automation.Trigger); err != nil {
		return nil, fmt.Errorf("failed to decode trigger: %w", err)
	}

	if err := json.Unmarshal(condJSON, &automation.Conditions); err != nil {
		return nil, fmt.Errorf("failed to decode conditions: %w", err)
	}

	if err := json.Unmarshal(actionJSON, &automation.Action); err != nil {
		return nil, fmt.Errorf("failed to decode action: %w", err)
	}

	if tagsJSON != nil {
		if err := json.Unmarshal(tagsJSON, &automation.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}

	automation.LastStatus = models.RunStatus(lastStatus.String)
	automation.LastError = lastError.String
	automation.CreatedBy = createdBy.String
	automation.UpdatedBy = updatedBy.String

	return &automation, nil
}

func automationArgs(automation *models.Automation) ([]any, error) {
	triggerJSON, err := json.Marshal(automation.Trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trigger: %w", err)
	}

	condJSON, err := json.Marshal(automation.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode conditions: %w", err)
	}

	actionJSON, err := json.Marshal(automation.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to encode action: %w", err)
	}

	var tagsJSON []byte
	if automation.Tags != nil {
		tagsJSON, err = json.Marshal(automation.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tags: %w", err)
		}
	}

	return []any{
		automation.ID,
		automation.ProjectID,
		automation.Name,
		automation.Description,
		automation.Enabled,
		triggerJSON,
		condJSON,
		actionJSON,
		automation.CooldownSec,
		automation.RunAccess,
		tagsJSON,
		automation.LastRunAt,
		nullString(string(automation.LastStatus)),
		nullString(automation.LastError),
		automation.NextRunAt,
		automation.RunCount,
		nullString(automation.CreatedBy),
		nullString(automation.UpdatedBy),
		automation.CreatedAt,
		automation.UpdatedAt,
	}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
