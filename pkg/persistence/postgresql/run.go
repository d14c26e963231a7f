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
)

const runColumns = `
	id
  , automation_id
  , project_id
  , status
  , triggered_by
  , actor
  , event_type
  , event_payload
  , result
  , diagnostics
  , error
  , started_at
  , finished_at
  , duration_ms
`

// RunRepository handles run history database operations.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

func (r *RunRepository) Save(ctx context.Context, run *models.RunRecord) error {
	query := `
		INSERT INTO automation_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	payloadJSON, err := marshalNullable(run.EventPayload)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	resultJSON, err := marshalNullable(run.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	diagJSON, err := marshalNullable(run.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.AutomationID,
		run.ProjectID,
		run.Status,
		run.TriggeredBy,
		nullString(run.Actor),
		nullString(run.EventType),
		payloadJSON,
		resultJSON,
		diagJSON,
		nullString(run.Error),
		run.StartedAt,
		run.FinishedAt,
		run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.RunRecord, error) {
	query := `
		SELECT ` + runColumns + `
		FROM automation_runs
		WHERE id = $1
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRunError("GetByID", id, persistence.ErrRunNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return run, nil
}

func (r *RunRepository) ListByAutomation(ctx context.Context, automationID string, limit int) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + runColumns + `
		FROM automation_runs
		WHERE automation_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, automationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	runs := make([]*models.RunRecord, 0)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) Prune(ctx context.Context, automationID string, keep int) error {
	query := `
		DELETE FROM automation_runs
		WHERE automation_id = $1
		  AND id NOT IN (
			SELECT id FROM automation_runs
			WHERE automation_id = $1
			ORDER BY started_at DESC
			LIMIT $2
		  )
	`

	_, err := r.db.ExecContext(ctx, query, automationID, keep)
	if err != nil {
		return fmt.Errorf("failed to prune runs: %w", err)
	}

	return nil
}

func scanRun(row rowScanner) (*models.RunRecord, error) {
	var (
		run         models.RunRecord
		actor       sql.NullString
		eventType   sql.NullString
		payloadJSON []byte
		resultJSON  []byte
		diagJSON    []byte
		runErr      sql.NullString
	)

	err := row.Scan(
		&run.ID,
		&run.AutomationID,
		&run.ProjectID,
		&run.Status,
		&run.TriggeredBy,
		&actor,
		&eventType,
		&payloadJSON,
		&resultJSON,
		&diagJSON,
		&runErr,
		&run.StartedAt,
		&run.FinishedAt,
		&run.DurationMs,
	)
	if err != nil {
		return nil, err
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &run.EventPayload); err != nil {
			return nil, fmt.Errorf("failed to decode event payload: %w", err)
		}
	}

	if resultJSON != nil {
		if err := json.Unmarshal(resultJSON, &run.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
	}

	if diagJSON != nil {
		if err := json.Unmarshal(diagJSON, &run.Diagnostics); err != nil {
			return nil, fmt.Errorf("failed to decode diagnostics: %w", err)
		}
	}

	run.Actor = actor.String
	run.EventType = eventType.String
	run.Error = runErr.String

	return &run, nil
}

// marshalNullable encodes v to JSON, returning nil for nil values so the
// column stays NULL.
func marshalNullable(v any) ([]byte, error) {
	switch value := v.(type) {
	case models.EventPayload:
		if value == nil {
			return nil, nil
		}
	case map[string]any:
		if value == nil {
			return nil, nil
		}
	case []string:
		if value == nil {
			return nil, nil
		}
	case nil:
		return nil, nil
	}

	return json.Marshal(v)
}
