package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/persistence"
	"github.com/asklab/relay/pkg/persistence/file"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPersistence(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func TestAutomationRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)
	repo := p.AutomationRepository()

	now := time.Now().UTC().Truncate(time.Second)
	automation := &models.Automation{
		ID:        uuid.New().String(),
		ProjectID: "proj-1",
		Name:      "Escalate failures",
		Enabled:   true,
		Trigger:   models.TriggerSpec{Trigger: models.EventTrigger{EventType: "ask_agent_completed"}},
		Conditions: models.ConditionSet{
			MatchMode:     models.MatchAny,
			ToolErrorsMin: intPtr(1),
		},
		Action:    models.Action{Type: "create_chat_task", Params: map[string]any{"title": "Investigate"}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	require.NoError(t, repo.Save(ctx, automation))
	require.ErrorIs(t, repo.Save(ctx, automation), persistence.ErrAutomationAlreadyExists)

	loaded, err := repo.GetByID(ctx, automation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TriggerKindEvent, loaded.Trigger.Kind())
	assert.Equal(t, models.MatchAny, loaded.Conditions.Mode())
	require.NotNil(t, loaded.Conditions.ToolErrorsMin)
	assert.Equal(t, 1, *loaded.Conditions.ToolErrorsMin)

	loaded.Enabled = false
	require.NoError(t, repo.Update(ctx, loaded))

	enabled, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Empty(t, enabled)

	require.NoError(t, repo.Delete(ctx, automation.ID))
	assert.True(t, persistence.IsAutomationNotFound(repo.Delete(ctx, automation.ID)))
}

func TestRunListNewestFirstAndPrune(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)
	repo := p.RunRepository()

	automationID := uuid.New().String()
	base := time.Now().UTC()

	for i := range 4 {
		require.NoError(t, repo.Save(ctx, &models.RunRecord{
			ID:           uuid.New().String(),
			AutomationID: automationID,
			Status:       models.RunStatusSkipped,
			TriggeredBy:  models.TriggeredByManual,
			StartedAt:    base.Add(time.Duration(i) * time.Second),
			FinishedAt:   base.Add(time.Duration(i) * time.Second),
		}))
	}

	runs, err := repo.ListByAutomation(ctx, automationID, 0)
	require.NoError(t, err)
	require.Len(t, runs, 4)
	assert.True(t, runs[0].StartedAt.After(runs[3].StartedAt))

	require.NoError(t, repo.Prune(ctx, automationID, 1))

	runs, err = repo.ListByAutomation(ctx, automationID, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, base.Add(3*time.Second).Unix(), runs[0].StartedAt.Unix())
}

func TestPresetVersioning(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)
	repo := p.PresetRepository()

	now := time.Now().UTC().Truncate(time.Second)
	preset := &models.Preset{
		ID:        uuid.New().String(),
		ProjectID: "proj-1",
		PresetSnapshot: models.PresetSnapshot{
			Name:   "weekly report",
			Action: models.Action{Type: "append_chat_message"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Save(ctx, preset))

	version := &models.PresetVersion{
		ID:         uuid.New().String(),
		PresetID:   preset.ID,
		Ordinal:    1,
		Snapshot:   preset.Snapshot(),
		ChangeType: models.ChangeTypeCreate,
		CreatedAt:  now,
	}
	require.NoError(t, repo.AppendVersion(ctx, version))

	dup := *version
	dup.ID = uuid.New().String()
	require.ErrorIs(t, repo.AppendVersion(ctx, &dup), persistence.ErrConcurrentModification)

	preset.Name = "weekly report v2"
	err := repo.Update(ctx, preset, now.Add(-time.Minute))
	require.ErrorIs(t, err, persistence.ErrConcurrentModification)
	require.NoError(t, repo.Update(ctx, preset, now))

	versions, err := repo.Versions(ctx, preset.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)

	_, err = repo.Version(ctx, preset.ID, 99)
	require.ErrorIs(t, err, persistence.ErrPresetVersionNotFound)

	require.NoError(t, repo.Delete(ctx, preset.ID))

	// History outlives the preset.
	versions, err = repo.Versions(ctx, preset.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func intPtr(v int) *int { return &v }
