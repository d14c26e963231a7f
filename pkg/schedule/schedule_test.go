package schedule_test

import (
	"testing"
	"time"

	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestDueDailyFiresOncePerDay(t *testing.T) {
	trigger := models.DailyTrigger{Hour: 9, Minute: 0}
	yesterday := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 29, 9, 5, 0, 0, time.UTC)

	// Scheduler delayed past the minute still fires once for today.
	assert.True(t, schedule.Due(trigger, timePtr(yesterday), now))

	// After today's run it must not fire again today.
	ranToday := time.Date(2026, 8, 29, 9, 5, 30, 0, time.UTC)
	assert.False(t, schedule.Due(trigger, timePtr(ranToday), now.Add(4*time.Hour)))

	// And next_run_at lands on tomorrow 09:00.
	next := schedule.NextRun(trigger, ranToday)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC), *next)
}

func TestDueDailyBeforeWallClock(t *testing.T) {
	trigger := models.DailyTrigger{Hour: 9, Minute: 0}
	now := time.Date(2026, 8, 29, 8, 59, 0, 0, time.UTC)

	assert.False(t, schedule.Due(trigger, nil, now))
}

func TestDueSchedule(t *testing.T) {
	trigger := models.ScheduleTrigger{IntervalMinutes: 60}
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	// Never ran: fires on first scheduler pass.
	assert.True(t, schedule.Due(trigger, nil, now))

	assert.False(t, schedule.Due(trigger, timePtr(now.Add(-30*time.Minute)), now))
	assert.True(t, schedule.Due(trigger, timePtr(now.Add(-60*time.Minute)), now))
}

func TestDueWeeklyRespectsWeekdaySet(t *testing.T) {
	trigger := models.WeeklyTrigger{Hour: 15, Minute: 0, Weekdays: []models.Weekday{models.Friday}}

	friday := time.Date(2026, 8, 28, 15, 30, 0, 0, time.UTC)
	require.Equal(t, time.Friday, friday.Weekday())
	assert.True(t, schedule.Due(trigger, nil, friday))

	saturday := friday.AddDate(0, 0, 1)
	assert.False(t, schedule.Due(trigger, nil, saturday))
}

func TestDueOnceNeverFiresTwice(t *testing.T) {
	runAt := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	trigger := models.OnceTrigger{RunAt: runAt}

	assert.False(t, schedule.Due(trigger, nil, runAt.Add(-time.Minute)))
	assert.True(t, schedule.Due(trigger, nil, runAt))
	assert.True(t, schedule.Due(trigger, nil, runAt.Add(48*time.Hour)))

	// Any prior run exhausts the trigger.
	assert.False(t, schedule.Due(trigger, timePtr(runAt), runAt.Add(time.Minute)))
}

func TestDueManualAndEventNeverTick(t *testing.T) {
	now := time.Now().UTC()

	assert.False(t, schedule.Due(models.ManualTrigger{}, nil, now))
	assert.False(t, schedule.Due(models.EventTrigger{EventType: "x"}, nil, now))
}

func TestMatchesEvent(t *testing.T) {
	trigger := models.EventTrigger{EventType: "ask_agent_completed"}

	assert.True(t, schedule.MatchesEvent(trigger, "ask_agent_completed"))
	assert.True(t, schedule.MatchesEvent(trigger, "ASK_AGENT_COMPLETED"))
	assert.False(t, schedule.MatchesEvent(trigger, "ask_agent"))
	assert.False(t, schedule.MatchesEvent(models.ManualTrigger{}, "ask_agent_completed"))
}

func TestNextRunVariants(t *testing.T) {
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	next := schedule.NextRun(models.ScheduleTrigger{IntervalMinutes: 90}, base)
	require.NotNil(t, next)
	assert.Equal(t, base.Add(90*time.Minute), *next)

	next = schedule.NextRun(models.WeeklyTrigger{
		Hour: 15, Minute: 0,
		Weekdays: []models.Weekday{models.Friday},
	}, base)
	require.NotNil(t, next)
	assert.Equal(t, time.Friday, next.Weekday())
	assert.True(t, next.After(base))

	assert.Nil(t, schedule.NextRun(models.ManualTrigger{}, base))
	assert.Nil(t, schedule.NextRun(models.EventTrigger{EventType: "x"}, base))

	past := models.OnceTrigger{RunAt: base.Add(-time.Hour)}
	assert.Nil(t, schedule.NextRun(past, base))
}

func TestNormalizeTrigger(t *testing.T) {
	normalized, err := schedule.NormalizeTrigger(models.EventTrigger{EventType: " Ask_Agent_Completed "})
	require.NoError(t, err)
	assert.Equal(t, models.EventTrigger{EventType: "ask_agent_completed"}, normalized)

	_, err = schedule.NormalizeTrigger(models.EventTrigger{EventType: "!!"})
	require.Error(t, err)

	_, err = schedule.NormalizeTrigger(models.ScheduleTrigger{IntervalMinutes: 0})
	require.Error(t, err)

	_, err = schedule.NormalizeTrigger(models.DailyTrigger{Hour: 24})
	require.Error(t, err)

	weekly, err := schedule.NormalizeTrigger(models.WeeklyTrigger{Hour: 9, Weekdays: nil})
	require.NoError(t, err)
	assert.Len(t, weekly.(models.WeeklyTrigger).Weekdays, 5, "empty weekday set defaults to mon-fri")

	weekly, err = schedule.NormalizeTrigger(models.WeeklyTrigger{
		Hour:     9,
		Weekdays: []models.Weekday{"FRI", "fri", "noday"},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Weekday{models.Friday}, weekly.(models.WeeklyTrigger).Weekdays)
}
