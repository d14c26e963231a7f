package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerSpecWireShape(t *testing.T) {
	spec := NewTriggerSpec(DailyTrigger{Hour: 0, Minute: 30})

	data, err := json.Marshal(spec)
	require.NoError(t, err)

	// Hour zero must survive the round trip; omitempty would drop it.
	assert.JSONEq(t, `{"type":"daily","hour":0,"minute":30}`, string(data))

	var decoded TriggerSpec

	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, DailyTrigger{Hour: 0, Minute: 30}, decoded.Trigger)
}

func TestTriggerSpecDecodeVariants(t *testing.T) {
	runAt := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want Trigger
	}{
		{"manual", `{"type":"manual"}`, ManualTrigger{}},
		{"missing type defaults to manual", `{}`, ManualTrigger{}},
		{"event", `{"type":"event","event_type":"ask_agent_completed"}`, EventTrigger{EventType: "ask_agent_completed"}},
		{"schedule", `{"type":"schedule","interval_minutes":60}`, ScheduleTrigger{IntervalMinutes: 60}},
		{
			"weekly",
			`{"type":"weekly","hour":15,"minute":0,"weekdays":["fri"]}`,
			WeeklyTrigger{Hour: 15, Minute: 0, Weekdays: []Weekday{Friday}},
		},
		{"once", `{"type":"once","run_at":"2030-01-01T09:00:00Z"}`, OnceTrigger{RunAt: runAt}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var spec TriggerSpec

			require.NoError(t, json.Unmarshal([]byte(tt.raw), &spec))
			assert.Equal(t, tt.want, spec.Trigger)
		})
	}
}

func TestTriggerSpecDecodeRejectsUnknownType(t *testing.T) {
	var spec TriggerSpec

	err := json.Unmarshal([]byte(`{"type":"cron"}`), &spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown trigger type")
}

func TestTriggerSpecDecodeOnceRequiresRunAt(t *testing.T) {
	var spec TriggerSpec

	err := json.Unmarshal([]byte(`{"type":"once"}`), &spec)
	require.Error(t, err)
}

func TestEventPayloadText(t *testing.T) {
	payload := EventPayload{
		PayloadQuestion: "Is the URGENT fix deployed?",
		PayloadAnswer:   "Yes, on main.",
	}

	assert.Equal(t, "is the urgent fix deployed?\nyes, on main.", payload.Text())
	assert.Equal(t, 0, payload.Int(PayloadToolErrors))
	assert.False(t, payload.Bool(PayloadGrounded))
}
