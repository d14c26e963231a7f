package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TriggerKind discriminates the closed set of trigger variants.
type TriggerKind string

const (
	TriggerKindManual   TriggerKind = "manual"
	TriggerKindEvent    TriggerKind = "event"
	TriggerKindSchedule TriggerKind = "schedule"
	TriggerKindDaily    TriggerKind = "daily"
	TriggerKindWeekly   TriggerKind = "weekly"
	TriggerKindOnce     TriggerKind = "once"
)

// Trigger is the closed union of ways an automation can fire. Exactly one
// variant is active per automation; variants carry only their own fields.
type Trigger interface {
	Kind() TriggerKind
}

// ManualTrigger fires only on an explicit manual-run request.
type ManualTrigger struct{}

func (ManualTrigger) Kind() TriggerKind { return TriggerKindManual }

// EventTrigger fires when an incoming event's type equals EventType.
type EventTrigger struct {
	EventType string `json:"event_type"`
}

func (EventTrigger) Kind() TriggerKind { return TriggerKindEvent }

// ScheduleTrigger fires every IntervalMinutes, measured from the last run.
type ScheduleTrigger struct {
	IntervalMinutes int `json:"interval_minutes"`
}

func (ScheduleTrigger) Kind() TriggerKind { return TriggerKindSchedule }

// DailyTrigger fires once per UTC calendar day at the given wall-clock time.
type DailyTrigger struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (DailyTrigger) Kind() TriggerKind { return TriggerKindDaily }

// WeeklyTrigger fires like DailyTrigger, restricted to the configured weekdays.
type WeeklyTrigger struct {
	Hour     int       `json:"hour"`
	Minute   int       `json:"minute"`
	Weekdays []Weekday `json:"weekdays"`
}

func (WeeklyTrigger) Kind() TriggerKind { return TriggerKindWeekly }

// OnceTrigger fires exactly once when the clock reaches RunAt.
type OnceTrigger struct {
	RunAt time.Time `json:"run_at"`
}

func (OnceTrigger) Kind() TriggerKind { return TriggerKindOnce }

// Weekday is a lowercase three-letter weekday token (mon..sun).
type Weekday string

const (
	Monday    Weekday = "mon"
	Tuesday   Weekday = "tue"
	Wednesday Weekday = "wed"
	Thursday  Weekday = "thu"
	Friday    Weekday = "fri"
	Saturday  Weekday = "sat"
	Sunday    Weekday = "sun"
)

var weekdayIndex = map[Weekday]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

// Time returns the time.Weekday equivalent and whether the token is valid.
func (w Weekday) Time() (time.Weekday, bool) {
	idx, ok := weekdayIndex[w]

	return idx, ok
}

// TriggerSpec wraps a Trigger variant so it round-trips through JSON with the
// stable wire shape `{"type": "...", ...variant fields}`.
type TriggerSpec struct {
	Trigger
}

// NewTriggerSpec wraps a variant. A nil variant is stored as manual.
func NewTriggerSpec(t Trigger) TriggerSpec {
	if t == nil {
		t = ManualTrigger{}
	}

	return TriggerSpec{Trigger: t}
}

type triggerEnvelope struct {
	Type            TriggerKind `json:"type"`
	EventType       string      `json:"event_type,omitempty"`
	IntervalMinutes int         `json:"interval_minutes,omitempty"`
	Hour            *int        `json:"hour,omitempty"`
	Minute          *int        `json:"minute,omitempty"`
	Weekdays        []Weekday   `json:"weekdays,omitempty"`
	RunAt           *time.Time  `json:"run_at,omitempty"`
}

func (s TriggerSpec) MarshalJSON() ([]byte, error) {
	env := triggerEnvelope{Type: TriggerKindManual}

	switch t := s.Trigger.(type) {
	case nil, ManualTrigger:
	case EventTrigger:
		env.Type = TriggerKindEvent
		env.EventType = t.EventType
	case ScheduleTrigger:
		env.Type = TriggerKindSchedule
		env.IntervalMinutes = t.IntervalMinutes
	case DailyTrigger:
		env.Type = TriggerKindDaily
		env.Hour = &t.Hour
		env.Minute = &t.Minute
	case WeeklyTrigger:
		env.Type = TriggerKindWeekly
		env.Hour = &t.Hour
		env.Minute = &t.Minute
		env.Weekdays = t.Weekdays
	case OnceTrigger:
		env.Type = TriggerKindOnce
		runAt := t.RunAt.UTC()
		env.RunAt = &runAt
	default:
		return nil, fmt.Errorf("unknown trigger variant %T", s.Trigger)
	}

	return json.Marshal(env)
}

func (s *TriggerSpec) UnmarshalJSON(data []byte) error {
	var env triggerEnvelope

	err := json.Unmarshal(data, &env)
	if err != nil {
		return err
	}

	trigger, err := env.decode()
	if err != nil {
		return err
	}

	s.Trigger = trigger

	return nil
}

func (env triggerEnvelope) decode() (Trigger, error) {
	intOr := func(p *int, fallback int) int {
		if p == nil {
			return fallback
		}

		return *p
	}

	switch env.Type {
	case TriggerKindManual, "":
		return ManualTrigger{}, nil
	case TriggerKindEvent:
		return EventTrigger{EventType: env.EventType}, nil
	case TriggerKindSchedule:
		return ScheduleTrigger{IntervalMinutes: env.IntervalMinutes}, nil
	case TriggerKindDaily:
		return DailyTrigger{Hour: intOr(env.Hour, 0), Minute: intOr(env.Minute, 0)}, nil
	case TriggerKindWeekly:
		return WeeklyTrigger{
			Hour:     intOr(env.Hour, 0),
			Minute:   intOr(env.Minute, 0),
			Weekdays: env.Weekdays,
		}, nil
	case TriggerKindOnce:
		if env.RunAt == nil {
			return nil, fmt.Errorf("once trigger requires run_at")
		}

		return OnceTrigger{RunAt: env.RunAt.UTC()}, nil
	default:
		return nil, fmt.Errorf("unknown trigger type %q", env.Type)
	}
}
