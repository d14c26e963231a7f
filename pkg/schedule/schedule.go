// Package schedule decides when triggers fire and computes informational next
// run times. All calendar math is UTC.
package schedule

import (
	"strings"
	"time"

	"github.com/asklab/relay/pkg/models"
)

// Due reports whether a time-based trigger should fire on a scheduler pass at
// now, given the automation's last run. Manual and event triggers never fire
// from ticks.
//
// The comparison against lastRunAt is the firing gate; the stored next_run_at
// is display-only and deliberately not consulted, so repeated recomputation
// cannot drift the gate.
func Due(trigger models.Trigger, lastRunAt *time.Time, now time.Time) bool {
	now = now.UTC()

	switch t := trigger.(type) {
	case models.ScheduleTrigger:
		if lastRunAt == nil {
			return true
		}

		return !now.Before(lastRunAt.UTC().Add(time.Duration(t.IntervalMinutes) * time.Minute))
	case models.DailyTrigger:
		return wallClockDue(t.Hour, t.Minute, lastRunAt, now)
	case models.WeeklyTrigger:
		if !weekdayAllowed(t.Weekdays, now.Weekday()) {
			return false
		}

		return wallClockDue(t.Hour, t.Minute, lastRunAt, now)
	case models.OnceTrigger:
		// Fires at most once: any prior run exhausts it. The engine also
		// disables the automation after the run, so both guards hold.
		return lastRunAt == nil && !now.Before(t.RunAt.UTC())
	default:
		return false
	}
}

// MatchesEvent reports whether the trigger fires for an incoming event of the
// given type. Matching is a case-insensitive exact comparison, no wildcards.
func MatchesEvent(trigger models.Trigger, eventType string) bool {
	t, ok := trigger.(models.EventTrigger)
	if !ok {
		return false
	}

	return strings.EqualFold(strings.TrimSpace(t.EventType), strings.TrimSpace(eventType))
}

// NextRun computes the informational next firing time after base, or nil for
// variants with none (manual, event, exhausted once).
func NextRun(trigger models.Trigger, base time.Time) *time.Time {
	base = base.UTC()

	switch t := trigger.(type) {
	case models.ScheduleTrigger:
		next := base.Add(time.Duration(t.IntervalMinutes) * time.Minute)

		return &next
	case models.DailyTrigger:
		next := nextWallClock(t.Hour, t.Minute, base)

		return &next
	case models.WeeklyTrigger:
		return nextWeekly(t, base)
	case models.OnceTrigger:
		runAt := t.RunAt.UTC()
		if runAt.After(base) {
			return &runAt
		}

		return nil
	default:
		return nil
	}
}

// wallClockDue fires once per UTC calendar day: the due minute must have been
// reached and the last run must be from an earlier date. A delayed scheduler
// still fires exactly once for the day, with no catch-up storm.
func wallClockDue(hour, minute int, lastRunAt *time.Time, now time.Time) bool {
	due := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if now.Before(due) {
		return false
	}

	if lastRunAt == nil {
		return true
	}

	last := lastRunAt.UTC()
	lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	return lastDay.Before(today)
}

func nextWallClock(hour, minute int, base time.Time) time.Time {
	candidate := time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, time.UTC)
	if !candidate.After(base) {
		candidate = candidate.AddDate(0, 0, 1)
	}

	return candidate
}

func nextWeekly(t models.WeeklyTrigger, base time.Time) *time.Time {
	for delta := 0; delta <= 7; delta++ {
		day := base.AddDate(0, 0, delta)
		if !weekdayAllowed(t.Weekdays, day.Weekday()) {
			continue
		}

		candidate := time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, time.UTC)
		if candidate.After(base) {
			return &candidate
		}
	}

	return nil
}

func weekdayAllowed(weekdays []models.Weekday, day time.Weekday) bool {
	for _, token := range weekdays {
		if idx, ok := token.Time(); ok && idx == day {
			return true
		}
	}

	return false
}
