package schedule

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/asklab/relay/pkg/models"
)

// IntervalMinutesMax caps schedule intervals at 30 days.
const IntervalMinutesMax = 43200

var eventNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_.:-]{1,63}$`)

var defaultWeekdays = []models.Weekday{
	models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday,
}

// NormalizeTrigger validates a decoded trigger and returns its canonical form:
// lowercased event names, clamped ranges, deduped weekdays (defaulting to
// mon-fri when none survive), UTC run_at. It is the save/update boundary;
// triggers are decoded and validated once, never re-parsed downstream.
func NormalizeTrigger(trigger models.Trigger) (models.Trigger, error) {
	switch t := trigger.(type) {
	case nil:
		return models.ManualTrigger{}, nil
	case models.ManualTrigger:
		return t, nil
	case models.EventTrigger:
		eventType, err := NormalizeEventType(t.EventType)
		if err != nil {
			return nil, err
		}

		return models.EventTrigger{EventType: eventType}, nil
	case models.ScheduleTrigger:
		if t.IntervalMinutes < 1 || t.IntervalMinutes > IntervalMinutesMax {
			return nil, fmt.Errorf("trigger interval_minutes must be between 1 and %d", IntervalMinutesMax)
		}

		return t, nil
	case models.DailyTrigger:
		if err := validateWallClock(t.Hour, t.Minute); err != nil {
			return nil, err
		}

		return t, nil
	case models.WeeklyTrigger:
		if err := validateWallClock(t.Hour, t.Minute); err != nil {
			return nil, err
		}

		t.Weekdays = normalizeWeekdays(t.Weekdays)

		return t, nil
	case models.OnceTrigger:
		if t.RunAt.IsZero() {
			return nil, fmt.Errorf("once trigger requires run_at")
		}

		t.RunAt = t.RunAt.UTC().Truncate(time.Second)

		return t, nil
	default:
		return nil, fmt.Errorf("unknown trigger variant %T", trigger)
	}
}

// NormalizeEventType lowercases and validates an event name.
func NormalizeEventType(raw string) (string, error) {
	eventType := strings.ToLower(strings.TrimSpace(raw))
	if eventType == "" {
		return "", fmt.Errorf("trigger event_type is required")
	}

	if !eventNameRe.MatchString(eventType) {
		return "", fmt.Errorf("invalid event name: %s", eventType)
	}

	return eventType, nil
}

func validateWallClock(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("trigger hour must be between 0 and 23")
	}

	if minute < 0 || minute > 59 {
		return fmt.Errorf("trigger minute must be between 0 and 59")
	}

	return nil
}

func normalizeWeekdays(raw []models.Weekday) []models.Weekday {
	out := make([]models.Weekday, 0, len(raw))
	seen := make(map[models.Weekday]struct{}, len(raw))

	for _, token := range raw {
		token = models.Weekday(strings.ToLower(strings.TrimSpace(string(token))))

		if _, valid := token.Time(); !valid {
			continue
		}

		if _, dup := seen[token]; dup {
			continue
		}

		seen[token] = struct{}{}
		out = append(out, token)
	}

	if len(out) == 0 {
		return append([]models.Weekday(nil), defaultWeekdays...)
	}

	return out
}
