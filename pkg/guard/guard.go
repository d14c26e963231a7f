// Package guard gates automation runs: cooldown windows, concurrent run
// slots, and the admin-only access rule for manual triggers.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asklab/relay/pkg/models"
)

var (
	// ErrCooldownActive means the cooldown window since the last run has
	// not elapsed. Runs rejected with it are recorded as skipped, not failed.
	ErrCooldownActive = errors.New("cooldown window active")

	// ErrRunInFlight means another run currently holds the slot.
	ErrRunInFlight = errors.New("run already in flight")

	// ErrAdminOnly means a non-admin actor tried to run an admin-only
	// automation manually.
	ErrAdminOnly = errors.New("automation is admin only")
)

// Guard claims and releases the single run slot per automation. Acquire is
// atomic: of N concurrent callers at most one succeeds, the rest get
// ErrRunInFlight or ErrCooldownActive.
type Guard interface {
	Acquire(ctx context.Context, automationID string, lastRunAt *time.Time, cooldown time.Duration) error
	Release(ctx context.Context, automationID string)
}

// Skipped reports whether err should be recorded as a skipped run rather
// than a failure.
func Skipped(err error) bool {
	return errors.Is(err, ErrCooldownActive) || errors.Is(err, ErrRunInFlight)
}

// Remaining returns how much of the cooldown window is left, zero when the
// automation may run. A nil lastRunAt means it never ran.
func Remaining(lastRunAt *time.Time, cooldown time.Duration, now time.Time) time.Duration {
	if lastRunAt == nil || cooldown <= 0 {
		return 0
	}

	remaining := cooldown - now.Sub(*lastRunAt)
	if remaining < 0 {
		return 0
	}

	return remaining
}

// CheckAccess enforces the run access policy. Admin-only restricts manual
// runs exclusively; event and schedule sources always pass.
func CheckAccess(access models.RunAccess, source models.TriggerSource, actorIsAdmin bool) error {
	if source != models.TriggeredByManual {
		return nil
	}

	if access == models.RunAccessAdminOnly && !actorIsAdmin {
		return ErrAdminOnly
	}

	return nil
}

func cooldownErr(remaining time.Duration) error {
	return fmt.Errorf("%w: %s remaining", ErrCooldownActive, remaining.Round(time.Second))
}
