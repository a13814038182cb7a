// Package throttle suppresses duplicate rapid re-invocations of the same
// named action within a cooldown window, scoped per session. It absorbs
// double-taps on state-changing buttons (publish, restart confirm,
// maintenance toggle) without requiring idempotent backends.
package throttle

import (
	"time"

	"casebot/internal/session"
)

// Throttle decides whether a named action should be suppressed. The clock
// is injectable for tests; time.Now carries a monotonic reading, which is
// what the elapsed comparison relies on.
type Throttle struct {
	now func() time.Time
}

// New creates a throttle using the real clock.
func New() *Throttle {
	return &Throttle{now: time.Now}
}

// NewWithClock creates a throttle with a custom time source.
func NewWithClock(now func() time.Time) *Throttle {
	return &Throttle{now: now}
}

// ShouldThrottle reports whether the action repeats within the cooldown.
// A suppressed action does NOT refresh the record, so a burst of taps is
// absorbed relative to the first one. An allowed action records
// (action, now) for the next comparison.
func (t *Throttle) ShouldThrottle(s *session.Session, action string, cooldown time.Duration) bool {
	now := t.now()
	if s.LastAction == action && !s.LastActionAt.IsZero() && now.Sub(s.LastActionAt) < cooldown {
		return true
	}
	s.LastAction = action
	s.LastActionAt = now
	return false
}
