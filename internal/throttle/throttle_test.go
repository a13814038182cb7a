package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"casebot/internal/session"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRapidRepeatSuppressed(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	th := NewWithClock(clock.now)
	s := &session.Session{ChatID: 1}

	assert.False(t, th.ShouldThrottle(s, "restart_confirm", 2*time.Second))
	clock.advance(500 * time.Millisecond)
	assert.True(t, th.ShouldThrottle(s, "restart_confirm", 2*time.Second))
}

func TestRepeatAfterCooldownAllowed(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	th := NewWithClock(clock.now)
	s := &session.Session{ChatID: 1}

	assert.False(t, th.ShouldThrottle(s, "restart_confirm", 2*time.Second))
	clock.advance(3 * time.Second)
	assert.False(t, th.ShouldThrottle(s, "restart_confirm", 2*time.Second))
}

func TestDifferentActionNotThrottled(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	th := NewWithClock(clock.now)
	s := &session.Session{ChatID: 1}

	assert.False(t, th.ShouldThrottle(s, "publish", 2*time.Second))
	clock.advance(100 * time.Millisecond)
	assert.False(t, th.ShouldThrottle(s, "unpublish", 2*time.Second))
}

func TestSuppressedTapDoesNotExtendWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	th := NewWithClock(clock.now)
	s := &session.Session{ChatID: 1}

	assert.False(t, th.ShouldThrottle(s, "maint_toggle", 2*time.Second))
	// Tap repeatedly inside the window; the record must not refresh.
	for i := 0; i < 3; i++ {
		clock.advance(600 * time.Millisecond)
		if clock.t.Sub(time.Unix(1000, 0)) < 2*time.Second {
			assert.True(t, th.ShouldThrottle(s, "maint_toggle", 2*time.Second))
		}
	}
	clock.advance(600 * time.Millisecond) // 2.4s after the first allowed tap
	assert.False(t, th.ShouldThrottle(s, "maint_toggle", 2*time.Second))
}

func TestSessionsIndependent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	th := NewWithClock(clock.now)
	a := &session.Session{ChatID: 1}
	b := &session.Session{ChatID: 2}

	assert.False(t, th.ShouldThrottle(a, "publish", 2*time.Second))
	assert.False(t, th.ShouldThrottle(b, "publish", 2*time.Second))
}
