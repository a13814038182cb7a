package system

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestStatusHealthy(t *testing.T) {
	c := NewControl(fakePinger{}, zap.NewNop())
	c.start = time.Now().Add(-(time.Hour + 2*time.Minute + 3*time.Second))

	st := c.Status(context.Background())
	assert.Equal(t, "01:02:03", st.Uptime)
	assert.Equal(t, os.Getpid(), st.PID)
	assert.True(t, st.DBOK)
	assert.NotEmpty(t, st.GoVersion)
}

func TestStatusReportsDeadDB(t *testing.T) {
	c := NewControl(fakePinger{err: errors.New("closed")}, zap.NewNop())
	assert.False(t, c.Status(context.Background()).DBOK)
}

func TestRequestRestartSignalsAfterDelay(t *testing.T) {
	c := NewControl(fakePinger{}, zap.NewNop())

	var slept time.Duration
	killed := make(chan struct{})
	c.sleep = func(d time.Duration) { slept = d }
	c.kill = func() { close(killed) }

	c.RequestRestart()

	select {
	case <-killed:
	case <-time.After(time.Second):
		t.Fatal("kill was never invoked")
	}
	require.Equal(t, restartDelay, slept)
}

func TestFormatUptimeRollsPastADay(t *testing.T) {
	assert.Equal(t, "00:00:00", formatUptime(0))
	assert.Equal(t, "25:00:07", formatUptime(25*time.Hour+7*time.Second))
}
