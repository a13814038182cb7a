// Package system reports process health and performs the self-restart the
// settings screen offers. Restart is implemented as a delayed SIGTERM to
// the own process; a supervisor is expected to bring the bot back up.
package system

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"

	"casebot/internal/workflow"
)

const restartDelay = 700 * time.Millisecond

// Pinger checks that the backing database still answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Control implements workflow.SystemControl for the running process.
type Control struct {
	db    Pinger
	log   *zap.Logger
	start time.Time

	sleep func(time.Duration)
	kill  func()
}

func NewControl(db Pinger, log *zap.Logger) *Control {
	if log == nil {
		log = zap.NewNop()
	}
	return &Control{
		db:    db,
		log:   log,
		start: time.Now(),
		sleep: time.Sleep,
		kill: func() {
			_ = syscall.Kill(os.Getpid(), syscall.SIGTERM)
		},
	}
}

// Status returns the current health snapshot.
func (c *Control) Status(ctx context.Context) workflow.SystemStatus {
	dbOK := true
	if err := c.db.Ping(ctx); err != nil {
		c.log.Warn("db ping", zap.Error(err))
		dbOK = false
	}
	return workflow.SystemStatus{
		Uptime:    formatUptime(time.Since(c.start)),
		GoVersion: runtime.Version(),
		PID:       os.Getpid(),
		DBOK:      dbOK,
	}
}

// RequestRestart schedules a SIGTERM to the own process after a short delay,
// giving the transport time to deliver the confirmation message first.
func (c *Control) RequestRestart() {
	c.log.Info("restart requested", zap.Int("pid", os.Getpid()))
	go func() {
		c.sleep(restartDelay)
		c.kill()
	}()
}

func formatUptime(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := total % 3600 / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
