package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// CleanupSchedule drives periodic CleanupOldTelemetry sweeps against a
// Store using a cron expression.
type CleanupSchedule struct {
	store         *Store
	sched         cron.Schedule
	retentionDays int
	stop          chan struct{}
	stopOnce      sync.Once
}

// NewCleanupSchedule parses expr (standard 5-field cron syntax) and binds
// it to store, retaining retentionDays of history on every sweep.
func NewCleanupSchedule(store *Store, expr string, retentionDays int) (*CleanupSchedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("telemetry: invalid cleanup schedule %q: %w", expr, err)
	}

	return &CleanupSchedule{
		store:         store,
		sched:         sched,
		retentionDays: retentionDays,
	}, nil
}

// NextRun returns the next scheduled sweep time after now.
func (c *CleanupSchedule) NextRun(now time.Time) time.Time {
	return c.sched.Next(now)
}

// RunOnce performs one cleanup sweep immediately and returns the number
// of rows removed.
func (c *CleanupSchedule) RunOnce(now time.Time) (int64, error) {
	return c.store.CleanupOldTelemetry(now.UnixMilli(), c.retentionDays)
}

// Start runs sweeps on the cron schedule until Stop is called. onResult,
// if non-nil, is invoked after each sweep (including failed ones).
func (c *CleanupSchedule) Start(onResult func(removed int64, err error)) {
	c.stop = make(chan struct{})
	c.stopOnce = sync.Once{}

	go func() {
		for {
			now := time.Now()
			next := c.sched.Next(now)
			timer := time.NewTimer(next.Sub(now))

			select {
			case <-c.stop:
				timer.Stop()
				return
			case fired := <-timer.C:
				removed, err := c.store.CleanupOldTelemetry(fired.UnixMilli(), c.retentionDays)
				if onResult != nil {
					onResult(removed, err)
				}
			}
		}
	}()
}

// Stop ends the background sweep loop started by Start. Safe to call more
// than once, or before Start, from any goroutine.
func (c *CleanupSchedule) Stop() {
	if c.stop == nil {
		return
	}
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}
