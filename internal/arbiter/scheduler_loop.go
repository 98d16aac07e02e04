package arbiter

import (
	"context"
	"log"
	"time"

	"github.com/itskum47/pa-control/internal/observability"
)

// Loop drives the 1Hz promotion of due SCHEDULE tasks. It must never
// sleep or block while holding the controller's lock: each tick takes
// the lock only long enough to check and possibly promote the queue
// head, then releases it before the next tick's best-effort store
// write completes.
type Loop struct {
	c        *Controller
	interval time.Duration
}

// NewLoop returns a Loop polling at the given interval (production runs
// at 1Hz; tests may pass a shorter interval).
func NewLoop(c *Controller, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = time.Second
	}
	return &Loop{c: c, interval: interval}
}

// Run blocks until ctx is cancelled, promoting due schedules on each
// tick.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	c := l.c
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return
	}
	promoted := c.promoteDueLocked(ctx)
	c.mu.Unlock()

	if promoted == nil {
		return
	}
	c.recordAndCount("PROMOTE", promoted, "scheduled")

	if c.store == nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := c.store.MarkScheduleCompleted(writeCtx, promoted.ID); err != nil {
		observability.PublishFailures.WithLabelValues("schedule_doc").Inc()
		log.Printf("[arbiter] schedule doc completion write failed: %v", err)
	}
}
