package arbiter

import (
	"context"
	"log"

	"github.com/itskum47/pa-control/internal/observability"
	"github.com/itskum47/pa-control/internal/store"
)

// applyQueueShiftLocked shifts every queued schedule forward by the
// duration the channel was just occupied. Caller holds the lock and has
// just transitioned the channel to idle. With delta == 0 (pauseStart nil,
// or pauseStart == now) this is a documented no-op on both the queue and
// the store.
func (c *Controller) applyQueueShiftLocked(ctx context.Context) {
	if c.pauseStart == nil {
		return
	}
	now := c.now()
	delta := now.Sub(*c.pauseStart)
	c.pauseStart = nil

	if delta <= 0 {
		return
	}

	updates := make([]store.ScheduleTimeUpdate, 0, c.queue.len())
	for _, t := range c.queue.tasks {
		t.ScheduledTime = t.ScheduledTime.Add(delta)
		updates = append(updates, store.ScheduleTimeUpdate{
			ID:   t.ID,
			Date: t.ScheduledTime.Format("2006-01-02"),
			Time: t.ScheduledTime.Format("15:04"),
		})
	}
	// Re-sort: relative order is preserved by a uniform add, but the
	// head-inserted INTERRUPTED task (if any) may now land anywhere.
	c.queue.sort()

	observability.TimeShiftSeconds.Observe(delta.Seconds())

	if c.store == nil || len(updates) == 0 {
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := c.store.BatchUpdateScheduleTimes(writeCtx, updates); err != nil {
		observability.PublishFailures.WithLabelValues("schedule_batch").Inc()
		log.Printf("[arbiter] schedule batch shift failed: %v", err)
	}
}

// promoteDueLocked removes the queue head (already confirmed due) and starts it,
// resetting its priority to SCHEDULE in case it was edited while queued.
// Returns the promoted task, or nil if the queue was empty or not yet due.
func (c *Controller) promoteDueLocked(ctx context.Context) *Task {
	due := c.queue.dueHead(c.now())
	if due == nil {
		return nil
	}
	c.queue.popFront()
	due.Priority = PrioritySchedule
	c.startLocked(ctx, due)
	observability.QueueDepth.Set(float64(c.queue.len()))
	observability.PromotionsTotal.Inc()
	return due
}
