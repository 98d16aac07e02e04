package arbiter

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/itskum47/pa-control/internal/observability"
	"github.com/itskum47/pa-control/internal/store"
	"github.com/itskum47/pa-control/internal/streaming"
	"github.com/itskum47/pa-control/internal/timeline"
)

// Controller is the Playback Arbitration Controller (PAC): the single
// authority over the shared broadcast channel. All state mutation
// happens inside the one lock below; no method that holds it may call
// another method that re-acquires it.
type Controller struct {
	mu sync.Mutex

	current       *Task
	queue         scheduleQueue
	emergencyLatch bool
	pauseStart    *time.Time

	store     store.Store
	publisher streaming.Publisher
	events    *timeline.Store

	now func() time.Time
}

// New constructs a Controller. store and publisher may be nil-safe
// no-ops the caller provides; events may be nil to disable the audit
// timeline.
func New(st store.Store, publisher streaming.Publisher, events *timeline.Store) *Controller {
	return &Controller{
		store:     st,
		publisher: publisher,
		events:    events,
		now:       time.Now,
	}
}

// ResetState writes the startup IDLE state document exactly once,
// before the controller accepts any request.
func (c *Controller) ResetState(ctx context.Context) {
	c.publishState(ctx, nil, PriorityIdle, ModeIdle)
}

// Request admits a new task, applying the priority-preemption decision
// table. It returns whether the task was accepted.
func (c *Controller) Request(ctx context.Context, t *Task) bool {
	c.mu.Lock()

	if t.Status == 0 {
		t.Status = StatusPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = c.now()
	}
	if t.ScheduledTime.IsZero() {
		t.ScheduledTime = t.CreatedAt
	}

	// 1. Emergency is invincible to anything but another EMERGENCY.
	if c.emergencyLatch && t.Priority < PriorityEmergency {
		c.mu.Unlock()
		c.recordAndCount("REJECT", t, "emergency_denied")
		return false
	}

	// 2. SCHEDULE tasks always queue first, never preempt directly.
	if t.Kind == KindSchedule {
		c.queue.add(t)
		depth := c.queue.len()
		c.mu.Unlock()
		observability.QueueDepth.Set(float64(depth))
		c.recordAndCount("ADMIT", t, "queued")
		return true
	}

	currentPriority := PriorityIdle
	if c.current != nil {
		currentPriority = c.current.Priority
	}

	backgroundSwap := t.Priority == PriorityBackground && currentPriority == PriorityBackground

	if t.Priority > currentPriority || backgroundSwap {
		c.preemptCurrentLocked(ctx)
		c.startLocked(ctx, t)
		c.mu.Unlock()
		c.recordAndCount("ADMIT", t, "accepted")
		return true
	}

	c.mu.Unlock()
	c.recordAndCount("REJECT", t, "busy")
	return false
}

// Stop stops the currently playing task, honoring anti-zombie id
// matching for realtime kinds.
func (c *Controller) Stop(ctx context.Context, id string, kindHint Kind) {
	c.mu.Lock()

	if c.current == nil {
		c.mu.Unlock()
		return
	}
	if id != "" && c.current.ID != id {
		c.mu.Unlock()
		c.recordAndCount("REJECT", nil, "id_mismatch")
		return
	}
	// Anti-zombie: a realtime stop without an id is ignored, so a stale
	// client cannot kill a newer session.
	if id == "" && (c.current.Kind == KindVoice || c.current.Kind == KindText) {
		c.mu.Unlock()
		c.recordAndCount("REJECT", nil, "anti_zombie")
		return
	}

	stopped := c.current
	if c.current.Priority == PriorityEmergency {
		c.emergencyLatch = false
	}
	c.current = nil

	c.publishStateLocked(ctx, nil, PriorityIdle, ModeIdle)
	c.applyQueueShiftLocked(ctx)

	c.mu.Unlock()
	c.recordTransition("STOP", stopped)
}

// Remove deletes any queued task with the given id. No effect on the
// currently playing task.
func (c *Controller) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.remove(id)
	observability.QueueDepth.Set(float64(c.queue.len()))
}

// Queue returns a defensive snapshot of pending/interrupted schedules.
func (c *Controller) Queue() []*Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.snapshot()
}

// ActiveEmergencyUser returns the submitting user of the active EMERGENCY
// task, if one is playing.
func (c *Controller) ActiveEmergencyUser() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.emergencyLatch && c.current != nil {
		return c.current.User(), true
	}
	return "", false
}

// Current returns a defensive copy of the currently playing task, or
// nil.
func (c *Controller) Current() *Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Clone()
}

// preemptCurrentLocked applies the per-kind preemption rules: SCHEDULE
// is soft-preempted (re-queued at the head for later resumption), every
// other kind is hard-preempted (discarded). Caller holds the lock.
func (c *Controller) preemptCurrentLocked(ctx context.Context) {
	if c.current == nil {
		return
	}
	displaced := c.current

	switch displaced.Kind {
	case KindSchedule:
		// Soft: re-queue at the head, out of sort order, for the next
		// scheduler tick to re-promote.
		displaced.Status = StatusInterrupted
		c.queue.headInsert(displaced)
		observability.QueueDepth.Set(float64(c.queue.len()))
	default:
		// VOICE, TEXT, BACKGROUND: hard preemption, discard.
		displaced.Status = StatusCompleted
	}

	c.current = nil
	c.recordTransition("PREEMPT", displaced)
}

// startLocked begins playback of t. Caller holds the lock.
func (c *Controller) startLocked(ctx context.Context, t *Task) {
	c.current = t
	t.Status = StatusPlaying

	if t.Priority >= PriorityRealtime && c.pauseStart == nil {
		now := c.now()
		c.pauseStart = &now
	}
	if t.Kind == KindEmergency {
		c.emergencyLatch = true
		observability.EmergencyActivations.Inc()
	}

	mode := modeForKind(t.Kind)
	c.publishStateLocked(ctx, t, t.Priority, mode)
}

func (c *Controller) recordAndCount(stage string, t *Task, reason string) {
	observability.Decisions.WithLabelValues(reason).Inc()
	c.recordTransition(stage, t)
}

func (c *Controller) recordTransition(stage string, t *Task) {
	ev := timeline.TransitionEvent{Stage: stage}
	if t != nil {
		ev.TaskID = t.ID
		ev.Kind = string(t.Kind)
	}
	if c.events != nil {
		c.events.Record(ev)
	}
	c.publishAudit(stage, t)
}

// publishAudit emits a best-effort record to the external logging sink.
// Failures are logged and otherwise ignored; they never affect the
// in-memory transition, which has already completed by the time this
// runs.
func (c *Controller) publishAudit(stage string, t *Task) {
	if c.publisher == nil {
		return
	}
	payload := map[string]any{"stage": stage, "at": c.now()}
	if t != nil {
		payload["task_id"] = t.ID
		payload["kind"] = string(t.Kind)
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := c.publisher.Publish(ctx, "pac.transition", payload); err != nil {
		observability.PublishFailures.WithLabelValues("audit").Inc()
		log.Printf("[arbiter] audit publish failed: %v", err)
	}
}

const publishTimeout = 2 * time.Second

// publishState acquires the lock before delegating to the unlocked
// implementation; used by callers outside an existing critical section
// (e.g. ResetState).
func (c *Controller) publishState(ctx context.Context, t *Task, priority Priority, mode Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishStateLocked(ctx, t, priority, mode)
}

// publishStateLocked writes the current state doc. Caller holds the
// lock; the write itself is bounded by publishTimeout and best-effort —
// a failure is logged, never rolled back.
func (c *Controller) publishStateLocked(ctx context.Context, t *Task, priority Priority, mode Mode) {
	observability.Mode.Reset()
	observability.Mode.WithLabelValues(string(mode)).Set(1)

	if c.store == nil {
		return
	}
	doc := store.StateDoc{
		Priority:  int(priority),
		Mode:      string(mode),
		Timestamp: c.now(),
	}
	if t != nil {
		doc.ActiveTask = serialize(t)
	}

	writeCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := c.store.SetState(writeCtx, doc); err != nil {
		observability.PublishFailures.WithLabelValues("state_doc").Inc()
		log.Printf("[arbiter] state doc write failed: %v", err)
	}
}

func serialize(t *Task) *store.SerializedTask {
	return &store.SerializedTask{
		ID:            t.ID,
		Kind:          string(t.Kind),
		Priority:      int(t.Priority),
		Payload:       t.Payload,
		Status:        int(t.Status),
		CreatedAt:     t.CreatedAt,
		ScheduledTime: t.ScheduledTime,
	}
}
