package arbiter

import (
	"sort"
	"time"
)

// scheduleQueue holds pending/interrupted SCHEDULE tasks, ordered
// ascending by ScheduledTime. It is not safe for concurrent use; callers
// hold the Controller lock.
//
// Strict ScheduledTime ordering has one explicit exception: preemptCurrent
// re-inserts an INTERRUPTED task at position 0 regardless of its
// ScheduledTime. That state is transient — the next sort() call (driven
// by a time shift, or a subsequent add) restores ordering.
type scheduleQueue struct {
	tasks []*Task
}

// add inserts t in ScheduledTime order.
func (q *scheduleQueue) add(t *Task) {
	q.tasks = append(q.tasks, t)
	q.sort()
}

// headInsert pushes t to position 0, ignoring sort order. Used only when
// re-queuing a soft-preempted SCHEDULE task.
func (q *scheduleQueue) headInsert(t *Task) {
	q.tasks = append([]*Task{t}, q.tasks...)
}

// sort restores ScheduledTime ordering with a stable sort so tasks with
// equal ScheduledTime keep their relative insertion order.
func (q *scheduleQueue) sort() {
	sort.SliceStable(q.tasks, func(i, j int) bool {
		return q.tasks[i].ScheduledTime.Before(q.tasks[j].ScheduledTime)
	})
}

// dueHead returns the head of the queue if it is due at now, without
// skipping ahead to a later-queued-but-also-due item.
func (q *scheduleQueue) dueHead(now time.Time) *Task {
	if len(q.tasks) == 0 {
		return nil
	}
	if q.tasks[0].ScheduledTime.After(now) {
		return nil
	}
	return q.tasks[0]
}

// popFront removes and returns the head task. Caller must have already
// confirmed it is the one to promote.
func (q *scheduleQueue) popFront() *Task {
	if len(q.tasks) == 0 {
		return nil
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t
}

// remove deletes any task with the given id. No-op if absent.
func (q *scheduleQueue) remove(id string) {
	out := q.tasks[:0]
	for _, t := range q.tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	q.tasks = out
}

// snapshot returns a defensive copy of the queue for callers outside the
// lock.
func (q *scheduleQueue) snapshot() []*Task {
	out := make([]*Task, len(q.tasks))
	for i, t := range q.tasks {
		out[i] = t.Clone()
	}
	return out
}

func (q *scheduleQueue) len() int {
	return len(q.tasks)
}
