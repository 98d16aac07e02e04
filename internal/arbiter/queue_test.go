package arbiter

import (
	"testing"
	"time"
)

func TestQueueSortOrder(t *testing.T) {
	q := &scheduleQueue{}
	base := time.Unix(1_700_000_000, 0)

	q.add(&Task{ID: "late", ScheduledTime: base.Add(30 * time.Minute)})
	q.add(&Task{ID: "early", ScheduledTime: base.Add(5 * time.Minute)})
	q.add(&Task{ID: "mid", ScheduledTime: base.Add(15 * time.Minute)})

	got := []string{q.tasks[0].ID, q.tasks[1].ID, q.tasks[2].ID}
	want := []string{"early", "mid", "late"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected sorted order %v, got %v", want, got)
		}
	}
}

func TestQueueHeadInsertBreaksSortOrder(t *testing.T) {
	q := &scheduleQueue{}
	base := time.Unix(1_700_000_000, 0)

	q.add(&Task{ID: "a", ScheduledTime: base.Add(5 * time.Minute)})
	q.add(&Task{ID: "b", ScheduledTime: base.Add(10 * time.Minute)})

	// A re-queued, interrupted task goes to the head regardless of its
	// own scheduled time, until the next tick re-sorts the queue.
	q.headInsert(&Task{ID: "resumed", ScheduledTime: base.Add(time.Hour)})

	if q.tasks[0].ID != "resumed" {
		t.Fatalf("expected head-inserted task first, got %s", q.tasks[0].ID)
	}
}

func TestQueueDueHead(t *testing.T) {
	q := &scheduleQueue{}
	now := time.Unix(1_700_000_000, 0)

	q.add(&Task{ID: "future", ScheduledTime: now.Add(time.Minute)})
	if due := q.dueHead(now); due != nil {
		t.Fatalf("expected no due task, got %v", due)
	}

	q.add(&Task{ID: "due", ScheduledTime: now.Add(-time.Second)})
	due := q.dueHead(now)
	if due == nil || due.ID != "due" {
		t.Fatalf("expected 'due' task at head, got %v", due)
	}

	popped := q.popFront()
	if popped.ID != "due" {
		t.Fatalf("expected popFront to return 'due', got %s", popped.ID)
	}
	if q.len() != 1 {
		t.Fatalf("expected 1 remaining task, got %d", q.len())
	}
}

func TestQueueRemove(t *testing.T) {
	q := &scheduleQueue{}
	q.add(&Task{ID: "keep"})
	q.add(&Task{ID: "drop"})

	q.remove("drop")
	if q.len() != 1 || q.tasks[0].ID != "keep" {
		t.Fatalf("expected only 'keep' left, got %+v", q.tasks)
	}
}
