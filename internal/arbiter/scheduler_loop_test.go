package arbiter

import (
	"context"
	"testing"
	"time"
)

func TestLoopPromotesDueSchedule(t *testing.T) {
	st := &recordingStore{}
	c := New(st, nil, nil)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return base }

	sched := task("s1", KindSchedule, PrioritySchedule)
	sched.ScheduledTime = base.Add(-time.Second) // already due
	c.Request(ctx, sched)

	loop := NewLoop(c, 10*time.Millisecond)
	runCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	go loop.Run(runCtx)

	deadline := time.After(200 * time.Millisecond)
	for {
		if cur := c.Current(); cur != nil && cur.ID == "s1" {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for scheduler loop to promote s1")
		case <-time.After(5 * time.Millisecond):
		}
	}

	st.mu.Lock()
	completed := append([]string(nil), st.completedIDs...)
	st.mu.Unlock()
	if len(completed) != 1 || completed[0] != "s1" {
		t.Fatalf("expected MarkScheduleCompleted(s1), got %v", completed)
	}
}

func TestLoopSkipsTickWhileChannelBusy(t *testing.T) {
	c := newTestController()
	ctx := context.Background()

	c.Request(ctx, task("v1", KindVoice, PriorityRealtime))

	due := task("s1", KindSchedule, PrioritySchedule)
	due.ScheduledTime = time.Unix(0, 0)
	c.Request(ctx, due)

	loop := NewLoop(c, 5*time.Millisecond)
	runCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	loop.Run(runCtx)

	if cur := c.Current(); cur == nil || cur.ID != "v1" {
		t.Fatalf("expected v1 still playing, scheduler must not promote while channel busy")
	}
	if q := c.Queue(); len(q) != 1 || q[0].ID != "s1" {
		t.Fatalf("expected s1 still queued, got %+v", q)
	}
}
