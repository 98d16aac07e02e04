package arbiter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/itskum47/pa-control/internal/store"
)

// recordingStore is a minimal in-memory store.Store used to assert what
// the controller writes, without pulling in a real backend.
type recordingStore struct {
	mu             sync.Mutex
	states         []store.StateDoc
	batchUpdates   [][]store.ScheduleTimeUpdate
	completedIDs   []string
	failBatch      bool
}

func (s *recordingStore) SetState(_ context.Context, doc store.StateDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, doc)
	return nil
}

func (s *recordingStore) MarkScheduleCompleted(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completedIDs = append(s.completedIDs, id)
	return nil
}

func (s *recordingStore) BatchUpdateScheduleTimes(_ context.Context, updates []store.ScheduleTimeUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchUpdates = append(s.batchUpdates, updates)
	if s.failBatch {
		return errFakeBatch
	}
	return nil
}

func (s *recordingStore) ListPendingSchedules(_ context.Context) ([]store.ScheduleDoc, error) {
	return nil, nil
}

var errFakeBatch = &fakeErr{"batch write failed"}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }

func TestApplyQueueShiftWritesBatch(t *testing.T) {
	st := &recordingStore{}
	c := New(st, nil, nil)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return base }

	sched := task("s1", KindSchedule, PrioritySchedule)
	sched.ScheduledTime = base.Add(10 * time.Minute)
	c.Request(ctx, sched)

	c.Request(ctx, task("v1", KindVoice, PriorityRealtime))
	c.now = func() time.Time { return base.Add(3 * time.Minute) }
	c.Stop(ctx, "v1", KindVoice)

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.batchUpdates) != 1 || len(st.batchUpdates[0]) != 1 {
		t.Fatalf("expected one batch update with one entry, got %+v", st.batchUpdates)
	}
	got := st.batchUpdates[0][0]
	if got.ID != "s1" {
		t.Fatalf("expected shift entry for s1, got %+v", got)
	}
	wantTime := base.Add(13 * time.Minute)
	if got.Date != wantTime.Format("2006-01-02") || got.Time != wantTime.Format("15:04") {
		t.Fatalf("expected shifted date/time %s %s, got %s %s",
			wantTime.Format("2006-01-02"), wantTime.Format("15:04"), got.Date, got.Time)
	}
}

func TestApplyQueueShiftNoopWithoutPause(t *testing.T) {
	st := &recordingStore{}
	c := New(st, nil, nil)
	ctx := context.Background()

	sched := task("s1", KindSchedule, PrioritySchedule)
	c.Request(ctx, sched)

	// No realtime task ever played, so pauseStart was never set; Stop on
	// an idle channel must not touch the store.
	c.Stop(ctx, "s1", KindSchedule)

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.batchUpdates) != 0 {
		t.Fatalf("expected no batch update, got %+v", st.batchUpdates)
	}
}
