package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store backed by plain maps. It is the
// default when no STORE_BACKEND is configured, and what tests run
// against.
type MemoryStore struct {
	mu        sync.RWMutex
	state     *StateDoc
	schedules map[string]*ScheduleDoc
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{schedules: make(map[string]*ScheduleDoc)}
}

func (s *MemoryStore) SetState(_ context.Context, doc StateDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := doc
	s.state = &d
	return nil
}

func (s *MemoryStore) MarkScheduleCompleted(_ context.Context, scheduleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.schedules[scheduleID]; ok {
		d.Status = "Completed"
	}
	return nil
}

func (s *MemoryStore) BatchUpdateScheduleTimes(_ context.Context, updates []ScheduleTimeUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Apply as a unit: validate every target exists before mutating any
	// of them, so a bad id can't leave the batch half-applied.
	for _, u := range updates {
		if _, ok := s.schedules[u.ID]; !ok {
			return errScheduleNotFound(u.ID)
		}
	}
	for _, u := range updates {
		d := s.schedules[u.ID]
		d.Payload["date"] = u.Date
		d.Payload["time"] = u.Time
	}
	return nil
}

func (s *MemoryStore) ListPendingSchedules(_ context.Context) ([]ScheduleDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ScheduleDoc, 0, len(s.schedules))
	for _, d := range s.schedules {
		if d.Status == "Pending" {
			out = append(out, *d)
		}
	}
	return out, nil
}

// Seed inserts a schedule document directly. Used by tests that need a
// pending schedule present without going through Request.
func (s *MemoryStore) Seed(doc ScheduleDoc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.Payload == nil {
		doc.Payload = make(map[string]any)
	}
	s.schedules[doc.ID] = &doc
}

type errScheduleNotFound string

func (e errScheduleNotFound) Error() string {
	return "schedule not found: " + string(e)
}
