package store

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreSetState(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.SetState(ctx, StateDoc{Priority: 30, Mode: "BROADCAST", Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.state.Mode != "BROADCAST" {
		t.Fatalf("expected stored mode BROADCAST, got %s", s.state.Mode)
	}
}

func TestMemoryStoreBatchUpdateScheduleTimes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Seed(ScheduleDoc{ID: "a", Status: "Pending"})
	s.Seed(ScheduleDoc{ID: "b", Status: "Pending"})

	err := s.BatchUpdateScheduleTimes(ctx, []ScheduleTimeUpdate{
		{ID: "a", Date: "2026-08-01", Time: "09:00"},
		{ID: "b", Date: "2026-08-01", Time: "09:30"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.schedules["a"].Payload["time"] != "09:00" {
		t.Fatalf("expected a shifted to 09:00, got %v", s.schedules["a"].Payload["time"])
	}
}

func TestMemoryStoreBatchUpdateRejectsUnknownID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Seed(ScheduleDoc{ID: "a", Status: "Pending"})

	err := s.BatchUpdateScheduleTimes(ctx, []ScheduleTimeUpdate{
		{ID: "a", Date: "2026-08-01", Time: "09:00"},
		{ID: "missing", Date: "2026-08-01", Time: "09:00"},
	})
	if err == nil {
		t.Fatal("expected error for unknown schedule id")
	}
	// The batch must not have partially applied: "a" keeps its original state.
	if _, ok := s.schedules["a"].Payload["time"]; ok {
		t.Fatalf("expected no partial application, but 'a' was updated")
	}
}

func TestMemoryStoreMarkScheduleCompleted(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Seed(ScheduleDoc{ID: "a", Status: "Pending"})

	if err := s.MarkScheduleCompleted(ctx, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pending, err := s.ListPendingSchedules(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending schedules after completion, got %d", len(pending))
	}
}
