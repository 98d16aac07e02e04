package store

import "context"

// Store is the narrow persistence surface the arbiter and its
// collaborators consume: one state-doc set per transition, a
// best-effort schedule completion update, and an atomic batch update
// for time-shifted schedules.
//
// Mutations are idempotent by doc-id: writing the same StateDoc or the
// same ScheduleTimeUpdate twice must be safe, since the controller
// treats these writes as best-effort and never retries with side
// effects beyond the one it already applied in memory.
type Store interface {
	// SetState overwrites "system/state" wholesale. Called exactly once
	// per transition, including the startup reset.
	SetState(ctx context.Context, doc StateDoc) error

	// MarkScheduleCompleted is the best-effort write issued when the
	// scheduler loop promotes a SCHEDULE task.
	MarkScheduleCompleted(ctx context.Context, scheduleID string) error

	// BatchUpdateScheduleTimes atomically rewrites the date/time fields
	// of every shifted schedule document. It must either apply all
	// updates or none.
	BatchUpdateScheduleTimes(ctx context.Context, updates []ScheduleTimeUpdate) error

	// ListPendingSchedules returns schedule documents not yet completed,
	// for startup rehydration (internal/rehydrate). An external-collaborator
	// concern, separate from the controller's own arbitration state.
	ListPendingSchedules(ctx context.Context) ([]ScheduleDoc, error)
}
