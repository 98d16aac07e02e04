// Package store abstracts the external document store the controller
// publishes to: a single "system state" document and a collection of
// "schedule" documents, without tying the controller to any specific
// backend.
package store

import "time"

// SerializedTask is the wire shape of a Task written into the state
// document.
type SerializedTask struct {
	ID            string         `json:"id"`
	Kind          string         `json:"kind"`
	Priority      int            `json:"priority"`
	Payload       map[string]any `json:"payload"`
	Status        int            `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	ScheduledTime time.Time      `json:"scheduled_time"`
}

// StateDoc is "system/state": the single document describing what the
// channel is doing right now.
type StateDoc struct {
	ActiveTask *SerializedTask `json:"active_task"`
	Priority   int             `json:"priority"`
	Mode       string          `json:"mode"`
	Timestamp  time.Time       `json:"timestamp"`
}

// ScheduleTimeUpdate rewrites a schedule document's displayed date/time
// fields after a time shift.
type ScheduleTimeUpdate struct {
	ID   string
	Date string // YYYY-MM-DD, controller's local timezone
	Time string // HH:MM, 24-hour, controller's local timezone
}

// ScheduleDoc is a row read back from the schedule store, used by the
// startup rehydrator (internal/rehydrate) to reconstruct pending
// SCHEDULE tasks.
type ScheduleDoc struct {
	ID            string
	Payload       map[string]any
	ScheduledTime time.Time
	Status        string // e.g. "Pending", "Completed"
}
