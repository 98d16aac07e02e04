// Package incident captures a point-in-time snapshot of the channel
// for post-mortem review when an EMERGENCY task is admitted. It is an
// operational collaborator, not part of the controller's core decision
// surface.
package incident

import (
	"time"

	"github.com/itskum47/pa-control/internal/arbiter"
	"github.com/itskum47/pa-control/internal/timeline"
)

// Report is a captured snapshot taken at EMERGENCY activation.
type Report struct {
	TriggerTaskID string                    `json:"trigger_task_id"`
	Current       *arbiter.Task             `json:"current"`
	Queue         []*arbiter.Task           `json:"queue"`
	RecentEvents  []timeline.TransitionEvent `json:"recent_events"`
	CapturedAt    time.Time                 `json:"captured_at"`
}

// Controller narrows *arbiter.Controller to what Capture needs.
type Controller interface {
	Current() *arbiter.Task
	Queue() []*arbiter.Task
}

// Capture assembles a Report from the controller's present state and
// the last n timeline events. It never fails: an empty queue or empty
// timeline simply yields an empty slice.
func Capture(c Controller, events *timeline.Store, triggerTaskID string, n int) *Report {
	r := &Report{
		TriggerTaskID: triggerTaskID,
		Current:       c.Current(),
		Queue:         c.Queue(),
		CapturedAt:    time.Now(),
	}
	if events != nil {
		r.RecentEvents = events.Recent(n)
	}
	return r
}
