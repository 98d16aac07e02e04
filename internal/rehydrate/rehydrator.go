// Package rehydrate replays pending schedule documents into a fresh
// controller at process startup, so a restart does not silently drop
// SCHEDULE tasks that were queued before the crash. It is an external
// collaborator to the controller, not part of its core decision
// surface — addressed in the design ledger as an open question the
// base behavior leaves to the embedder.
package rehydrate

import (
	"context"
	"fmt"
	"log"

	"github.com/itskum47/pa-control/internal/arbiter"
	"github.com/itskum47/pa-control/internal/store"
)

// Controller narrows *arbiter.Controller to what rehydration needs.
type Controller interface {
	Request(ctx context.Context, t *arbiter.Task) bool
}

// Run lists pending schedule documents from st and resubmits each as a
// SCHEDULE task. Failures on individual documents are logged and
// skipped rather than aborting the batch, matching the best-effort
// posture of every other external write in this system.
func Run(ctx context.Context, c Controller, st store.Store) error {
	docs, err := st.ListPendingSchedules(ctx)
	if err != nil {
		return fmt.Errorf("list pending schedules: %w", err)
	}
	log.Printf("[rehydrate] found %d pending schedule(s)", len(docs))

	for _, d := range docs {
		t := &arbiter.Task{
			ID:            d.ID,
			Kind:          arbiter.KindSchedule,
			Priority:      arbiter.PrioritySchedule,
			Payload:       d.Payload,
			ScheduledTime: d.ScheduledTime,
		}
		if !c.Request(ctx, t) {
			log.Printf("[rehydrate] schedule %s rejected on resubmit", d.ID)
		}
	}
	return nil
}
