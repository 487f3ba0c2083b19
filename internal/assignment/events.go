package assignment

import (
	"context"

	"github.com/calloway-labs/dispatch-backend/internal/workitem"
)

// ReassignedEvent is emitted after a work item moves to a new candidate,
// whether the previous offer timed out or was rejected.
type ReassignedEvent struct {
	Item               workitem.WorkItem
	ReassignmentCount  int
	PreviousCandidates int
}

// ExhaustedEvent is emitted when a work item runs out of attempts or
// candidates and lands in the timed-out state.
type ExhaustedEvent struct {
	Item workitem.WorkItem
}

// EventSink receives lifecycle events from the engine. Implementations must
// not block; the engine calls these inside request and timer goroutines after
// the snapshot has been persisted.
type EventSink interface {
	Reassigned(ctx context.Context, ev ReassignedEvent)
	Exhausted(ctx context.Context, ev ExhaustedEvent)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Reassigned(context.Context, ReassignedEvent) {}
func (NopSink) Exhausted(context.Context, ExhaustedEvent)   {}
