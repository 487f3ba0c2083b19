// Package workitem holds the dispatch aggregate: one order, its offer
// history, and its reassignment audit trail. The assignment engine owns all
// state transitions; everything else treats the struct as a snapshot.
package workitem

import (
	"time"

	"github.com/google/uuid"

	"github.com/calloway-labs/dispatch-backend/pkg/enums"
)

// WorkItem is the unit of work being assigned to a candidate courier.
type WorkItem struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`

	Status             enums.WorkItemStatus `json:"status"`
	CurrentCandidateID *uuid.UUID           `json:"current_candidate_id,omitempty"`

	Assignments   []Assignment        `json:"assignments"`
	Reassignments []ReassignmentEvent `json:"reassignments"`

	Payload Payload `json:"payload"`

	// Captured at creation so in-flight items keep their timing even if the
	// process-level defaults change.
	OfferTimeout time.Duration `json:"offer_timeout"`
	MaxAttempts  int           `json:"max_attempts"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	TimedOutAt *time.Time `json:"timed_out_at,omitempty"`
}

// Assignment records one offer to one candidate and its outcome.
type Assignment struct {
	CandidateID   uuid.UUID                `json:"candidate_id"`
	OfferedAt     time.Time                `json:"offered_at"`
	ResponseState enums.AssignmentResponse `json:"response_state"`
	RespondedAt   *time.Time               `json:"responded_at,omitempty"`
}

// ResponseLatency returns how long the candidate took to respond, or zero
// while the offer is still open.
func (a Assignment) ResponseLatency() time.Duration {
	if a.RespondedAt == nil {
		return 0
	}
	return a.RespondedAt.Sub(a.OfferedAt)
}

// ReassignmentEvent is one entry in the append-only reassignment log.
type ReassignmentEvent struct {
	PreviousCandidateID uuid.UUID                `json:"previous_candidate_id"`
	NewCandidateID      uuid.UUID                `json:"new_candidate_id"`
	Reason              enums.ReassignmentReason `json:"reason"`
	OccurredAt          time.Time                `json:"occurred_at"`
}

// New creates a pending work item with an empty history.
func New(ownerID uuid.UUID, payload Payload, offerTimeout time.Duration, maxAttempts int, now time.Time) *WorkItem {
	return &WorkItem{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Status:       enums.WorkItemStatusPending,
		Payload:      payload,
		OfferTimeout: offerTimeout,
		MaxAttempts:  maxAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// OpenAssignment returns the assignment that is still awaiting a response,
// or nil. At most one assignment can be open at any time.
func (w *WorkItem) OpenAssignment() *Assignment {
	if len(w.Assignments) == 0 {
		return nil
	}
	last := &w.Assignments[len(w.Assignments)-1]
	if last.ResponseState.Open() {
		return last
	}
	return nil
}

// LastAssignmentFor returns the most recent assignment offered to the given
// candidate, or nil if the candidate was never tried.
func (w *WorkItem) LastAssignmentFor(candidateID uuid.UUID) *Assignment {
	for i := len(w.Assignments) - 1; i >= 0; i-- {
		if w.Assignments[i].CandidateID == candidateID {
			return &w.Assignments[i]
		}
	}
	return nil
}

// Tried returns the candidates already present in the assignment history,
// in offer order.
func (w *WorkItem) Tried() []uuid.UUID {
	tried := make([]uuid.UUID, 0, len(w.Assignments))
	for _, a := range w.Assignments {
		tried = append(tried, a.CandidateID)
	}
	return tried
}

// ReassignmentCount is derived: assignments beyond the first.
func (w *WorkItem) ReassignmentCount() int {
	if len(w.Assignments) == 0 {
		return 0
	}
	return len(w.Assignments) - 1
}

// Terminal reports whether the item accepts no further assignments.
func (w *WorkItem) Terminal() bool {
	return w.Status.Terminal()
}

// AttemptsExhausted reports whether the attempt cap leaves no room for
// another offer.
func (w *WorkItem) AttemptsExhausted() bool {
	return len(w.Assignments) >= w.MaxAttempts
}
