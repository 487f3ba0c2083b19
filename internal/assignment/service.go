// Package assignment implements the timeout-driven offer state machine. One
// work item is offered to one candidate at a time; a silent candidate loses
// the offer when the deadline timer fires, an explicit rejection hands it off
// immediately, and the attempt cap bounds the whole cycle.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/calloway-labs/dispatch-backend/internal/store"
	"github.com/calloway-labs/dispatch-backend/internal/workitem"
	"github.com/calloway-labs/dispatch-backend/pkg/config"
	"github.com/calloway-labs/dispatch-backend/pkg/enums"
	pkgerrors "github.com/calloway-labs/dispatch-backend/pkg/errors"
	"github.com/calloway-labs/dispatch-backend/pkg/logger"
	"github.com/calloway-labs/dispatch-backend/pkg/metrics"
)

// CreateInput captures the data required to open a work item. Zero timing
// fields fall back to the engine defaults.
type CreateInput struct {
	OwnerID      uuid.UUID
	Payload      workitem.Payload
	OfferTimeout time.Duration
	MaxAttempts  int
}

// Service exposes the assignment operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*workitem.WorkItem, error)
	Offer(ctx context.Context, id, candidateID uuid.UUID) (*workitem.WorkItem, error)
	Respond(ctx context.Context, id, candidateID uuid.UUID, response enums.AssignmentResponse) (*workitem.WorkItem, error)
	Get(ctx context.Context, id uuid.UUID) (*workitem.WorkItem, error)
	Cancel(ctx context.Context, id uuid.UUID) (*workitem.WorkItem, error)
	Shutdown()
}

type service struct {
	store    store.Store
	provider CandidateProvider
	sink     EventSink
	clock    Clock
	logg     *logger.Logger
	metrics  *metrics.AssignmentMetrics

	locks  *keyedMutex
	timers *timerArena

	offerTimeout time.Duration
	maxAttempts  int
}

// NewService builds the assignment engine. Sink, clock and metrics are
// optional; store and provider are not.
func NewService(st store.Store, provider CandidateProvider, sink EventSink, cfg config.AssignmentConfig, logg *logger.Logger, m *metrics.AssignmentMetrics, clock Clock) (Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store required")
	}
	if provider == nil {
		return nil, fmt.Errorf("candidate provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if sink == nil {
		sink = NopSink{}
	}
	if clock == nil {
		clock = realClock{}
	}
	offerTimeout := cfg.OfferTimeout
	if offerTimeout <= 0 {
		offerTimeout = 15 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &service{
		store:        st,
		provider:     provider,
		sink:         sink,
		clock:        clock,
		logg:         logg,
		metrics:      m,
		locks:        newKeyedMutex(),
		timers:       newTimerArena(),
		offerTimeout: offerTimeout,
		maxAttempts:  maxAttempts,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*workitem.WorkItem, error) {
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	offerTimeout := input.OfferTimeout
	if offerTimeout <= 0 {
		offerTimeout = s.offerTimeout
	}
	maxAttempts := input.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.maxAttempts
	}

	item := workitem.New(input.OwnerID, input.Payload, offerTimeout, maxAttempts, s.clock.Now())
	if err := s.store.Put(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist work item")
	}

	ctx = s.logg.WithWorkItemID(ctx, item.ID.String())
	s.logg.Info(ctx, "work item created")
	return item, nil
}

// Offer extends the item's next offer. A Nil candidateID lets the provider
// pick the next untried candidate; an explicit one is offered as-is.
func (s *service) Offer(ctx context.Context, id, candidateID uuid.UUID) (*workitem.WorkItem, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Terminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "work item is in a terminal state")
	}
	if item.Status == enums.WorkItemStatusAccepted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "work item already accepted")
	}
	if item.OpenAssignment() != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "an offer is already open")
	}

	ctx = s.logg.WithWorkItemID(ctx, item.ID.String())

	if item.AttemptsExhausted() {
		if err := s.exhaustLocked(ctx, item); err != nil {
			return nil, err
		}
		return item, nil
	}

	if candidateID == uuid.Nil {
		candidateID, err = s.provider.Next(ctx, item.ID, item.Tried())
		if errors.Is(err, ErrNoCandidates) {
			if err := s.exhaustLocked(ctx, item); err != nil {
				return nil, err
			}
			return item, nil
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select candidate")
		}
	} else {
		for _, tried := range item.Tried() {
			if tried == candidateID {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "candidate was already tried")
			}
		}
	}

	if err := s.offerLocked(ctx, item, candidateID); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) Respond(ctx context.Context, id, candidateID uuid.UUID, response enums.AssignmentResponse) (*workitem.WorkItem, error) {
	if response != enums.AssignmentResponseAccepted && response != enums.AssignmentResponseRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "response must be accepted or rejected")
	}
	if candidateID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "candidate id required")
	}

	unlock := s.locks.lock(id)
	defer unlock()

	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"work_item_id": item.ID.String(),
		"candidate_id": candidateID.String(),
	})

	open := item.OpenAssignment()
	if open == nil {
		// The offer this candidate saw has already been resolved. Their own
		// earlier response makes the repeat a harmless duplicate; anything
		// else is a real state conflict.
		if last := item.LastAssignmentFor(candidateID); last != nil && last.ResponseState == response {
			s.logg.Info(ctx, "duplicate response ignored")
			return item, nil
		}
		if item.Terminal() {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "work item is in a terminal state")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no open offer to respond to")
	}
	if open.CandidateID != candidateID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "candidate does not hold the current offer")
	}

	// This response wins the race against the deadline timer. Disarming here,
	// inside the critical section, guarantees the timer callback observes the
	// resolved assignment and no-ops.
	s.timers.disarm(item.ID)

	now := s.clock.Now()
	open.ResponseState = response
	open.RespondedAt = &now
	item.UpdatedAt = now
	s.metrics.ObserveResponseLatency(open.ResponseLatency())

	switch response {
	case enums.AssignmentResponseAccepted:
		item.Status = enums.WorkItemStatusAccepted
		if err := s.store.Put(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist acceptance")
		}
		s.metrics.IncAccepts()
		s.logg.Info(ctx, "offer accepted")
	case enums.AssignmentResponseRejected:
		s.logg.Info(ctx, "offer rejected")
		if err := s.reassignLocked(ctx, item, enums.ReassignmentReasonRejection); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*workitem.WorkItem, error) {
	return s.load(ctx, id)
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*workitem.WorkItem, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Terminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "work item is in a terminal state")
	}

	s.timers.disarm(item.ID)

	now := s.clock.Now()
	if open := item.OpenAssignment(); open != nil {
		// Resolve the dangling offer so no assignment stays open on a
		// cancelled item.
		open.ResponseState = enums.AssignmentResponseRejected
		open.RespondedAt = &now
	}
	item.Status = enums.WorkItemStatusCancelled
	item.CurrentCandidateID = nil
	item.UpdatedAt = now
	if err := s.store.Put(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cancellation")
	}

	ctx = s.logg.WithWorkItemID(ctx, item.ID.String())
	s.logg.Info(ctx, "work item cancelled")
	return item, nil
}

// Shutdown disarms every outstanding deadline timer. In-flight callbacks that
// already fired finish on their own.
func (s *service) Shutdown() {
	s.timers.shutdown()
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*workitem.WorkItem, error) {
	item, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "work item not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load work item")
	}
	return item, nil
}

// offerLocked appends an open assignment for candidateID, persists, and arms
// the deadline timer. Caller holds the work item's lock.
func (s *service) offerLocked(ctx context.Context, item *workitem.WorkItem, candidateID uuid.UUID) error {
	now := s.clock.Now()
	item.Assignments = append(item.Assignments, workitem.Assignment{
		CandidateID:   candidateID,
		OfferedAt:     now,
		ResponseState: enums.AssignmentResponseOffered,
	})
	item.CurrentCandidateID = &candidateID
	item.UpdatedAt = now

	if err := s.store.Put(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist offer")
	}

	s.armDeadline(item, candidateID)
	s.metrics.IncOffers()
	s.logg.Info(s.logg.WithCandidateID(ctx, candidateID.String()), "offer extended")
	return nil
}

// reassignLocked moves the item to the next untried candidate, or exhausts it
// when the attempt cap or the pool runs out. The now-resolved previous
// assignment must already be recorded. Caller holds the work item's lock.
func (s *service) reassignLocked(ctx context.Context, item *workitem.WorkItem, reason enums.ReassignmentReason) error {
	previousID := item.Assignments[len(item.Assignments)-1].CandidateID

	if item.AttemptsExhausted() {
		return s.exhaustLocked(ctx, item)
	}

	nextID, err := s.provider.Next(ctx, item.ID, item.Tried())
	if errors.Is(err, ErrNoCandidates) {
		return s.exhaustLocked(ctx, item)
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select candidate")
	}

	now := s.clock.Now()
	item.Assignments = append(item.Assignments, workitem.Assignment{
		CandidateID:   nextID,
		OfferedAt:     now,
		ResponseState: enums.AssignmentResponseOffered,
	})
	item.Reassignments = append(item.Reassignments, workitem.ReassignmentEvent{
		PreviousCandidateID: previousID,
		NewCandidateID:      nextID,
		Reason:              reason,
		OccurredAt:          now,
	})
	item.CurrentCandidateID = &nextID
	item.UpdatedAt = now

	if err := s.store.Put(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist reassignment")
	}

	s.armDeadline(item, nextID)
	s.metrics.IncOffers()
	s.metrics.IncReassignments(string(reason))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"previous_candidate_id": previousID.String(),
		"new_candidate_id":      nextID.String(),
		"reason":                string(reason),
	}), "work item reassigned")

	s.sink.Reassigned(ctx, ReassignedEvent{
		Item:               *item,
		ReassignmentCount:  item.ReassignmentCount(),
		PreviousCandidates: len(item.Assignments) - 1,
	})
	return nil
}

// exhaustLocked parks the item in the timed-out terminal state. Caller holds
// the work item's lock.
func (s *service) exhaustLocked(ctx context.Context, item *workitem.WorkItem) error {
	now := s.clock.Now()
	item.Status = enums.WorkItemStatusTimedOut
	item.CurrentCandidateID = nil
	item.TimedOutAt = &now
	item.UpdatedAt = now

	if err := s.store.Put(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist exhaustion")
	}

	s.metrics.IncExhaustions()
	s.logg.Warn(ctx, "work item exhausted all candidates")
	s.sink.Exhausted(ctx, ExhaustedEvent{Item: *item})
	return nil
}

func (s *service) armDeadline(item *workitem.WorkItem, candidateID uuid.UUID) {
	id := item.ID
	s.timers.arm(id, item.OfferTimeout, func() {
		s.handleDeadline(id, candidateID)
	})
}

// handleDeadline runs when an offer's timer fires. A response that slipped in
// before the lock was acquired leaves the assignment resolved, in which case
// this callback is the race loser and does nothing.
func (s *service) handleDeadline(id, candidateID uuid.UUID) {
	unlock := s.locks.lock(id)
	defer unlock()

	ctx := s.logg.WithFields(context.Background(), map[string]any{
		"work_item_id": id.String(),
		"candidate_id": candidateID.String(),
	})

	item, err := s.load(ctx, id)
	if err != nil {
		s.logg.Error(ctx, "load work item on deadline", err)
		return
	}

	open := item.OpenAssignment()
	if open == nil || open.CandidateID != candidateID {
		return
	}

	now := s.clock.Now()
	open.ResponseState = enums.AssignmentResponseTimedOut
	open.RespondedAt = &now
	item.UpdatedAt = now
	s.logg.Info(ctx, "offer timed out")

	if err := s.reassignLocked(ctx, item, enums.ReassignmentReasonTimeout); err != nil {
		s.logg.Error(ctx, "reassign after timeout", err)
	}
}
