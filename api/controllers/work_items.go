package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calloway-labs/dispatch-backend/api/responses"
	"github.com/calloway-labs/dispatch-backend/api/validators"
	"github.com/calloway-labs/dispatch-backend/internal/assignment"
	"github.com/calloway-labs/dispatch-backend/internal/workitem"
	"github.com/calloway-labs/dispatch-backend/pkg/enums"
	pkgerrors "github.com/calloway-labs/dispatch-backend/pkg/errors"
	"github.com/calloway-labs/dispatch-backend/pkg/logger"
)

type createWorkItemRequest struct {
	OwnerID             string  `json:"owner_id" validate:"required,uuid4"`
	PickupAddress       string  `json:"pickup_address" validate:"required,max=500"`
	DropoffAddress      string  `json:"dropoff_address" validate:"required,max=500"`
	OrderTotal          string  `json:"order_total" validate:"required"`
	Notes               *string `json:"notes" validate:"omitempty,max=2000"`
	OfferTimeoutSeconds int     `json:"offer_timeout_seconds" validate:"omitempty,min=1,max=3600"`
	MaxAttempts         int     `json:"max_attempts" validate:"omitempty,min=1,max=50"`
}

type offerWorkItemRequest struct {
	CandidateID string `json:"candidate_id" validate:"omitempty,uuid4"`
}

type respondWorkItemRequest struct {
	CandidateID string `json:"candidate_id" validate:"required,uuid4"`
	Response    string `json:"response" validate:"required,oneof=accepted rejected"`
}

// CreateWorkItem opens a new work item in the pending state.
func CreateWorkItem(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createWorkItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ownerID, err := uuid.Parse(req.OwnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner id"))
			return
		}
		total, err := decimal.NewFromString(req.OrderTotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order total"))
			return
		}

		input := assignment.CreateInput{
			OwnerID: ownerID,
			Payload: workitem.Payload{
				PickupAddress:  validators.SanitizeString(req.PickupAddress, 500),
				DropoffAddress: validators.SanitizeString(req.DropoffAddress, 500),
				OrderTotal:     total,
			},
			OfferTimeout: time.Duration(req.OfferTimeoutSeconds) * time.Second,
			MaxAttempts:  req.MaxAttempts,
		}
		if req.Notes != nil {
			input.Payload.Notes = validators.SanitizeString(*req.Notes, 2000)
		}

		item, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// OfferWorkItem extends the work item's next offer. The body is optional;
// without an explicit candidate the engine asks the candidate provider.
func OfferWorkItem(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "workItemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		candidateID := uuid.Nil
		if r.ContentLength != 0 {
			var req offerWorkItemRequest
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if req.CandidateID != "" {
				candidateID, err = uuid.Parse(req.CandidateID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid candidate id"))
					return
				}
			}
		}

		item, err := svc.Offer(r.Context(), id, candidateID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// RespondWorkItem records a candidate's accept or reject decision.
func RespondWorkItem(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "workItemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req respondWorkItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		candidateID, err := uuid.Parse(req.CandidateID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid candidate id"))
			return
		}

		item, err := svc.Respond(r.Context(), id, candidateID, enums.AssignmentResponse(req.Response))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// GetWorkItemStatus returns the full snapshot including the audit trail.
func GetWorkItemStatus(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "workItemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// CancelWorkItem withdraws a work item from assignment.
func CancelWorkItem(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "workItemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Cancel(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
