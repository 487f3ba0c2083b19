package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/calloway-labs/dispatch-backend/pkg/db/models"
	"github.com/calloway-labs/dispatch-backend/pkg/enums"
	pkgerrors "github.com/calloway-labs/dispatch-backend/pkg/errors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service defines read operations over delivered notifications.
type Service interface {
	ListByWorkItem(ctx context.Context, workItemID uuid.UUID, limit int) ([]NotificationDTO, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]NotificationDTO, error)
}

type service struct {
	repo Repository
}

// NotificationDTO is the API-facing shape of a delivered notification.
type NotificationDTO struct {
	ID         uuid.UUID              `json:"id"`
	WorkItemID uuid.UUID              `json:"work_item_id"`
	OwnerID    uuid.UUID              `json:"owner_id"`
	Kind       enums.NotificationKind `json:"kind"`
	Message    string                 `json:"message"`
	SentAt     time.Time              `json:"sent_at"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListByWorkItem(ctx context.Context, workItemID uuid.UUID, limit int) ([]NotificationDTO, error) {
	if workItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "work item id required")
	}
	rows, err := s.repo.ListByWorkItem(ctx, workItemID, normalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	return toDTOs(rows), nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]NotificationDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	rows, err := s.repo.ListByOwner(ctx, ownerID, normalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	return toDTOs(rows), nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func toDTOs(rows []models.Notification) []NotificationDTO {
	out := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NotificationDTO{
			ID:         row.ID,
			WorkItemID: row.WorkItemID,
			OwnerID:    row.OwnerID,
			Kind:       row.Kind,
			Message:    row.Message,
			SentAt:     row.SentAt,
		})
	}
	return out
}
