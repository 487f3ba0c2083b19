// Package notify turns engine lifecycle events into customer-facing
// notifications. It sits behind a buffered queue so rendering and delivery
// never slow down assignment transitions.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/calloway-labs/dispatch-backend/internal/workitem"
	"github.com/calloway-labs/dispatch-backend/pkg/enums"
)

// Notification is the message handed to the deliverer. EventID deduplicates
// downstream consumers.
type Notification struct {
	EventID    uuid.UUID              `json:"event_id"`
	WorkItemID uuid.UUID              `json:"work_item_id"`
	OwnerID    uuid.UUID              `json:"owner_id"`
	Kind       enums.NotificationKind `json:"kind"`
	Message    string                 `json:"message"`
	SentAt     time.Time              `json:"sent_at"`
}

// Renderer produces the human-readable message body for a notification.
type Renderer interface {
	Render(ctx context.Context, item workitem.WorkItem, kind enums.NotificationKind) (string, error)
}

// Deliverer performs the actual delivery of a rendered notification.
type Deliverer interface {
	Deliver(ctx context.Context, notification Notification) error
}

// Counter tracks how many notifications a work item has triggered, enforcing
// the per-item cap.
type Counter interface {
	Incr(ctx context.Context, workItemID uuid.UUID) (int64, error)
}
