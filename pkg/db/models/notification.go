package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/calloway-labs/dispatch-backend/pkg/enums"
)

// Notification records a customer-facing message the dispatcher delivered
// for a work item. EventID deduplicates redelivered events.
type Notification struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	EventID    uuid.UUID              `gorm:"column:event_id;type:uuid;not null;uniqueIndex:uq_notifications_event_id"`
	WorkItemID uuid.UUID              `gorm:"column:work_item_id;type:uuid;not null;index"`
	OwnerID    uuid.UUID              `gorm:"column:owner_id;type:uuid;not null;index"`
	Kind       enums.NotificationKind `gorm:"column:kind;type:text;not null"`
	Message    string                 `gorm:"column:message;type:text;not null"`
	SentAt     time.Time              `gorm:"column:sent_at;not null"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the notifications table name stable across drivers.
func (Notification) TableName() string {
	return "notifications"
}
