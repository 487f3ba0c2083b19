package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkItemSnapshot persists the full serialized work item keyed by id. The
// store overwrites the document wholesale; no partial-field updates.
type WorkItemSnapshot struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index"`
	Status    string    `gorm:"column:status;type:text;not null;index"`
	Document  []byte    `gorm:"column:document;type:jsonb;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName keeps the snapshot table name stable across drivers.
func (WorkItemSnapshot) TableName() string {
	return "work_item_snapshots"
}
