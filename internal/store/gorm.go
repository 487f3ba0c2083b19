package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/calloway-labs/dispatch-backend/internal/workitem"
	"github.com/calloway-labs/dispatch-backend/pkg/db/models"
)

// Gorm persists snapshots in the work_item_snapshots table. The document
// column holds the serialized work item; owner and status are denormalized
// for operational queries only and never drive business state.
type Gorm struct {
	db *gorm.DB
}

// NewGorm returns a store bound to the provided database handle.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) Put(ctx context.Context, item *workitem.WorkItem) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	row := models.WorkItemSnapshot{
		ID:        item.ID,
		OwnerID:   item.OwnerID,
		Status:    string(item.Status),
		Document:  raw,
		UpdatedAt: time.Now().UTC(),
	}
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"owner_id", "status", "document", "updated_at"}),
		}).
		Create(&row).Error
}

func (g *Gorm) Get(ctx context.Context, id uuid.UUID) (*workitem.WorkItem, error) {
	var row models.WorkItemSnapshot
	err := g.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var item workitem.WorkItem
	if err := json.Unmarshal(row.Document, &item); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", id, err)
	}
	return &item, nil
}

func (g *Gorm) Delete(ctx context.Context, id uuid.UUID) error {
	result := g.db.WithContext(ctx).Delete(&models.WorkItemSnapshot{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
