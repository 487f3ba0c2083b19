package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calloway-labs/dispatch-backend/pkg/db/models"
)

// Repository exposes persistence helpers for delivered notifications.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByWorkItem(ctx context.Context, workItemID uuid.UUID, limit int) ([]models.Notification, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Notification, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repositoryImpl) ListByWorkItem(ctx context.Context, workItemID uuid.UUID, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("work_item_id = ?", workItemID).
		Order("sent_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("sent_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
