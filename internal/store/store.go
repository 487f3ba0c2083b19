// Package store persists work-item snapshots keyed by id. The engine always
// reads a full snapshot, mutates it in memory, and writes it back, so the
// contract is plain get/put/delete with no partial updates.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/calloway-labs/dispatch-backend/internal/workitem"
)

// ErrNotFound is returned when no snapshot exists for the given id. It is a
// business outcome, never retried.
var ErrNotFound = errors.New("work item not found")

// Store is the durable keyed storage of work-item snapshots.
type Store interface {
	Put(ctx context.Context, item *workitem.WorkItem) error
	Get(ctx context.Context, id uuid.UUID) (*workitem.WorkItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
