package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/calloway-labs/dispatch-backend/internal/workitem"
	"github.com/calloway-labs/dispatch-backend/pkg/db/models"
	"github.com/calloway-labs/dispatch-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.WorkItemSnapshot{}))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestGormPutGetDelete(t *testing.T) {
	g := NewGorm(newTestDB(t))
	ctx := context.Background()

	item := workitem.New(uuid.New(), workitem.Payload{
		PickupAddress:  "12 Vine St",
		DropoffAddress: "88 Oak Ave",
		OrderTotal:     decimal.RequireFromString("19.99"),
	}, 15*time.Second, 5, time.Now().UTC())

	require.NoError(t, g.Put(ctx, item))

	got, err := g.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, enums.WorkItemStatusPending, got.Status)
	assert.True(t, got.Payload.OrderTotal.Equal(item.Payload.OrderTotal))

	require.NoError(t, g.Delete(ctx, item.ID))
	_, err = g.Get(ctx, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormPutOverwritesByID(t *testing.T) {
	g := NewGorm(newTestDB(t))
	ctx := context.Background()

	item := workitem.New(uuid.New(), workitem.Payload{}, 15*time.Second, 5, time.Now().UTC())
	require.NoError(t, g.Put(ctx, item))

	candidate := uuid.New()
	item.Status = enums.WorkItemStatusAccepted
	item.CurrentCandidateID = &candidate
	item.Assignments = append(item.Assignments, workitem.Assignment{
		CandidateID:   candidate,
		OfferedAt:     time.Now().UTC(),
		ResponseState: enums.AssignmentResponseAccepted,
	})
	require.NoError(t, g.Put(ctx, item))

	got, err := g.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.WorkItemStatusAccepted, got.Status)
	require.Len(t, got.Assignments, 1)
	assert.Equal(t, candidate, got.Assignments[0].CandidateID)
}

func TestGormDeleteUnknownID(t *testing.T) {
	g := NewGorm(newTestDB(t))
	assert.ErrorIs(t, g.Delete(context.Background(), uuid.New()), ErrNotFound)
}
