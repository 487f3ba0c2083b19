package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/calloway-labs/dispatch-backend/internal/workitem"
	"github.com/calloway-labs/dispatch-backend/pkg/enums"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	item := workitem.New(uuid.New(), workitem.Payload{PickupAddress: "12 Vine St"}, 15*time.Second, 5, time.Now().UTC())

	if err := m.Put(ctx, item); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := m.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != item.ID || got.Payload.PickupAddress != "12 Vine St" {
		t.Fatalf("snapshot mismatch: %+v", got)
	}
}

func TestMemoryGetUnknownID(t *testing.T) {
	m := NewMemory()
	if _, err := m.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	item := workitem.New(uuid.New(), workitem.Payload{}, time.Second, 3, time.Now().UTC())
	if err := m.Put(ctx, item); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := m.Delete(ctx, item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.Delete(ctx, item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemorySnapshotsAreIsolated(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	item := workitem.New(uuid.New(), workitem.Payload{}, time.Second, 3, time.Now().UTC())
	if err := m.Put(ctx, item); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Mutating a fetched snapshot must not leak back into the store.
	first, err := m.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	first.Status = enums.WorkItemStatusAccepted

	second, err := m.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if second.Status != enums.WorkItemStatusPending {
		t.Fatal("stored snapshot was mutated through a returned pointer")
	}
}
