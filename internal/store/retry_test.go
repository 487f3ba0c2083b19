package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/calloway-labs/dispatch-backend/internal/workitem"
)

type flakyStore struct {
	inner    Store
	failures int
	calls    int
	err      error
}

func (f *flakyStore) do(op func() error) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return op()
}

func (f *flakyStore) Put(ctx context.Context, item *workitem.WorkItem) error {
	return f.do(func() error { return f.inner.Put(ctx, item) })
}

func (f *flakyStore) Get(ctx context.Context, id uuid.UUID) (*workitem.WorkItem, error) {
	var item *workitem.WorkItem
	err := f.do(func() error {
		var innerErr error
		item, innerErr = f.inner.Get(ctx, id)
		return innerErr
	})
	return item, err
}

func (f *flakyStore) Delete(ctx context.Context, id uuid.UUID) error {
	return f.do(func() error { return f.inner.Delete(ctx, id) })
}

func TestWithRetryRecoversFromTransientFailures(t *testing.T) {
	flaky := &flakyStore{inner: NewMemory(), failures: 2, err: errors.New("connection reset")}
	wrapped := NewWithRetry(flaky, 3)

	item := workitem.New(uuid.New(), workitem.Payload{}, time.Second, 3, time.Now().UTC())
	if err := wrapped.Put(context.Background(), item); err != nil {
		t.Fatalf("expected retries to absorb transient failures, got %v", err)
	}
	if flaky.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", flaky.calls)
	}
}

func TestWithRetryGivesUpAfterBudget(t *testing.T) {
	cause := errors.New("connection reset")
	flaky := &flakyStore{inner: NewMemory(), failures: 10, err: cause}
	wrapped := NewWithRetry(flaky, 2)

	item := workitem.New(uuid.New(), workitem.Payload{}, time.Second, 3, time.Now().UTC())
	err := wrapped.Put(context.Background(), item)
	if !errors.Is(err, cause) {
		t.Fatalf("expected underlying cause after budget, got %v", err)
	}
	if flaky.calls != 3 {
		t.Fatalf("expected initial attempt plus 2 retries, got %d", flaky.calls)
	}
}

func TestWithRetryDoesNotRetryNotFound(t *testing.T) {
	flaky := &flakyStore{inner: NewMemory()}
	wrapped := NewWithRetry(flaky, 5)

	_, err := wrapped.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if flaky.calls != 1 {
		t.Fatalf("NotFound must not be retried, saw %d attempts", flaky.calls)
	}
}
