package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/calloway-labs/dispatch-backend/internal/workitem"
)

const defaultRetryBase = 50 * time.Millisecond

// WithRetry decorates a Store with bounded exponential backoff for
// infrastructure failures. ErrNotFound is a business outcome and is returned
// immediately.
type WithRetry struct {
	inner       Store
	maxAttempts uint64
	base        time.Duration
}

// NewWithRetry wraps inner so transient store failures are retried up to
// maxRetries additional attempts.
func NewWithRetry(inner Store, maxRetries int) *WithRetry {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &WithRetry{
		inner:       inner,
		maxAttempts: uint64(maxRetries),
		base:        defaultRetryBase,
	}
}

func (w *WithRetry) backoff() retry.Backoff {
	return retry.WithMaxRetries(w.maxAttempts, retry.NewExponential(w.base))
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return retry.RetryableError(err)
}

func (w *WithRetry) Put(ctx context.Context, item *workitem.WorkItem) error {
	return retry.Do(ctx, w.backoff(), func(ctx context.Context) error {
		return classify(w.inner.Put(ctx, item))
	})
}

func (w *WithRetry) Get(ctx context.Context, id uuid.UUID) (*workitem.WorkItem, error) {
	var item *workitem.WorkItem
	err := retry.Do(ctx, w.backoff(), func(ctx context.Context) error {
		var innerErr error
		item, innerErr = w.inner.Get(ctx, id)
		return classify(innerErr)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (w *WithRetry) Delete(ctx context.Context, id uuid.UUID) error {
	return retry.Do(ctx, w.backoff(), func(ctx context.Context) error {
		return classify(w.inner.Delete(ctx, id))
	})
}
