package assignment

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNoCandidates signals that no untried candidate remains for a work item.
// It is a normal terminal outcome, not an infrastructure failure.
var ErrNoCandidates = errors.New("no candidates available")

// CandidateProvider yields the next candidate not yet tried for a work item.
// The engine treats it as opaque; it must not mutate work-item state.
type CandidateProvider interface {
	Next(ctx context.Context, workItemID uuid.UUID, tried []uuid.UUID) (uuid.UUID, error)
}

// PoolProvider serves candidates from a fixed ordered pool, skipping ids
// already tried. Deterministic, which is what tests and the default wiring
// need.
type PoolProvider struct {
	mu   sync.RWMutex
	pool []uuid.UUID
}

// NewPoolProvider builds a provider over the given ordered candidate pool.
func NewPoolProvider(pool []uuid.UUID) *PoolProvider {
	copied := make([]uuid.UUID, len(pool))
	copy(copied, pool)
	return &PoolProvider{pool: copied}
}

// SetPool replaces the candidate pool.
func (p *PoolProvider) SetPool(pool []uuid.UUID) {
	copied := make([]uuid.UUID, len(pool))
	copy(copied, pool)
	p.mu.Lock()
	p.pool = copied
	p.mu.Unlock()
}

func (p *PoolProvider) Next(ctx context.Context, workItemID uuid.UUID, tried []uuid.UUID) (uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{}, len(tried))
	for _, id := range tried {
		seen[id] = struct{}{}
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, id := range p.pool {
		if _, ok := seen[id]; !ok {
			return id, nil
		}
	}
	return uuid.Nil, ErrNoCandidates
}
