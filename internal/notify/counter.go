package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calloway-labs/dispatch-backend/pkg/redis"
)

// RedisCounter counts notifications per work item in redis so the cap holds
// across api replicas. The TTL keeps stale counters from accumulating.
type RedisCounter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCounter builds a redis-backed notification counter.
func NewRedisCounter(client *redis.Client, ttl time.Duration) *RedisCounter {
	return &RedisCounter{client: client, ttl: ttl}
}

func (c *RedisCounter) Incr(ctx context.Context, workItemID uuid.UUID) (int64, error) {
	key := c.client.NotificationCountKey(workItemID.String())
	return c.client.IncrWithTTL(ctx, key, c.ttl)
}

// MemoryCounter is the in-process counter used in tests and single-instance
// dev setups.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[uuid.UUID]int64)}
}

func (c *MemoryCounter) Incr(_ context.Context, workItemID uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[workItemID]++
	return c.counts[workItemID], nil
}
