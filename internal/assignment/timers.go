package assignment

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// timerArena owns at most one pending deadline timer per work item. Arming a
// new timer for an id silently replaces any live one, so a reassignment inside
// the critical section never leaves a stale deadline behind.
type timerArena struct {
	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
	closed bool
}

func newTimerArena() *timerArena {
	return &timerArena{timers: make(map[uuid.UUID]*time.Timer)}
}

// arm schedules fire after d for the given work item, replacing any existing
// timer. The fire callback is responsible for re-checking state under the
// work item's lock; a callback that lost the race to a live response must be
// a no-op.
func (a *timerArena) arm(id uuid.UUID, d time.Duration, fire func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if prev, ok := a.timers[id]; ok {
		prev.Stop()
	}
	a.timers[id] = time.AfterFunc(d, fire)
}

// disarm stops any pending timer for the work item. A timer whose callback has
// already begun running is not interrupted; the callback's state check handles
// that case.
func (a *timerArena) disarm(id uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.timers[id]; ok {
		t.Stop()
		delete(a.timers, id)
	}
}

// shutdown stops every pending timer and rejects further arms.
func (a *timerArena) shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	for id, t := range a.timers {
		t.Stop()
		delete(a.timers, id)
	}
}
