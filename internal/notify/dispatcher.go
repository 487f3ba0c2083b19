package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calloway-labs/dispatch-backend/internal/assignment"
	"github.com/calloway-labs/dispatch-backend/internal/workitem"
	"github.com/calloway-labs/dispatch-backend/pkg/config"
	"github.com/calloway-labs/dispatch-backend/pkg/enums"
	"github.com/calloway-labs/dispatch-backend/pkg/logger"
	"github.com/calloway-labs/dispatch-backend/pkg/metrics"
)

// Drop causes recorded on the dropped-notifications counter.
const (
	dropSuppressed   = "suppressed"
	dropQueueFull    = "queue_full"
	dropCapExceeded  = "cap_exceeded"
	dropShutdown     = "shutdown"
	dropDeliverError = "delivery_failed"
)

type job struct {
	kind enums.NotificationKind
	item workitem.WorkItem
}

// Dispatcher consumes engine events and fans them out to the deliverer. It
// satisfies the engine's event sink contract: enqueueing never blocks.
type Dispatcher struct {
	cfg       config.NotifyConfig
	renderer  Renderer
	deliverer Deliverer
	counter   Counter
	logg      *logger.Logger
	metrics   *metrics.NotifyMetrics

	queue chan job
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var _ assignment.EventSink = (*Dispatcher)(nil)

// NewDispatcher wires the notification pipeline. Metrics are optional.
func NewDispatcher(cfg config.NotifyConfig, renderer Renderer, deliverer Deliverer, counter Counter, logg *logger.Logger, m *metrics.NotifyMetrics) (*Dispatcher, error) {
	if renderer == nil {
		return nil, fmt.Errorf("renderer required")
	}
	if deliverer == nil {
		return nil, fmt.Errorf("deliverer required")
	}
	if counter == nil {
		return nil, fmt.Errorf("counter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 5 * time.Second
	}
	if cfg.PerItemCap <= 0 {
		cfg.PerItemCap = 3
	}
	return &Dispatcher{
		cfg:       cfg,
		renderer:  renderer,
		deliverer: deliverer,
		counter:   counter,
		logg:      logg,
		metrics:   m,
		queue:     make(chan job, cfg.QueueSize),
	}, nil
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Close stops accepting events, drains the queue, and waits for workers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

// Reassigned enqueues a reassignment notification unless it is below the
// suppression threshold. The first reassignment is routine; customers only
// hear about repeated ones.
func (d *Dispatcher) Reassigned(ctx context.Context, ev assignment.ReassignedEvent) {
	if ev.ReassignmentCount < d.cfg.MinReassignments {
		d.metrics.IncDropped(dropSuppressed)
		return
	}
	d.enqueue(ctx, job{kind: enums.NotificationKindReassigned, item: ev.Item})
}

// Exhausted always notifies; running out of drivers is never routine.
func (d *Dispatcher) Exhausted(ctx context.Context, ev assignment.ExhaustedEvent) {
	d.enqueue(ctx, job{kind: enums.NotificationKindExhausted, item: ev.Item})
}

func (d *Dispatcher) enqueue(ctx context.Context, j job) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.metrics.IncDropped(dropShutdown)
		return
	}
	select {
	case d.queue <- j:
		d.mu.Unlock()
	default:
		d.mu.Unlock()
		d.metrics.IncDropped(dropQueueFull)
		d.logg.Warn(d.logg.WithWorkItemID(ctx, j.item.ID.String()), "notification queue full, dropping")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		d.process(j)
	}
}

func (d *Dispatcher) process(j job) {
	ctx := d.logg.WithFields(context.Background(), map[string]any{
		"work_item_id": j.item.ID.String(),
		"kind":         string(j.kind),
	})

	count, err := d.counter.Incr(ctx, j.item.ID)
	if err != nil {
		// A broken counter should not silence customers; deliver and let the
		// TTL reset the window.
		d.logg.Error(ctx, "notification counter failed", err)
	} else if count > int64(d.cfg.PerItemCap) {
		d.metrics.IncDropped(dropCapExceeded)
		d.logg.Warn(ctx, "notification cap reached, dropping")
		return
	}

	notification := Notification{
		EventID:    uuid.New(),
		WorkItemID: j.item.ID,
		OwnerID:    j.item.OwnerID,
		Kind:       j.kind,
		Message:    d.render(ctx, j),
		SentAt:     time.Now().UTC(),
	}

	if err := d.deliverer.Deliver(ctx, notification); err != nil {
		d.metrics.IncDropped(dropDeliverError)
		d.logg.Error(ctx, "notification delivery failed", err)
		return
	}

	d.metrics.IncSent(string(j.kind))
	d.logg.Info(ctx, "notification sent")
}

func (d *Dispatcher) render(ctx context.Context, j job) string {
	rctx, cancel := context.WithTimeout(ctx, d.cfg.RenderTimeout)
	defer cancel()

	message, err := d.renderer.Render(rctx, j.item, j.kind)
	if err != nil {
		d.logg.Warn(ctx, "renderer failed, using fallback template")
		return fallbackMessage(j.item, j.kind)
	}
	return message
}
