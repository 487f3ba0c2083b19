package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/calloway-labs/dispatch-backend/internal/assignment"
	"github.com/calloway-labs/dispatch-backend/internal/workitem"
	"github.com/calloway-labs/dispatch-backend/pkg/config"
	"github.com/calloway-labs/dispatch-backend/pkg/enums"
	"github.com/calloway-labs/dispatch-backend/pkg/logger"
)

type stubRenderer struct {
	message   string
	err       error
	honorsCtx bool
}

func (r stubRenderer) Render(ctx context.Context, _ workitem.WorkItem, _ enums.NotificationKind) (string, error) {
	if r.honorsCtx {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return r.message, r.err
}

type captureDeliverer struct {
	mu    sync.Mutex
	err   error
	items []Notification
}

func (d *captureDeliverer) Deliver(_ context.Context, notification Notification) error {
	if d.err != nil {
		return d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = append(d.items, notification)
	return nil
}

func (d *captureDeliverer) delivered() []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Notification, len(d.items))
	copy(out, d.items)
	return out
}

func testItem() workitem.WorkItem {
	return workitem.WorkItem{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Payload: workitem.Payload{DropoffAddress: "12 Harbor Way"},
	}
}

func newTestDispatcher(t *testing.T, cfg config.NotifyConfig, renderer Renderer, deliverer Deliverer) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(cfg, renderer, deliverer, NewMemoryCounter(), logger.New(logger.Options{ServiceName: "notify-test"}), nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return d
}

func waitForDeliveries(t *testing.T, d *captureDeliverer, want int) []Notification {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := d.delivered(); len(got) >= want {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d deliveries, got %d", want, len(d.delivered()))
	return nil
}

func TestDispatcherSuppressesEarlyReassignments(t *testing.T) {
	deliverer := &captureDeliverer{}
	d := newTestDispatcher(t, config.NotifyConfig{MinReassignments: 2}, stubRenderer{message: "update"}, deliverer)
	d.Start()
	defer d.Close()

	item := testItem()
	d.Reassigned(context.Background(), assignment.ReassignedEvent{Item: item, ReassignmentCount: 1})
	d.Reassigned(context.Background(), assignment.ReassignedEvent{Item: item, ReassignmentCount: 2})

	got := waitForDeliveries(t, deliverer, 1)
	time.Sleep(30 * time.Millisecond)
	if final := deliverer.delivered(); len(final) != 1 {
		t.Fatalf("expected only the second reassignment to notify, got %d", len(final))
	}
	if got[0].Kind != enums.NotificationKindReassigned {
		t.Fatalf("expected reassigned kind, got %s", got[0].Kind)
	}
	if got[0].Message != "update" {
		t.Fatalf("unexpected message %q", got[0].Message)
	}
}

func TestDispatcherExhaustedAlwaysNotifies(t *testing.T) {
	deliverer := &captureDeliverer{}
	d := newTestDispatcher(t, config.NotifyConfig{MinReassignments: 5}, stubRenderer{message: "sorry"}, deliverer)
	d.Start()
	defer d.Close()

	d.Exhausted(context.Background(), assignment.ExhaustedEvent{Item: testItem()})

	got := waitForDeliveries(t, deliverer, 1)
	if got[0].Kind != enums.NotificationKindExhausted {
		t.Fatalf("expected exhausted kind, got %s", got[0].Kind)
	}
}

func TestDispatcherEnforcesPerItemCap(t *testing.T) {
	deliverer := &captureDeliverer{}
	d := newTestDispatcher(t, config.NotifyConfig{PerItemCap: 2}, stubRenderer{message: "update"}, deliverer)
	d.Start()
	defer d.Close()

	item := testItem()
	for i := 0; i < 4; i++ {
		d.Exhausted(context.Background(), assignment.ExhaustedEvent{Item: item})
	}

	waitForDeliveries(t, deliverer, 2)
	time.Sleep(30 * time.Millisecond)
	if got := deliverer.delivered(); len(got) != 2 {
		t.Fatalf("expected cap of 2 deliveries, got %d", len(got))
	}
}

func TestDispatcherCapIsPerWorkItem(t *testing.T) {
	deliverer := &captureDeliverer{}
	d := newTestDispatcher(t, config.NotifyConfig{PerItemCap: 1}, stubRenderer{message: "update"}, deliverer)
	d.Start()
	defer d.Close()

	d.Exhausted(context.Background(), assignment.ExhaustedEvent{Item: testItem()})
	d.Exhausted(context.Background(), assignment.ExhaustedEvent{Item: testItem()})

	waitForDeliveries(t, deliverer, 2)
}

func TestDispatcherFallsBackWhenRendererFails(t *testing.T) {
	deliverer := &captureDeliverer{}
	d := newTestDispatcher(t, config.NotifyConfig{}, stubRenderer{err: errors.New("render boom")}, deliverer)
	d.Start()
	defer d.Close()

	item := testItem()
	d.Exhausted(context.Background(), assignment.ExhaustedEvent{Item: item})

	got := waitForDeliveries(t, deliverer, 1)
	if got[0].Message != fallbackMessage(item, enums.NotificationKindExhausted) {
		t.Fatalf("expected fallback message, got %q", got[0].Message)
	}
}

func TestDispatcherRendererTimeoutFallsBack(t *testing.T) {
	deliverer := &captureDeliverer{}
	d := newTestDispatcher(t, config.NotifyConfig{RenderTimeout: 20 * time.Millisecond}, stubRenderer{honorsCtx: true}, deliverer)
	d.Start()
	defer d.Close()

	item := testItem()
	d.Exhausted(context.Background(), assignment.ExhaustedEvent{Item: item})

	got := waitForDeliveries(t, deliverer, 1)
	if got[0].Message != fallbackMessage(item, enums.NotificationKindExhausted) {
		t.Fatalf("expected fallback message, got %q", got[0].Message)
	}
}

func TestDispatcherFullQueueDropsInsteadOfBlocking(t *testing.T) {
	deliverer := &captureDeliverer{}
	d := newTestDispatcher(t, config.NotifyConfig{QueueSize: 1}, stubRenderer{message: "update"}, deliverer)

	// Workers not started yet: the queue fills after one event and the rest
	// must be dropped without blocking the caller.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			d.Exhausted(context.Background(), assignment.ExhaustedEvent{Item: testItem()})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}

	d.Start()
	waitForDeliveries(t, deliverer, 1)
	d.Close()
	if got := deliverer.delivered(); len(got) != 1 {
		t.Fatalf("expected 1 delivery from the buffered slot, got %d", len(got))
	}
}

func TestDispatcherEnqueueAfterCloseIsNoOp(t *testing.T) {
	deliverer := &captureDeliverer{}
	d := newTestDispatcher(t, config.NotifyConfig{}, stubRenderer{message: "update"}, deliverer)
	d.Start()
	d.Close()

	d.Exhausted(context.Background(), assignment.ExhaustedEvent{Item: testItem()})
	if got := deliverer.delivered(); len(got) != 0 {
		t.Fatalf("expected no deliveries after close, got %d", len(got))
	}
}

func TestDispatcherDeliveryFailureIsDropped(t *testing.T) {
	deliverer := &captureDeliverer{err: errors.New("publish boom")}
	d := newTestDispatcher(t, config.NotifyConfig{}, stubRenderer{message: "update"}, deliverer)
	d.Start()

	d.Exhausted(context.Background(), assignment.ExhaustedEvent{Item: testItem()})
	d.Close()

	if got := deliverer.delivered(); len(got) != 0 {
		t.Fatalf("expected no successful deliveries, got %d", len(got))
	}
}
