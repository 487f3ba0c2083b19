package notify

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/calloway-labs/dispatch-backend/pkg/logger"
)

// Attribute keys on published notification messages.
const (
	AttrEventType  = "event_type"
	AttrWorkItemID = "work_item_id"

	EventNotificationSent = "dispatch.notification.sent"
)

// PubSubDeliverer publishes rendered notifications to the notification topic,
// where the worker persists them and downstream channels fan out.
type PubSubDeliverer struct {
	publisher *pubsub.Publisher
}

// NewPubSubDeliverer wraps the given publisher handle.
func NewPubSubDeliverer(publisher *pubsub.Publisher) (*PubSubDeliverer, error) {
	if publisher == nil {
		return nil, fmt.Errorf("notification publisher required")
	}
	return &PubSubDeliverer{publisher: publisher}, nil
}

func (d *PubSubDeliverer) Deliver(ctx context.Context, notification Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	result := d.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			AttrEventType:  EventNotificationSent,
			AttrWorkItemID: notification.WorkItemID.String(),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// LogDeliverer writes notifications to the log. Dev-only stand-in for the
// Pub/Sub path.
type LogDeliverer struct {
	logg *logger.Logger
}

func NewLogDeliverer(logg *logger.Logger) *LogDeliverer {
	return &LogDeliverer{logg: logg}
}

func (d *LogDeliverer) Deliver(ctx context.Context, notification Notification) error {
	ctx = d.logg.WithFields(ctx, map[string]any{
		"work_item_id": notification.WorkItemID.String(),
		"kind":         string(notification.Kind),
		"message":      notification.Message,
	})
	d.logg.Info(ctx, "notification delivered")
	return nil
}
