package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/calloway-labs/dispatch-backend/internal/notify"
	"github.com/calloway-labs/dispatch-backend/pkg/db"
	"github.com/calloway-labs/dispatch-backend/pkg/db/models"
	"github.com/calloway-labs/dispatch-backend/pkg/logger"
)

// Consumer watches the notification subscription and records every delivered
// notification. Redelivered messages are collapsed by the event id unique
// index, so processing stays idempotent without a separate dedup store.
type Consumer struct {
	repo         Repository
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer builds a delivered-notification consumer.
func NewConsumer(repo Repository, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes[notify.AttrEventType]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != notify.EventNotificationSent {
		c.logg.Info(logCtx, "skipping unrelated event")
		return processResult{ack: true}
	}

	var payload notify.Notification
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to decode notification", err)
		return processResult{ack: true}
	}
	if payload.EventID == uuid.Nil || payload.WorkItemID == uuid.Nil {
		c.logg.Error(logCtx, "notification missing identifiers", nil)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id":     payload.EventID.String(),
		"work_item_id": payload.WorkItemID.String(),
	})

	record := &models.Notification{
		ID:         uuid.New(),
		EventID:    payload.EventID,
		WorkItemID: payload.WorkItemID,
		OwnerID:    payload.OwnerID,
		Kind:       payload.Kind,
		Message:    payload.Message,
		SentAt:     payload.SentAt,
	}
	if err := c.repo.Create(ctx, record); err != nil {
		if db.IsUniqueViolation(err, "uq_notifications_event_id") {
			c.logg.Info(logCtx, "notification already recorded")
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "failed to record notification", err)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "notification recorded")
	return processResult{ack: true}
}
