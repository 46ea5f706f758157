package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
	"github.com/google/uuid"
)

// EventType names a real-time kitchen event.
type EventType string

const (
	EventOrderCreated              EventType = "order.created"
	EventOrderKitchenStatusChanged EventType = "order.kitchen_status_changed"
	EventInventoryLowStock         EventType = "inventory.low_stock"
)

// Event is the envelope pushed to connected staff screens.
type Event struct {
	Type       EventType `json:"type"`
	EventID    string    `json:"eventId"`
	OccurredAt time.Time `json:"occurredAt"`
	Actor      string    `json:"actor,omitempty"`
	Data       any       `json:"data"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(eventType EventType, actor string, data any) Event {
	return Event{
		Type:       eventType,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Actor:      actor,
		Data:       data,
	}
}

// Notifier delivers events to whoever listens. Delivery is best effort:
// callers log failures and never fail the business operation on them.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Notify(context.Context, Event) error { return nil }

type publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// RedisNotifier publishes JSON encoded events on a redis pub/sub channel.
type RedisNotifier struct {
	client  publisher
	channel string
}

// NewRedisNotifier builds a notifier bound to channel.
func NewRedisNotifier(client publisher, channel string) (*RedisNotifier, error) {
	if client == nil {
		return nil, fmt.Errorf("redis publisher required")
	}
	if channel == "" {
		return nil, fmt.Errorf("channel required")
	}
	return &RedisNotifier{client: client, channel: channel}, nil
}

func (n *RedisNotifier) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	if err := n.client.Publish(ctx, n.channel, payload); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

// Send delivers event and logs instead of returning a failure.
func Send(ctx context.Context, notifier Notifier, logg *logger.Logger, event Event) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, event); err != nil {
		logCtx := logg.WithField(ctx, "event_type", string(event.Type))
		logg.Error(logCtx, "notification delivery failed", err)
	}
}
