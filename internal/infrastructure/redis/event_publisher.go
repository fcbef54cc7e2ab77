package redis

import (
	"context"
	"encoding/json"

	"notification-system/internal/domain"

	"github.com/go-redis/redis/v8"
)

const eventsChannel = "classroom_events"

type EventPublisherImpl struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisherImpl {
	return &EventPublisherImpl{client: client}
}

func (r *EventPublisherImpl) PublishEvent(ctx context.Context, event *domain.BrokerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return r.client.Publish(ctx, eventsChannel, payload).Err()
}
