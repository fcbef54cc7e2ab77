package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"notification-system/internal/domain"
	"notification-system/pkg/logger"

	"github.com/go-redis/redis/v8"
)

type RedisEventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewRedisEventSubscriber(client *redis.Client, log logger.Logger) *RedisEventSubscriber {
	return &RedisEventSubscriber{
		client: client,
		log:    log,
	}
}

func (r *RedisEventSubscriber) SubscribeToEvents(ctx context.Context, handler domain.BrokerEventHandler) error {
	pubsub := r.client.Subscribe(ctx, eventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	r.log.Info("Subscribed to classroom events")

	for {
		select {
		case msg := <-ch:
			event, err := r.parseEventData(msg.Payload)
			if err != nil {
				r.log.Error("Failed to parse event", "payload", msg.Payload, "error", err)
				continue
			}

			if err := handler(event); err != nil {
				r.log.Error("Failed to handle event", "event", event.Event, "error", err)
			}

		case <-ctx.Done():
			r.log.Info("Event subscriber stopped")
			return ctx.Err()
		}
	}
}

func (r *RedisEventSubscriber) parseEventData(payload string) (*domain.BrokerEvent, error) {
	var event domain.BrokerEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}

	if event.Event == "" || event.UserID == "" {
		return nil, fmt.Errorf("invalid event format: %s", payload)
	}

	return &event, nil
}
