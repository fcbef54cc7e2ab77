package services

import (
	"context"

	"notification-system/internal/domain"
	"notification-system/pkg/logger"
)

// PushService consumes broker events and delivers them: each event is
// persisted as a notification row (so the next snapshot fetch includes it)
// and forwarded to the user's live connections with its original event name,
// leaving translation for display to the client.
type PushService struct {
	repo       domain.NotificationRepository
	notifier   domain.UserNotifier
	translator *EventTranslator
	log        logger.Logger
}

func NewPushService(repo domain.NotificationRepository, notifier domain.UserNotifier,
	log logger.Logger) *PushService {
	return &PushService{
		repo:       repo,
		notifier:   notifier,
		translator: NewEventTranslator(log),
		log:        log,
	}
}

func (ps *PushService) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	ps.log.Info("Starting push service")
	return subscriber.SubscribeToEvents(ctx, ps.handleEvent)
}

func (ps *PushService) handleEvent(event *domain.BrokerEvent) error {
	ps.log.Debug("Handling broker event", "event", event.Event, "user_id", event.UserID)

	item, err := ps.translator.Translate(event.Event, event.Data)
	if err != nil {
		return err
	}

	if err := ps.repo.Insert(context.Background(), event.UserID, item); err != nil {
		// Still push: a delivery the snapshot misses beats a dropped one.
		ps.log.Error("Failed to persist notification", "user_id", event.UserID, "error", err)
	}

	return ps.notifier.NotifyUser(context.Background(), event.UserID,
		domain.EventEnvelope{Event: event.Event, Data: event.Data})
}
