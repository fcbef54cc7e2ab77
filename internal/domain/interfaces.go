package domain

import (
	"context"
	"encoding/json"
)

// EventHandler receives one push event delivered over the connection.
type EventHandler func(event string, data json.RawMessage)

// NotificationAPI is the REST contract backing the feed: snapshot fetch
// plus the three mutations. Every mutation returns the server-confirmed
// unread count, which replaces the local counter.
type NotificationAPI interface {
	ListNotifications(ctx context.Context, limit int) (*FeedSnapshot, error)
	MarkRead(ctx context.Context, id string) (int, error)
	MarkAllRead(ctx context.Context) (int, error)
	DeleteNotification(ctx context.Context, id string) (int, error)
}

// Repository interface (server side)
type NotificationRepository interface {
	Insert(ctx context.Context, userID string, item *NotificationItem) error
	List(ctx context.Context, userID string, limit int) ([]NotificationItem, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID, id string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

// Event interfaces (server side)
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *BrokerEvent) error
}

type EventSubscriber interface {
	SubscribeToEvents(ctx context.Context, handler BrokerEventHandler) error
}

type BrokerEventHandler func(event *BrokerEvent) error

// Notification interfaces (server side)
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID string, message interface{}) error
}

// WebSocket interfaces (server side)
type ServerConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
}

type ConnectionHub interface {
	RegisterConnection(userID string, conn ServerConnection) error
	UnregisterConnection(userID string, conn ServerConnection) error
	GetConnectionsForUser(userID string) []ServerConnection
	NotifyUser(userID string, message interface{}) error
	CloseAndUnregisterUser(userID string) error
}
