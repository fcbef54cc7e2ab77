package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"notification-system/internal/domain"
	"notification-system/internal/infrastructure/websocket"
	"notification-system/pkg/logger"
)

type SyncState int

const (
	SyncIdle SyncState = iota
	SyncLoading
	SyncLive
)

func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncLoading:
		return "loading"
	case SyncLive:
		return "live"
	default:
		return "unknown"
	}
}

const refreshTimeout = 10 * time.Second

// FeedSynchronizer is the only component that knows which push events map to
// which feed mutations and which REST calls back them. It orchestrates the
// connection manager and the subscription registry, seeds the store from the
// snapshot fetch, and buffers push events that arrive before the snapshot
// resolves so a late snapshot cannot silently overwrite a newer event.
type FeedSynchronizer struct {
	conns      *websocket.ConnectionManager
	registry   *websocket.SubscriptionRegistry
	store      *FeedStore
	api        domain.NotificationAPI
	translator *EventTranslator
	log        logger.Logger

	mu         sync.Mutex
	state      SyncState
	buffer     []domain.NotificationItem
	refreshing bool
}

func NewFeedSynchronizer(
	conns *websocket.ConnectionManager,
	registry *websocket.SubscriptionRegistry,
	store *FeedStore,
	api domain.NotificationAPI,
	log logger.Logger,
) *FeedSynchronizer {
	return &FeedSynchronizer{
		conns:      conns,
		registry:   registry,
		store:      store,
		api:        api,
		translator: NewEventTranslator(log),
		log:        log,
	}
}

// Start opens the connection for the identity, subscribes to every push
// event, fetches the initial snapshot and seeds the store, then applies any
// push events buffered while the fetch was in flight. A snapshot failure
// still brings the session live (push events keep flowing into an empty
// feed) and is returned so the caller can Refresh.
func (s *FeedSynchronizer) Start(ctx context.Context, identity string) error {
	s.mu.Lock()
	if s.state != SyncIdle {
		s.mu.Unlock()
		return nil
	}
	s.state = SyncLoading
	s.mu.Unlock()

	for _, event := range domain.PushEventNames {
		s.registry.On(event, s.handlePushEvent)
	}
	s.conns.SetDispatch(s.registry.Dispatch)
	s.conns.Open(identity)

	snapshot, err := s.api.ListNotifications(ctx, s.store.Capacity())
	if err != nil {
		s.log.Error("Failed to fetch notification snapshot", "error", err)
	} else {
		s.store.Seed(snapshot.Items, snapshot.UnreadCount)
	}

	s.mu.Lock()
	for _, item := range s.buffer {
		s.store.PushLive(item)
	}
	buffered := len(s.buffer)
	s.buffer = nil
	s.state = SyncLive
	s.mu.Unlock()

	s.log.Info("Feed session live", "user_id", identity, "buffered_events", buffered)
	return err
}

// Stop tears down the session: subscriptions, connection and feed go
// together. Safe to call when idle.
func (s *FeedSynchronizer) Stop() {
	s.mu.Lock()
	if s.state == SyncIdle {
		s.mu.Unlock()
		return
	}
	s.state = SyncIdle
	s.buffer = nil
	s.mu.Unlock()

	for _, event := range domain.PushEventNames {
		s.registry.Off(event, s.handlePushEvent)
	}
	s.conns.Close()
	s.store.Reset()
	s.log.Info("Feed session stopped")
}

func (s *FeedSynchronizer) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *FeedSynchronizer) Connected() bool {
	return s.conns.IsConnected()
}

func (s *FeedSynchronizer) ConnectionState() websocket.ConnectionState {
	return s.conns.State()
}

func (s *FeedSynchronizer) Snapshot() *domain.FeedSnapshot {
	return s.store.Snapshot()
}

func (s *FeedSynchronizer) handlePushEvent(event string, data json.RawMessage) {
	item, err := s.translator.Translate(event, data)
	if err != nil {
		s.log.Warn("Failed to translate push event", "event", event, "error", err)
		return
	}

	s.mu.Lock()
	switch s.state {
	case SyncLoading:
		s.buffer = append(s.buffer, *item)
		s.mu.Unlock()
		return
	case SyncIdle:
		s.mu.Unlock()
		s.log.Debug("Dropping push event outside session", "event", event)
		return
	}
	s.mu.Unlock()

	s.store.PushLive(*item)
}

// MarkRead applies the optimistic flip, then replaces the unread counter
// with the server-confirmed count. If the item is absent or already read
// nothing happens. On REST failure the flip is kept, a SyncError is
// returned and a snapshot re-fetch is scheduled to reconcile.
func (s *FeedSynchronizer) MarkRead(ctx context.Context, id string) error {
	if !s.store.MarkRead(id) {
		return nil
	}

	unread, err := s.api.MarkRead(ctx, id)
	if err != nil {
		s.scheduleRefresh("mark-read")
		return &domain.SyncError{Op: "mark-read", Err: err}
	}
	s.store.SetUnreadCount(unread)
	return nil
}

// MarkAllRead flips every visible item and asks the server to clear the
// whole history; the server count (expected zero) replaces the local one.
// The REST call is made even when no visible item changed, since unread
// history can extend past the client window.
func (s *FeedSynchronizer) MarkAllRead(ctx context.Context) error {
	s.store.MarkAllRead()

	unread, err := s.api.MarkAllRead(ctx)
	if err != nil {
		s.scheduleRefresh("mark-all-read")
		return &domain.SyncError{Op: "mark-all-read", Err: err}
	}
	s.store.SetUnreadCount(unread)
	return nil
}

// Delete removes the item optimistically; a non-existent id is a no-op.
// The removal is not rolled back on REST failure.
func (s *FeedSynchronizer) Delete(ctx context.Context, id string) error {
	if !s.store.Delete(id) {
		return nil
	}

	unread, err := s.api.DeleteNotification(ctx, id)
	if err != nil {
		s.scheduleRefresh("delete")
		return &domain.SyncError{Op: "delete", Err: err}
	}
	s.store.SetUnreadCount(unread)
	return nil
}

// Refresh re-fetches the snapshot and re-seeds the store. Used by the
// resync scheduler and after failed mutations.
func (s *FeedSynchronizer) Refresh(ctx context.Context) error {
	snapshot, err := s.api.ListNotifications(ctx, s.store.Capacity())
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != SyncLive {
		s.mu.Unlock()
		return nil
	}
	s.store.Seed(snapshot.Items, snapshot.UnreadCount)
	s.mu.Unlock()
	return nil
}

func (s *FeedSynchronizer) scheduleRefresh(op string) {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return
	}
	s.refreshing = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.refreshing = false
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		if err := s.Refresh(ctx); err != nil {
			s.log.Error("Snapshot re-fetch after failed mutation failed",
				"op", op, "error", err)
		}
	}()
}
