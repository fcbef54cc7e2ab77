package services

import (
	"sync"

	"notification-system/internal/domain"
	"notification-system/pkg/logger"
)

// FeedStore is the single source of truth for the visible notification list
// and the unread counter. The list is bounded, ordered newest first by
// arrival (client clocks are unreliable, so arrival order is the ordering
// authority, not the timestamp field). The unread counter is tracked
// independently of the read flags: server-side history can exceed the
// client-visible window, so the counter is replaced from server responses
// rather than derived by counting.
type FeedStore struct {
	mu       sync.RWMutex
	items    []domain.NotificationItem
	unread   int
	capacity int
	log      logger.Logger
}

func NewFeedStore(capacity int, log logger.Logger) *FeedStore {
	if capacity <= 0 {
		capacity = domain.DefaultFeedCapacity
	}
	return &FeedStore{
		capacity: capacity,
		log:      log,
	}
}

func (s *FeedStore) Capacity() int {
	return s.capacity
}

// Seed replaces the entire feed with a freshly fetched snapshot. Items are
// assumed already ordered newest first by the server; anything beyond
// capacity is truncated.
func (s *FeedStore) Seed(items []domain.NotificationItem, unreadCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(items) > s.capacity {
		items = items[:s.capacity]
	}
	s.items = make([]domain.NotificationItem, len(items))
	copy(s.items, items)

	if unreadCount < 0 {
		unreadCount = 0
	}
	s.unread = unreadCount
}

// PushLive inserts a newly arrived push item at the front, evicting the
// oldest item when over capacity. The item is assumed unread at arrival and
// the counter is incremented unconditionally. An id already present in the
// feed is a duplicate delivery and is ignored.
func (s *FeedStore) PushLive(item domain.NotificationItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if existing.ID == item.ID {
			s.log.Debug("Ignoring duplicate notification", "id", item.ID)
			return false
		}
	}

	item.Read = false
	s.items = append([]domain.NotificationItem{item}, s.items...)
	if len(s.items) > s.capacity {
		s.items = s.items[:s.capacity]
	}
	s.unread++
	return true
}

// MarkRead flips one item to read. The unread counter is left alone: the
// authoritative count arrives with the server confirmation and is applied
// via SetUnreadCount. Returns false if the item is absent or already read.
func (s *FeedStore) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			if s.items[i].Read {
				return false
			}
			s.items[i].Read = true
			return true
		}
	}
	return false
}

// MarkAllRead flips every item to read and returns how many changed.
func (s *FeedStore) MarkAllRead() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for i := range s.items {
		if !s.items[i].Read {
			s.items[i].Read = true
			changed++
		}
	}
	return changed
}

// Delete removes one item. Returns false if no such item exists.
func (s *FeedStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// SetUnreadCount replaces the counter with a server-confirmed value.
// Replacement, not decrement: a push event may have incremented the counter
// between an optimistic flip and the server's response.
func (s *FeedStore) SetUnreadCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 0 {
		n = 0
	}
	s.unread = n
}

func (s *FeedStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

func (s *FeedStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot returns an atomic copy of the feed for the presentation layer.
func (s *FeedStore) Snapshot() *domain.FeedSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.NotificationItem, len(s.items))
	copy(items, s.items)
	return &domain.FeedSnapshot{
		Items:       items,
		UnreadCount: s.unread,
	}
}

// Reset discards the feed on logout/identity change.
func (s *FeedStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.unread = 0
}
