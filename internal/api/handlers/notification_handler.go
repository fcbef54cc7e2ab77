package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"notification-system/internal/domain"
	"notification-system/pkg/logger"

	"github.com/gorilla/mux"
)

// NotificationHandler serves the REST side of the notification-service:
// snapshot fetch, the three mutations (each responding with the
// authoritative unread count) and the event injection endpoint.
type NotificationHandler struct {
	repo      domain.NotificationRepository
	publisher domain.EventPublisher
	log       logger.Logger
}

func NewNotificationHandler(repo domain.NotificationRepository,
	publisher domain.EventPublisher, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		http.Error(w, "X-User-ID required", http.StatusBadRequest)
		return
	}

	limit := domain.DefaultFeedCapacity
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	items, err := h.repo.List(r.Context(), userID, limit)
	if err != nil {
		h.log.Error("Failed to list notifications", "user_id", userID, "error", err)
		http.Error(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []domain.NotificationItem{}
	}

	unread, err := h.repo.CountUnread(r.Context(), userID)
	if err != nil {
		h.log.Error("Failed to count unread", "user_id", userID, "error", err)
		http.Error(w, "failed to count unread", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, domain.FeedSnapshot{Items: items, UnreadCount: unread})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		http.Error(w, "X-User-ID required", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]

	if err := h.repo.MarkRead(r.Context(), userID, id); err != nil {
		h.log.Error("Failed to mark notification read", "id", id, "error", err)
		http.Error(w, "failed to mark read", http.StatusInternalServerError)
		return
	}

	h.respondUnreadCount(w, r, userID)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		http.Error(w, "X-User-ID required", http.StatusBadRequest)
		return
	}

	if err := h.repo.MarkAllRead(r.Context(), userID); err != nil {
		h.log.Error("Failed to mark all read", "user_id", userID, "error", err)
		http.Error(w, "failed to mark all read", http.StatusInternalServerError)
		return
	}

	h.respondUnreadCount(w, r, userID)
}

func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		http.Error(w, "X-User-ID required", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]

	if err := h.repo.Delete(r.Context(), userID, id); err != nil {
		h.log.Error("Failed to delete notification", "id", id, "error", err)
		http.Error(w, "failed to delete", http.StatusInternalServerError)
		return
	}

	h.respondUnreadCount(w, r, userID)
}

// PublishEvent injects a domain event into the broker. Used by upstream
// services and for development.
func (h *NotificationHandler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	var event domain.BrokerEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "invalid event body", http.StatusBadRequest)
		return
	}
	if event.Event == "" || event.UserID == "" {
		http.Error(w, "event and user_id required", http.StatusBadRequest)
		return
	}

	if err := h.publisher.PublishEvent(r.Context(), &event); err != nil {
		h.log.Error("Failed to publish event", "event", event.Event, "error", err)
		http.Error(w, "failed to publish event", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "published"})
}

func (h *NotificationHandler) respondUnreadCount(w http.ResponseWriter, r *http.Request, userID string) {
	unread, err := h.repo.CountUnread(r.Context(), userID)
	if err != nil {
		h.log.Error("Failed to count unread", "user_id", userID, "error", err)
		http.Error(w, "failed to count unread", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int{"unread_count": unread})
}

func (h *NotificationHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "error", err)
	}
}
