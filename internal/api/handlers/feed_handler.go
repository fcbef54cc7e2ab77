package handlers

import (
	"net/http"

	"notification-system/internal/domain"
	"notification-system/internal/services"
	"notification-system/pkg/logger"

	"github.com/labstack/echo/v4"
)

// FeedHandler is the notify-agent's local API for the presentation layer:
// the current feed snapshot, the connected indicator and the mutation entry
// points. A mutation whose server confirmation failed answers 202 with
// status sync-pending; the optimistic change is kept and reconciled by the
// next snapshot fetch.
type FeedHandler struct {
	sync *services.FeedSynchronizer
	log  logger.Logger
}

type FeedResponse struct {
	Items           []domain.NotificationItem `json:"items"`
	UnreadCount     int                       `json:"unread_count"`
	Connected       bool                      `json:"connected"`
	ConnectionState string                    `json:"connection_state"`
}

func NewFeedHandler(sync *services.FeedSynchronizer, log logger.Logger) *FeedHandler {
	return &FeedHandler{
		sync: sync,
		log:  log,
	}
}

func (h *FeedHandler) GetFeed(c echo.Context) error {
	snapshot := h.sync.Snapshot()
	items := snapshot.Items
	if items == nil {
		items = []domain.NotificationItem{}
	}

	return c.JSON(http.StatusOK, FeedResponse{
		Items:           items,
		UnreadCount:     snapshot.UnreadCount,
		Connected:       h.sync.Connected(),
		ConnectionState: h.sync.ConnectionState().String(),
	})
}

func (h *FeedHandler) MarkRead(c echo.Context) error {
	id := c.Param("id")

	err := h.sync.MarkRead(c.Request().Context(), id)
	return h.mutationResponse(c, err)
}

func (h *FeedHandler) MarkAllRead(c echo.Context) error {
	err := h.sync.MarkAllRead(c.Request().Context())
	return h.mutationResponse(c, err)
}

func (h *FeedHandler) DeleteNotification(c echo.Context) error {
	id := c.Param("id")

	err := h.sync.Delete(c.Request().Context(), id)
	return h.mutationResponse(c, err)
}

func (h *FeedHandler) mutationResponse(c echo.Context, err error) error {
	if err != nil {
		if domain.IsSyncError(err) {
			h.log.Warn("Feed mutation pending sync", "error", err)
			return c.JSON(http.StatusAccepted, map[string]interface{}{
				"status":       "sync-pending",
				"unread_count": h.sync.Snapshot().UnreadCount,
			})
		}
		h.log.Error("Feed mutation failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "mutation failed"})
	}

	return c.JSON(http.StatusOK, map[string]int{
		"unread_count": h.sync.Snapshot().UnreadCount,
	})
}
