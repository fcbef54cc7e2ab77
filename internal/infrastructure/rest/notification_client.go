package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"notification-system/internal/domain"
	"notification-system/pkg/logger"
)

// NotificationClient implements domain.NotificationAPI against the
// notification-service REST endpoints. Identity travels in the X-User-ID
// header. Calls are bounded by the caller's context.
type NotificationClient struct {
	baseURL string
	userID  string
	client  *http.Client
	log     logger.Logger
}

type unreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

func NewNotificationClient(baseURL, userID string, log logger.Logger) *NotificationClient {
	return &NotificationClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		client:  &http.Client{},
		log:     log,
	}
}

func (c *NotificationClient) ListNotifications(ctx context.Context, limit int) (*domain.FeedSnapshot, error) {
	path := fmt.Sprintf("/api/v1/notifications?limit=%d", limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-User-ID", c.userID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list notifications: unexpected status %d", resp.StatusCode)
	}

	var snapshot domain.FeedSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *NotificationClient) MarkRead(ctx context.Context, id string) (int, error) {
	return c.mutate(ctx, http.MethodPost, "/api/v1/notifications/"+url.PathEscape(id)+"/read")
}

func (c *NotificationClient) MarkAllRead(ctx context.Context) (int, error) {
	return c.mutate(ctx, http.MethodPost, "/api/v1/notifications/read-all")
}

func (c *NotificationClient) DeleteNotification(ctx context.Context, id string) (int, error) {
	return c.mutate(ctx, http.MethodDelete, "/api/v1/notifications/"+url.PathEscape(id))
}

func (c *NotificationClient) mutate(ctx context.Context, method, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("X-User-ID", c.userID)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	var body unreadCountResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.UnreadCount, nil
}
