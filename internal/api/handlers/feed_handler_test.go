package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"notification-system/internal/domain"
	"notification-system/internal/infrastructure/websocket"
	"notification-system/internal/services"
	"notification-system/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeedAPI struct {
	snapshot    *domain.FeedSnapshot
	markReadErr error
}

func (f *fakeFeedAPI) ListNotifications(ctx context.Context, limit int) (*domain.FeedSnapshot, error) {
	return f.snapshot, nil
}

func (f *fakeFeedAPI) MarkRead(ctx context.Context, id string) (int, error) {
	if f.markReadErr != nil {
		return 0, f.markReadErr
	}
	return f.snapshot.UnreadCount - 1, nil
}

func (f *fakeFeedAPI) MarkAllRead(ctx context.Context) (int, error) { return 0, nil }

func (f *fakeFeedAPI) DeleteNotification(ctx context.Context, id string) (int, error) {
	return 0, nil
}

func newTestFeedHandler(t *testing.T, api domain.NotificationAPI) (*FeedHandler, *services.FeedSynchronizer) {
	t.Helper()
	log := logger.NewNop()
	conns := websocket.NewConnectionManager("ws://127.0.0.1:1/ws", time.Second, log)
	registry := websocket.NewSubscriptionRegistry(log)
	store := services.NewFeedStore(domain.DefaultFeedCapacity, log)
	sync := services.NewFeedSynchronizer(conns, registry, store, api, log)
	require.NoError(t, sync.Start(context.Background(), "user-1"))
	t.Cleanup(sync.Stop)
	return NewFeedHandler(sync, log), sync
}

func feedSnapshot() *domain.FeedSnapshot {
	return &domain.FeedSnapshot{
		Items: []domain.NotificationItem{
			{ID: "a", Text: "first", Timestamp: time.Now()},
			{ID: "b", Text: "second", Timestamp: time.Now()},
		},
		UnreadCount: 2,
	}
}

func echoRequest(method, path string, params map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for name, value := range params {
		c.SetParamNames(name)
		c.SetParamValues(value)
	}
	return c, rec
}

func TestFeedHandler_GetFeed(t *testing.T) {
	handler, _ := newTestFeedHandler(t, &fakeFeedAPI{snapshot: feedSnapshot()})

	c, rec := echoRequest(http.MethodGet, "/feed", nil)
	require.NoError(t, handler.GetFeed(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp FeedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 2, resp.UnreadCount)
	assert.NotEmpty(t, resp.ConnectionState)
}

func TestFeedHandler_GetFeedEmptyIsArray(t *testing.T) {
	handler, _ := newTestFeedHandler(t, &fakeFeedAPI{
		snapshot: &domain.FeedSnapshot{Items: []domain.NotificationItem{}},
	})

	c, rec := echoRequest(http.MethodGet, "/feed", nil)
	require.NoError(t, handler.GetFeed(c))
	assert.Contains(t, rec.Body.String(), `"items":[]`)
}

func TestFeedHandler_MarkRead(t *testing.T) {
	handler, _ := newTestFeedHandler(t, &fakeFeedAPI{snapshot: feedSnapshot()})

	c, rec := echoRequest(http.MethodPost, "/feed/a/read", map[string]string{"id": "a"})
	require.NoError(t, handler.MarkRead(c))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.JSONEq(t, `{"unread_count": 1}`, rec.Body.String())
}

func TestFeedHandler_MarkReadSyncFailureAnswersAccepted(t *testing.T) {
	handler, _ := newTestFeedHandler(t, &fakeFeedAPI{
		snapshot:    feedSnapshot(),
		markReadErr: errors.New("connection refused"),
	})

	c, rec := echoRequest(http.MethodPost, "/feed/a/read", map[string]string{"id": "a"})
	require.NoError(t, handler.MarkRead(c))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "sync-pending")
}

func TestFeedHandler_MarkAllRead(t *testing.T) {
	handler, sync := newTestFeedHandler(t, &fakeFeedAPI{snapshot: feedSnapshot()})

	c, rec := echoRequest(http.MethodPost, "/feed/read-all", nil)
	require.NoError(t, handler.MarkAllRead(c))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.JSONEq(t, `{"unread_count": 0}`, rec.Body.String())
	for _, item := range sync.Snapshot().Items {
		assert.True(t, item.Read)
	}
}

func TestFeedHandler_DeleteNotification(t *testing.T) {
	handler, sync := newTestFeedHandler(t, &fakeFeedAPI{snapshot: feedSnapshot()})

	c, rec := echoRequest(http.MethodDelete, "/feed/a", map[string]string{"id": "a"})
	require.NoError(t, handler.DeleteNotification(c))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, sync.Snapshot().Items, 1)
	assert.Equal(t, "b", sync.Snapshot().Items[0].ID)
}
