package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"notification-system/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	userID string
}

func newRecordingServer(status int, body string) (*httptest.Server, *[]recordedRequest) {
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			userID: r.Header.Get("X-User-ID"),
		})
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	return srv, &requests
}

func TestNotificationClient_ListNotifications(t *testing.T) {
	srv, requests := newRecordingServer(http.StatusOK, `{
		"items": [
			{"id": "n1", "text": "Essay graded", "link": "/submissions/s1", "read": false,
			 "timestamp": "2025-03-01T12:00:00Z"},
			{"id": "n2", "text": "New enrollment", "read": true,
			 "timestamp": "2025-02-28T09:30:00Z"}
		],
		"unread_count": 7
	}`)
	defer srv.Close()

	client := NewNotificationClient(srv.URL+"/", "user-1", logger.NewNop())

	snapshot, err := client.ListNotifications(context.Background(), 20)
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "/api/v1/notifications", req.path)
	assert.Equal(t, "limit=20", req.query)
	assert.Equal(t, "user-1", req.userID)

	require.Len(t, snapshot.Items, 2)
	assert.Equal(t, "n1", snapshot.Items[0].ID)
	assert.Equal(t, "Essay graded", snapshot.Items[0].Text)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), snapshot.Items[0].Timestamp)
	assert.True(t, snapshot.Items[1].Read)
	assert.Equal(t, 7, snapshot.UnreadCount)
}

func TestNotificationClient_MarkRead(t *testing.T) {
	srv, requests := newRecordingServer(http.StatusOK, `{"unread_count": 4}`)
	defer srv.Close()

	client := NewNotificationClient(srv.URL, "user-1", logger.NewNop())

	count, err := client.MarkRead(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	require.Len(t, *requests, 1)
	assert.Equal(t, http.MethodPost, (*requests)[0].method)
	assert.Equal(t, "/api/v1/notifications/n1/read", (*requests)[0].path)
	assert.Equal(t, "user-1", (*requests)[0].userID)
}

func TestNotificationClient_MarkAllRead(t *testing.T) {
	srv, requests := newRecordingServer(http.StatusOK, `{"unread_count": 0}`)
	defer srv.Close()

	client := NewNotificationClient(srv.URL, "user-1", logger.NewNop())

	count, err := client.MarkAllRead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.Equal(t, http.MethodPost, (*requests)[0].method)
	assert.Equal(t, "/api/v1/notifications/read-all", (*requests)[0].path)
}

func TestNotificationClient_DeleteNotification(t *testing.T) {
	srv, requests := newRecordingServer(http.StatusOK, `{"unread_count": 2}`)
	defer srv.Close()

	client := NewNotificationClient(srv.URL, "user-1", logger.NewNop())

	count, err := client.DeleteNotification(context.Background(), "n2")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Equal(t, http.MethodDelete, (*requests)[0].method)
	assert.Equal(t, "/api/v1/notifications/n2", (*requests)[0].path)
}

func TestNotificationClient_IDsArePathEscaped(t *testing.T) {
	srv, requests := newRecordingServer(http.StatusOK, `{"unread_count": 0}`)
	defer srv.Close()

	client := NewNotificationClient(srv.URL, "user-1", logger.NewNop())

	_, err := client.MarkRead(context.Background(), "a/b c")
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/notifications/a/b c/read", (*requests)[0].path)
}

func TestNotificationClient_NonOKStatusIsAnError(t *testing.T) {
	srv, _ := newRecordingServer(http.StatusInternalServerError, `{"error":"boom"}`)
	defer srv.Close()

	client := NewNotificationClient(srv.URL, "user-1", logger.NewNop())

	_, err := client.ListNotifications(context.Background(), 20)
	assert.Error(t, err)

	_, err = client.MarkRead(context.Background(), "n1")
	assert.Error(t, err)
}

func TestNotificationClient_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewNotificationClient(srv.URL, "user-1", logger.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.ListNotifications(ctx, 20)
	assert.Error(t, err)
}
