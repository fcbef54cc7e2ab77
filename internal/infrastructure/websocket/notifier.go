package websocket

import (
	"context"

	"notification-system/internal/domain"
)

type HubNotifier struct {
	hub domain.ConnectionHub
}

func NewHubNotifier(hub domain.ConnectionHub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyUser(ctx context.Context, userID string, message interface{}) error {
	return n.hub.NotifyUser(userID, message)
}
