package websocket

import (
	"encoding/json"
	"sync"

	"notification-system/internal/domain"
	"notification-system/pkg/logger"
)

// Hub is the server-side connection registry: identified connections keyed
// by user. Unidentified connections are not registered and receive nothing.
type Hub struct {
	userConns map[string][]domain.ServerConnection
	mutex     sync.RWMutex
	log       logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		userConns: make(map[string][]domain.ServerConnection),
		log:       log,
	}
}

func (h *Hub) RegisterConnection(userID string, conn domain.ServerConnection) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.userConns[userID] = append(h.userConns[userID], conn)

	h.log.Info("Connection registered", "user_id", userID)
	return nil
}

func (h *Hub) UnregisterConnection(userID string, conn domain.ServerConnection) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if userConnections, exists := h.userConns[userID]; exists {
		var newConns []domain.ServerConnection
		for _, existingConn := range userConnections {
			if existingConn != conn {
				newConns = append(newConns, existingConn)
			}
		}

		if len(newConns) == 0 {
			delete(h.userConns, userID)
		} else {
			h.userConns[userID] = newConns
		}
	}

	h.log.Info("Connection unregistered", "user_id", userID)
	return nil
}

func (h *Hub) GetConnectionsForUser(userID string) []domain.ServerConnection {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if connections, exists := h.userConns[userID]; exists {
		conns := make([]domain.ServerConnection, len(connections))
		copy(conns, connections)
		return conns
	}

	return nil
}

func (h *Hub) NotifyUser(userID string, message interface{}) error {
	connections := h.GetConnectionsForUser(userID)

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	for _, conn := range connections {
		if err := conn.Send(json.RawMessage(messageBytes)); err != nil {
			h.log.Error("Failed to send message", "user_id", userID, "error", err)
			// Continue to other connections
		}
	}

	return nil
}

func (h *Hub) CloseAndUnregisterUser(userID string) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if connections, exists := h.userConns[userID]; exists {
		for _, conn := range connections {
			if err := conn.Close(); err != nil {
				h.log.Error("Failed to close connection", "user_id", userID, "error", err)
			}
		}
		delete(h.userConns, userID)
	}

	h.log.Info("Connections closed for user", "user_id", userID)
	return nil
}
