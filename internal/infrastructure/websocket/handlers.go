package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	"notification-system/internal/domain"
	"notification-system/pkg/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// ServerHandler upgrades incoming connections and runs the identify
// handshake from the broker's side: connections announce their user with an
// identify envelope and are registered in the hub only once identified.
type ServerHandler struct {
	hub domain.ConnectionHub
	log logger.Logger
}

func NewServerHandler(hub domain.ConnectionHub, log logger.Logger) *ServerHandler {
	return &ServerHandler{
		hub: hub,
		log: log,
	}
}

func (h *ServerHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	sc := NewServerConn(conn, h.log)

	// Start message handling
	go h.handleMessages(sc)
}

func (h *ServerHandler) handleMessages(sc *ServerConn) {
	defer func() {
		if userID := sc.UserID(); userID != "" {
			h.hub.UnregisterConnection(userID, sc)
		}
		sc.Close()
	}()

	for {
		var env domain.EventEnvelope
		if err := sc.conn.ReadJSON(&env); err != nil {
			h.log.Debug("Connection read ended", "user_id", sc.UserID(), "error", err)
			return
		}

		switch env.Event {
		case domain.EventIdentify:
			h.handleIdentify(sc, env.Data)
		case "ping":
			sc.Send(domain.EventEnvelope{Event: "pong"})
		}
	}
}

// handleIdentify is idempotent: the client re-sends identify when the ack
// is lost, so a duplicate for an already-identified connection is simply
// acknowledged again.
func (h *ServerHandler) handleIdentify(sc *ServerConn, data json.RawMessage) {
	var payload domain.IdentifyPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		h.log.Warn("Invalid identify payload", "error", err)
		return
	}

	previous := sc.UserID()
	if previous != payload.UserID {
		if previous != "" {
			h.hub.UnregisterConnection(previous, sc)
		}
		sc.setUserID(payload.UserID)
		if err := h.hub.RegisterConnection(payload.UserID, sc); err != nil {
			h.log.Error("Failed to register connection", "user_id", payload.UserID, "error", err)
			return
		}
	}

	if err := sc.Send(domain.EventEnvelope{Event: domain.EventIdentified}); err != nil {
		h.log.Error("Failed to acknowledge identify", "user_id", payload.UserID, "error", err)
	}
}

// ServerConn wraps one accepted websocket connection.
type ServerConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	mu      sync.RWMutex
	userID  string
	log     logger.Logger
}

func NewServerConn(conn *websocket.Conn, log logger.Logger) *ServerConn {
	return &ServerConn{
		conn: conn,
		log:  log,
	}
}

func (sc *ServerConn) Send(message interface{}) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	return sc.conn.WriteJSON(message)
}

func (sc *ServerConn) Close() error {
	return sc.conn.Close()
}

func (sc *ServerConn) UserID() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.userID
}

func (sc *ServerConn) setUserID(userID string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.userID = userID
}
