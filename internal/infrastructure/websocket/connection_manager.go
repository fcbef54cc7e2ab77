package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"notification-system/internal/domain"
	"notification-system/pkg/logger"

	"github.com/gorilla/websocket"
)

type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateIdentified
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateIdentified:
		return "identified"
	default:
		return "unknown"
	}
}

const (
	DefaultIdentifyTimeout = time.Second

	// The identify request is re-sent exactly once on timeout. Bounding
	// the retry keeps a flapping link from producing a retry storm; the
	// session may stay connected but unidentified if both are lost.
	identifyRetries = 1

	reconnectBaseDelay = 500 * time.Millisecond
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
)

// ConnectionManager owns at most one live websocket per identity. It dials,
// runs the identify handshake, reconnects with exponential backoff after a
// drop, and re-identifies on every reconnect. Consumers never see the raw
// connection; inbound events are routed through the dispatch callback and
// outbound messages go through Send, which drops while disconnected.
type ConnectionManager struct {
	url             string
	identifyTimeout time.Duration
	dialer          *websocket.Dialer
	log             logger.Logger

	dispatch      domain.EventHandler
	onStateChange func(connected bool)

	mu           sync.Mutex
	state        ConnectionState
	identity     string
	conn         *websocket.Conn
	cancel       context.CancelFunc
	gen          int
	identifiedCh chan struct{}

	writeMu sync.Mutex
}

func NewConnectionManager(url string, identifyTimeout time.Duration, log logger.Logger) *ConnectionManager {
	if identifyTimeout <= 0 {
		identifyTimeout = DefaultIdentifyTimeout
	}
	return &ConnectionManager{
		url:             url,
		identifyTimeout: identifyTimeout,
		dialer:          websocket.DefaultDialer,
		log:             log,
	}
}

// SetDispatch installs the handler every inbound envelope is routed to.
// Must be called before Open.
func (cm *ConnectionManager) SetDispatch(handler domain.EventHandler) {
	cm.dispatch = handler
}

// SetOnStateChange installs the connected-boolean observer exposed to the
// presentation layer. Must be called before Open.
func (cm *ConnectionManager) SetOnStateChange(fn func(connected bool)) {
	cm.onStateChange = fn
}

// Open begins connecting for the given identity. It is a no-op if a
// connection for the same identity is already live or in progress; a
// different identity tears the prior connection down first.
func (cm *ConnectionManager) Open(identity string) {
	cm.mu.Lock()
	if cm.identity == identity && cm.state != StateDisconnected {
		cm.mu.Unlock()
		return
	}
	needTeardown := cm.cancel != nil
	cm.mu.Unlock()

	if needTeardown {
		cm.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())

	cm.mu.Lock()
	cm.identity = identity
	cm.cancel = cancel
	cm.state = StateConnecting
	cm.gen++
	gen := cm.gen
	cm.mu.Unlock()

	cm.log.Info("Opening connection", "url", cm.url, "user_id", identity)
	go cm.run(ctx, identity, gen)
}

// Close tears the connection down deterministically. Safe to call multiple
// times and while disconnected.
func (cm *ConnectionManager) Close() {
	cm.mu.Lock()
	cancel := cm.cancel
	conn := cm.conn
	wasUp := cm.state == StateConnected || cm.state == StateIdentified
	cm.cancel = nil
	cm.conn = nil
	cm.identity = ""
	cm.identifiedCh = nil
	cm.state = StateDisconnected
	cm.gen++
	cm.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	if wasUp {
		cm.notifyState(false)
	}
}

func (cm *ConnectionManager) State() ConnectionState {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.state
}

func (cm *ConnectionManager) IsConnected() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.state == StateConnected || cm.state == StateIdentified
}

func (cm *ConnectionManager) Identity() string {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.identity
}

// Send writes one envelope to the live connection. Outbound messages while
// disconnected are dropped, not queued: everything sent here is either an
// idempotent round-trip or a best-effort signal.
func (cm *ConnectionManager) Send(event string, data json.RawMessage) error {
	cm.mu.Lock()
	conn := cm.conn
	cm.mu.Unlock()

	if conn == nil {
		cm.log.Debug("Dropping outbound event while disconnected", "event", event)
		return nil
	}

	cm.writeMu.Lock()
	defer cm.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(domain.EventEnvelope{Event: event, Data: data})
}

func (cm *ConnectionManager) run(ctx context.Context, identity string, gen int) {
	delay := reconnectBaseDelay

	for {
		conn, _, err := cm.dialer.DialContext(ctx, cm.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			cm.log.Warn("Failed to connect", "url", cm.url, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			if delay *= 2; delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}
		delay = reconnectBaseDelay

		identified := make(chan struct{})

		cm.mu.Lock()
		if gen != cm.gen {
			cm.mu.Unlock()
			conn.Close()
			return
		}
		cm.conn = conn
		cm.state = StateConnected
		cm.identifiedCh = identified
		cm.mu.Unlock()

		cm.log.Info("Connection established", "user_id", identity)
		cm.notifyState(true)

		go cm.identify(ctx, identity, identified)

		cm.readLoop(ctx, conn)

		cm.mu.Lock()
		if gen != cm.gen {
			cm.mu.Unlock()
			return
		}
		cm.conn = nil
		cm.identifiedCh = nil
		cm.state = StateDisconnected
		cm.mu.Unlock()

		cm.notifyState(false)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		cm.mu.Lock()
		if gen == cm.gen {
			cm.state = StateConnecting
		}
		cm.mu.Unlock()
	}
}

func (cm *ConnectionManager) identify(ctx context.Context, identity string, identified <-chan struct{}) {
	payload, err := json.Marshal(domain.IdentifyPayload{UserID: identity})
	if err != nil {
		cm.log.Error("Failed to marshal identify payload", "error", err)
		return
	}

	for attempt := 0; attempt <= identifyRetries; attempt++ {
		if attempt > 0 {
			cm.log.Warn("Identify not acknowledged, retrying", "user_id", identity)
		}
		if err := cm.Send(domain.EventIdentify, payload); err != nil {
			cm.log.Warn("Failed to send identify", "error", err)
		}

		select {
		case <-identified:
			cm.log.Info("Session identified", "user_id", identity)
			return
		case <-ctx.Done():
			return
		case <-time.After(cm.identifyTimeout):
		}
	}

	cm.log.Warn("Identify handshake gave up, session remains unidentified",
		"user_id", identity, "attempts", identifyRetries+1)
}

func (cm *ConnectionManager) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var env domain.EventEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() == nil {
				cm.log.Warn("Connection lost", "error", err)
			}
			conn.Close()
			return
		}
		cm.handleEnvelope(&env)
	}
}

func (cm *ConnectionManager) handleEnvelope(env *domain.EventEnvelope) {
	if env.Event == domain.EventIdentified {
		cm.mu.Lock()
		if cm.state == StateConnected {
			cm.state = StateIdentified
		}
		ch := cm.identifiedCh
		cm.identifiedCh = nil
		cm.mu.Unlock()

		if ch != nil {
			close(ch)
		}
		return
	}

	if cm.dispatch != nil {
		cm.dispatch(env.Event, env.Data)
	}
}

func (cm *ConnectionManager) notifyState(connected bool) {
	if cm.onStateChange != nil {
		cm.onStateChange(connected)
	}
}
