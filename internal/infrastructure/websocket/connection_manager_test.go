package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"notification-system/internal/domain"
	"notification-system/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBroker is a minimal broker-side websocket endpoint: it records
// identify attempts, acknowledges from a configurable attempt onwards and
// can push events to the latest connection.
type testBroker struct {
	srv *httptest.Server

	mu         sync.Mutex
	identifies []string
	ackFrom    int // acknowledge the nth identify onwards; 0 = never
	pushOnAck  *domain.EventEnvelope
	conns      []*websocket.Conn
}

func newTestBroker(ackFrom int) *testBroker {
	b := &testBroker{ackFrom: ackFrom}
	upgrader := websocket.Upgrader{}

	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		b.mu.Lock()
		b.conns = append(b.conns, conn)
		b.mu.Unlock()

		defer conn.Close()
		for {
			var env domain.EventEnvelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			if env.Event != domain.EventIdentify {
				continue
			}

			var payload domain.IdentifyPayload
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				continue
			}

			b.mu.Lock()
			b.identifies = append(b.identifies, payload.UserID)
			n := len(b.identifies)
			ackFrom := b.ackFrom
			push := b.pushOnAck
			b.mu.Unlock()

			if ackFrom != 0 && n >= ackFrom {
				conn.WriteJSON(domain.EventEnvelope{Event: domain.EventIdentified})
				if push != nil {
					conn.WriteJSON(push)
				}
			}
		}
	}))
	return b
}

func (b *testBroker) url() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http")
}

func (b *testBroker) identifyCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.identifies)
}

func (b *testBroker) identifiedUsers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.identifies...)
}

func (b *testBroker) connCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

func (b *testBroker) dropConnections() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, conn := range b.conns {
		conn.Close()
	}
}

func (b *testBroker) close() {
	b.dropConnections()
	b.srv.Close()
}

func TestConnectionManager_IdentifyHandshake(t *testing.T) {
	broker := newTestBroker(1)
	defer broker.close()

	pushData, _ := json.Marshal(map[string]string{"preview": "hi"})
	broker.pushOnAck = &domain.EventEnvelope{Event: domain.EventClassMessage, Data: pushData}

	cm := NewConnectionManager(broker.url(), 100*time.Millisecond, logger.NewNop())
	defer cm.Close()

	var mu sync.Mutex
	var events []string
	cm.SetDispatch(func(event string, data json.RawMessage) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
	})

	cm.Open("user-1")

	require.Eventually(t, func() bool {
		return cm.State() == StateIdentified
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"user-1"}, broker.identifiedUsers())
	assert.True(t, cm.IsConnected())

	// Push events flow through dispatch; the identified ack does not.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1 && events[0] == domain.EventClassMessage
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnectionManager_IdentifyRetriesExactlyOnce(t *testing.T) {
	broker := newTestBroker(0) // never acknowledge
	defer broker.close()

	cm := NewConnectionManager(broker.url(), 50*time.Millisecond, logger.NewNop())
	defer cm.Close()

	cm.Open("user-1")

	// First attempt plus one retry...
	require.Eventually(t, func() bool {
		return broker.identifyCount() == 2
	}, 2*time.Second, 5*time.Millisecond)

	// ...and nothing further well past the timeout window.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 2, broker.identifyCount())

	// Connected but unidentified is a distinguishable state.
	assert.Equal(t, StateConnected, cm.State())
	assert.True(t, cm.IsConnected())
}

func TestConnectionManager_AckOnRetrySucceeds(t *testing.T) {
	broker := newTestBroker(2) // ignore the first identify, ack the retry
	defer broker.close()

	cm := NewConnectionManager(broker.url(), 50*time.Millisecond, logger.NewNop())
	defer cm.Close()

	cm.Open("user-1")

	require.Eventually(t, func() bool {
		return cm.State() == StateIdentified
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, broker.identifyCount())
}

func TestConnectionManager_OpenSameIdentityIsNoOp(t *testing.T) {
	broker := newTestBroker(1)
	defer broker.close()

	cm := NewConnectionManager(broker.url(), 100*time.Millisecond, logger.NewNop())
	defer cm.Close()

	cm.Open("user-1")
	require.Eventually(t, func() bool {
		return cm.State() == StateIdentified
	}, 2*time.Second, 10*time.Millisecond)

	cm.Open("user-1")
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, broker.connCount())
	assert.Equal(t, 1, broker.identifyCount())
}

func TestConnectionManager_IdentityChangeReplacesConnection(t *testing.T) {
	broker := newTestBroker(1)
	defer broker.close()

	cm := NewConnectionManager(broker.url(), 100*time.Millisecond, logger.NewNop())
	defer cm.Close()

	cm.Open("user-1")
	require.Eventually(t, func() bool {
		return cm.State() == StateIdentified
	}, 2*time.Second, 10*time.Millisecond)

	cm.Open("user-2")
	require.Eventually(t, func() bool {
		users := broker.identifiedUsers()
		return len(users) == 2 && users[1] == "user-2"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "user-2", cm.Identity())
}

func TestConnectionManager_ReconnectsAndReidentifies(t *testing.T) {
	broker := newTestBroker(1)
	defer broker.close()

	cm := NewConnectionManager(broker.url(), 100*time.Millisecond, logger.NewNop())
	defer cm.Close()

	var mu sync.Mutex
	var transitions []bool
	cm.SetOnStateChange(func(connected bool) {
		mu.Lock()
		transitions = append(transitions, connected)
		mu.Unlock()
	})

	cm.Open("user-1")
	require.Eventually(t, func() bool {
		return cm.State() == StateIdentified
	}, 2*time.Second, 10*time.Millisecond)

	broker.dropConnections()

	// The manager reconnects beneath the session and re-runs the
	// handshake on the fresh connection.
	require.Eventually(t, func() bool {
		return broker.connCount() >= 2 && cm.State() == StateIdentified
	}, 5*time.Second, 20*time.Millisecond)

	assert.GreaterOrEqual(t, broker.identifyCount(), 2)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, transitions, false)
	assert.GreaterOrEqual(t, len(transitions), 3) // up, down, up again
}

func TestConnectionManager_CloseIsIdempotent(t *testing.T) {
	broker := newTestBroker(1)
	defer broker.close()

	cm := NewConnectionManager(broker.url(), 100*time.Millisecond, logger.NewNop())

	cm.Open("user-1")
	require.Eventually(t, func() bool {
		return cm.IsConnected()
	}, 2*time.Second, 10*time.Millisecond)

	cm.Close()
	assert.Equal(t, StateDisconnected, cm.State())
	assert.False(t, cm.IsConnected())

	assert.NotPanics(t, func() { cm.Close() })
}

func TestConnectionManager_SendWhileDisconnectedIsDropped(t *testing.T) {
	cm := NewConnectionManager("ws://127.0.0.1:1/ws", 100*time.Millisecond, logger.NewNop())

	// Dropped, not queued, and not an error
	assert.NoError(t, cm.Send("ping", nil))
}
