package websocket

import (
	"encoding/json"
	"reflect"
	"sync"

	"notification-system/internal/domain"
	"notification-system/pkg/logger"
)

// SubscriptionRegistry maps event names to handlers independently of
// connection state: handlers registered before any connection exists are
// simply kept and fire once events start flowing, so nothing is lost across
// connects or reconnects. Registration is idempotent per (event, handler)
// pair and removal of an unknown pair is a no-op.
type SubscriptionRegistry struct {
	mu          sync.RWMutex
	handlers    map[string][]registration
	anyHandlers []registration
	log         logger.Logger
}

// Handlers are identified by function pointer so the same pair can be
// registered repeatedly (for example on every reconnect) without firing
// twice per event.
type registration struct {
	key     uintptr
	handler domain.EventHandler
}

func handlerKey(handler domain.EventHandler) uintptr {
	return reflect.ValueOf(handler).Pointer()
}

func NewSubscriptionRegistry(log logger.Logger) *SubscriptionRegistry {
	return &SubscriptionRegistry{
		handlers: make(map[string][]registration),
		log:      log,
	}
}

func (r *SubscriptionRegistry) On(event string, handler domain.EventHandler) {
	if handler == nil || event == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := handlerKey(handler)
	for _, reg := range r.handlers[event] {
		if reg.key == key {
			return
		}
	}
	r.handlers[event] = append(r.handlers[event], registration{key: key, handler: handler})
}

func (r *SubscriptionRegistry) Off(event string, handler domain.EventHandler) {
	if handler == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := handlerKey(handler)
	regs := r.handlers[event]
	for i, reg := range regs {
		if reg.key == key {
			r.handlers[event] = append(regs[:i], regs[i+1:]...)
			break
		}
	}
	if len(r.handlers[event]) == 0 {
		delete(r.handlers, event)
	}
}

// OnAny registers a wildcard observer invoked for every event regardless of
// name. Wildcards are for diagnostics only; business logic subscribes by
// name so an event is never processed through two paths.
func (r *SubscriptionRegistry) OnAny(handler domain.EventHandler) {
	if handler == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := handlerKey(handler)
	for _, reg := range r.anyHandlers {
		if reg.key == key {
			return
		}
	}
	r.anyHandlers = append(r.anyHandlers, registration{key: key, handler: handler})
}

func (r *SubscriptionRegistry) OffAny(handler domain.EventHandler) {
	if handler == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := handlerKey(handler)
	for i, reg := range r.anyHandlers {
		if reg.key == key {
			r.anyHandlers = append(r.anyHandlers[:i], r.anyHandlers[i+1:]...)
			return
		}
	}
}

// Dispatch routes one inbound event to its named handlers and then to the
// wildcard observers. Handlers run on the caller's goroutine, so delivery
// order follows arrival order on the connection.
func (r *SubscriptionRegistry) Dispatch(event string, data json.RawMessage) {
	r.mu.RLock()
	named := make([]registration, len(r.handlers[event]))
	copy(named, r.handlers[event])
	wildcard := make([]registration, len(r.anyHandlers))
	copy(wildcard, r.anyHandlers)
	r.mu.RUnlock()

	for _, reg := range named {
		reg.handler(event, data)
	}
	for _, reg := range wildcard {
		reg.handler(event, data)
	}
}

// HandlerCount reports how many named handlers are registered for an event.
func (r *SubscriptionRegistry) HandlerCount(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[event])
}
