package coordinator

import (
	"log/slog"
	"slices"
	"sync"
)

// Event types
const (
	EventDeviceInterviewed = "device_interviewed"
	EventDeviceRemoved     = "device_removed"
	EventDeviceConfigured  = "device_configured"
	EventAttributeReport   = "attribute_report"
	EventStateUpdate       = "state_update"
)

// Event represents a coordinator event.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StateUpdate is the Data of an EventStateUpdate: the properties a report
// produced and the merged device state.
type StateUpdate struct {
	IEEE    string         `json:"ieee"`
	Model   string         `json:"model"`
	Payload map[string]any `json:"payload"`
	State   map[string]any `json:"state"`
}

// EventHandler is a callback for events.
type EventHandler func(Event)

type subscription struct {
	types   []string // empty matches every event
	handler EventHandler
}

func (s subscription) matches(eventType string) bool {
	if len(s.types) == 0 {
		return true
	}
	return slices.Contains(s.types, eventType)
}

// EventBus provides pub/sub for coordinator events. Handlers run in the
// order they subscribed.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[uint64]subscription
	nextID uint64
	logger *slog.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		subs:   make(map[uint64]subscription),
		logger: logger,
	}
}

// On registers a handler for the given event types. Returns an unsubscribe
// function.
func (eb *EventBus) On(eventType string, handler EventHandler, more ...string) func() {
	return eb.subscribe(subscription{types: append([]string{eventType}, more...), handler: handler})
}

// OnAll registers a handler that receives all events.
func (eb *EventBus) OnAll(handler EventHandler) func() {
	return eb.subscribe(subscription{handler: handler})
}

func (eb *EventBus) subscribe(sub subscription) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	id := eb.nextID
	eb.nextID++
	eb.subs[id] = sub
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		delete(eb.subs, id)
	}
}

// Emit calls every matching handler synchronously. A panicking handler is
// logged and does not stop the others.
func (eb *EventBus) Emit(event Event) {
	eb.mu.RLock()
	ids := make([]uint64, 0, len(eb.subs))
	for id, sub := range eb.subs {
		if sub.matches(event.Type) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	handlers := make([]EventHandler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, eb.subs[id].handler)
	}
	eb.mu.RUnlock()

	for _, h := range handlers {
		eb.call(h, event)
	}
}

func (eb *EventBus) call(h EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error("event handler panic", "type", event.Type, "panic", r)
		}
	}()
	h(event)
}
