package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"zigbee-catalog/internal/coordinator"
)

func startHub(t *testing.T) *WSHub {
	t.Helper()
	hub := NewWSHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func waitClients(t *testing.T, hub *WSHub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.Clients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", hub.Clients(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func receive(t *testing.T, c *wsClient) coordinator.Event {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("client channel closed")
		}
		var event coordinator.Event
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatal(err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
	return coordinator.Event{}
}

func assertSilent(t *testing.T, c *wsClient) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Errorf("unexpected message %s", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestWSHubRegisterUnregister(t *testing.T) {
	hub := startHub(t)
	client := &wsClient{send: make(chan []byte, 16)}

	hub.register <- client
	waitClients(t, hub, 1)

	hub.unregister <- client
	waitClients(t, hub, 0)

	if _, ok := <-client.send; ok {
		t.Error("send channel still open after unregister")
	}
}

func TestWSHubBroadcast(t *testing.T) {
	hub := startHub(t)
	c1 := &wsClient{send: make(chan []byte, 16)}
	c2 := &wsClient{send: make(chan []byte, 16)}
	hub.register <- c1
	hub.register <- c2
	waitClients(t, hub, 2)

	hub.Broadcast(coordinator.Event{Type: coordinator.EventDeviceRemoved, Data: map[string]any{"ieee": "0x01"}})

	for _, c := range []*wsClient{c1, c2} {
		event := receive(t, c)
		if event.Type != coordinator.EventDeviceRemoved {
			t.Errorf("type = %q", event.Type)
		}
	}
}

func TestWSHubTypeFilter(t *testing.T) {
	hub := startHub(t)
	filtered := &wsClient{send: make(chan []byte, 16), types: map[string]bool{coordinator.EventStateUpdate: true}}
	hub.register <- filtered
	waitClients(t, hub, 1)

	hub.Broadcast(coordinator.Event{Type: coordinator.EventAttributeReport})
	hub.Broadcast(coordinator.Event{Type: coordinator.EventStateUpdate, Data: map[string]any{"power": 1.0}})

	if event := receive(t, filtered); event.Type != coordinator.EventStateUpdate {
		t.Errorf("type = %q, want %q", event.Type, coordinator.EventStateUpdate)
	}
	assertSilent(t, filtered)
}

func TestWSHubSlowClientEviction(t *testing.T) {
	hub := startHub(t)
	slow := &wsClient{send: make(chan []byte, 1)}
	fast := &wsClient{send: make(chan []byte, 64)}
	hub.register <- slow
	hub.register <- fast
	waitClients(t, hub, 2)

	// The first event fills the slow buffer, the second evicts it.
	hub.Broadcast(coordinator.Event{Type: coordinator.EventStateUpdate})
	hub.Broadcast(coordinator.Event{Type: coordinator.EventStateUpdate})
	waitClients(t, hub, 1)

	hub.mu.RLock()
	_, fastPresent := hub.clients[fast]
	hub.mu.RUnlock()
	if !fastPresent {
		t.Error("fast client was evicted")
	}
}

func TestWSHubBroadcastDropsWhenFull(t *testing.T) {
	// Not running, so nothing drains the queue.
	hub := NewWSHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for i := 0; i < cap(hub.broadcast); i++ {
		hub.Broadcast(coordinator.Event{Type: coordinator.EventAttributeReport, Data: i})
	}

	done := make(chan struct{})
	go func() {
		hub.Broadcast(coordinator.Event{Type: "overflow"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full queue")
	}
}

func TestWSHubStop(t *testing.T) {
	hub := NewWSHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	stopped := make(chan struct{})
	go func() {
		hub.Run()
		close(stopped)
	}()

	client := &wsClient{send: make(chan []byte, 16)}
	hub.register <- client
	waitClients(t, hub, 1)

	hub.Stop()
	hub.Stop()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if _, ok := <-client.send; ok {
		t.Error("client channel still open after Stop")
	}
}

func TestWSHubUnregisterUnknownClient(t *testing.T) {
	hub := startHub(t)
	unknown := &wsClient{send: make(chan []byte, 16)}
	hub.unregister <- unknown
	waitClients(t, hub, 0)

	select {
	case unknown.send <- []byte("still open"):
	default:
		t.Error("channel of an unregistered client was touched")
	}
}
