package events

import (
	"sync"
	"testing"
)

// mockSubscriber implements Subscriber for testing.
type mockSubscriber struct {
	mu       sync.Mutex
	events   []Event
	isClosed bool
}

func (m *mockSubscriber) Receive(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockSubscriber) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isClosed
}

func (m *mockSubscriber) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Event, len(m.events))
	copy(cp, m.events)
	return cp
}

func TestBusEmitToPlayer(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{}

	bus.Subscribe("Bob", sub)

	bus.Emit(Event{Type: EvSay, Player: "Bob", Source: "Bob", Text: "Hello world"})

	evs := sub.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	if evs[0].Text != "Hello world" {
		t.Errorf("expected text %q, got %q", "Hello world", evs[0].Text)
	}
	if evs[0].Type != EvSay {
		t.Errorf("expected type EvSay, got %v", evs[0].Type)
	}
}

func TestBusGlobalSubscriber(t *testing.T) {
	bus := NewBus()
	global := &mockSubscriber{}
	bus.SubscribeGlobal(global)

	bus.Emit(Event{Type: EvSay, Player: "Alice", Room: "The Foyer", Text: "test msg"})

	evs := global.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 global event, got %d", len(evs))
	}
	if evs[0].Room != "The Foyer" {
		t.Errorf("expected room %q, got %q", "The Foyer", evs[0].Room)
	}
}

func TestBusEmitToPlayers(t *testing.T) {
	bus := NewBus()
	bob := &mockSubscriber{}
	alice := &mockSubscriber{}
	global := &mockSubscriber{}

	bus.Subscribe("Bob", bob)
	bus.Subscribe("Alice", alice)
	bus.SubscribeGlobal(global)

	bus.EmitToPlayers([]string{"Bob", "Alice"}, Event{Type: EvMove, Source: "Carol", Text: "Carol went north"})

	if got := len(bob.Events()); got != 1 {
		t.Errorf("bob: expected 1 event, got %d", got)
	}
	if got := len(alice.Events()); got != 1 {
		t.Errorf("alice: expected 1 event, got %d", got)
	}
	// Global subscribers see the fan-out once, not per recipient.
	if got := len(global.Events()); got != 1 {
		t.Errorf("global: expected 1 event, got %d", got)
	}
	if bob.Events()[0].Player != "Bob" {
		t.Errorf("expected recipient Bob, got %q", bob.Events()[0].Player)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{}

	bus.Subscribe("Bob", sub)
	bus.Unsubscribe("Bob", sub)
	bus.Emit(Event{Type: EvText, Player: "Bob", Text: "gone"})

	if got := len(sub.Events()); got != 0 {
		t.Errorf("expected no events after unsubscribe, got %d", got)
	}
	if got := bus.PlayerSubscribers("Bob"); got != 0 {
		t.Errorf("expected 0 subscribers, got %d", got)
	}
}

func TestBusSkipsClosedSubscribers(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{isClosed: true}

	bus.Subscribe("Bob", sub)
	bus.Emit(Event{Type: EvText, Player: "Bob", Text: "never delivered"})

	if got := len(sub.Events()); got != 0 {
		t.Errorf("expected no events for closed subscriber, got %d", got)
	}

	bus.Cleanup()
	if got := bus.PlayerSubscribers("Bob"); got != 0 {
		t.Errorf("expected cleanup to drop closed subscriber, got %d", got)
	}
}
