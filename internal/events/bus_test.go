package events

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer bus.Close()

	ch := bus.Subscribe(SignalGenerated)
	bus.Publish(SignalGenerated, "payload")

	select {
	case event := <-ch:
		if event.Type != SignalGenerated {
			t.Errorf("type = %s, want %s", event.Type, SignalGenerated)
		}
		if event.Data != "payload" {
			t.Errorf("data = %v, want payload", event.Data)
		}
		if event.ID == "" {
			t.Error("expected a generated event ID")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusFiltersByType(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer bus.Close()

	ch := bus.Subscribe(ScanComplete)
	bus.Publish(SignalGenerated, nil)

	select {
	case event := <-ch:
		t.Fatalf("unexpected delivery of %s", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer bus.Close()

	bus.Subscribe(SignalGenerated)
	// Nobody drains; publishing past the buffer must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			bus.Publish(SignalGenerated, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestBusCloseStopsDelivery(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	ch := bus.Subscribe(SignalGenerated)
	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("expected subscriber channel closed")
	}

	// Publishing after close is a no-op
	bus.Publish(SignalGenerated, nil)
}
