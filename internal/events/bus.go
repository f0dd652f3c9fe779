package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event types published on the bus.
const (
	SignalGenerated     = "SIGNAL_GENERATED"
	SignalStatusChanged = "SIGNAL_STATUS_CHANGED"
	ScanComplete        = "SCAN_COMPLETE"
)

// Event is a single occurrence published to subscribers.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Bus is an in-process publish/subscribe hub. Publishing never blocks: a
// subscriber that falls behind loses events rather than stalling the
// publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
	closed      bool
	log         zerolog.Logger
}

// NewBus creates an event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string][]chan Event),
		log:         log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers for the given event types and returns the delivery
// channel. The channel is buffered; events overflowing the buffer are
// dropped for that subscriber.
func (b *Bus) Subscribe(types ...string) <-chan Event {
	ch := make(chan Event, 64)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range types {
		b.subscribers[t] = append(b.subscribers[t], ch)
	}
	return ch
}

// Publish delivers an event to every subscriber of its type.
func (b *Bus) Publish(eventType string, data interface{}) {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, ch := range b.subscribers[eventType] {
		select {
		case ch <- event:
		default:
			b.log.Warn().Str("event_type", eventType).Msg("subscriber buffer full, event dropped")
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true

	seen := make(map[chan Event]bool)
	for _, chans := range b.subscribers {
		for _, ch := range chans {
			if !seen[ch] {
				seen[ch] = true
				close(ch)
			}
		}
	}
	b.subscribers = nil
}
