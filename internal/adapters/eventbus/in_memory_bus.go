package eventbus

import (
	"context"
	"sync"

	"ClipPay/internal/core/ports"

	"github.com/rs/zerolog"
)

// inMemoryEventBus implements the ports.EventBus interface
type inMemoryEventBus struct {
	log         zerolog.Logger
	subscribers map[string][]ports.EventHandler
	mu          sync.RWMutex
}

// NewInMemoryEventBus creates a new, empty event bus
func NewInMemoryEventBus(baseLogger *zerolog.Logger) ports.EventBus {
	return &inMemoryEventBus{
		log:         baseLogger.With().Str("component", "in_memory_bus").Logger(),
		subscribers: make(map[string][]ports.EventHandler),
	}
}

// Publish sends an event to all subscribers of a topic. Every handler
// runs in its own goroutine so a slow notification cannot delay the
// workflow that published the event.
func (b *inMemoryEventBus) Publish(ctx context.Context, topic string, data interface{}) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	handlers, ok := b.subscribers[topic]
	if !ok {
		// No subscribers for this topic, which is fine
		b.log.Warn().Str("topic", topic).Msg("Published event with no subscribers")
		return nil
	}

	event := ports.Event{
		Topic: topic,
		Data:  data,
	}

	for _, handler := range handlers {
		go b.dispatch(handler, event)
	}

	b.log.Debug().Str("topic", topic).Int("handlers", len(handlers)).Msg("Event published")
	return nil
}

// dispatch runs one handler. Handlers get a fresh context because the
// published state is already committed; cancelling the publisher must
// not cancel the notification. A panicking handler is contained here
// so it cannot take the process down.
func (b *inMemoryEventBus) dispatch(h ports.EventHandler, event ports.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("topic", event.Topic).Interface("panic", r).Msg("Event handler panicked")
		}
	}()
	if err := h(context.Background(), event); err != nil {
		b.log.Error().Err(err).Str("topic", event.Topic).Msg("Event handler failed")
	}
}

// Subscribe registers a handler for a specific topic
func (b *inMemoryEventBus) Subscribe(topic string, handler ports.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[topic] = append(b.subscribers[topic], handler)
	b.log.Info().Str("topic", topic).Msg("New handler subscribed to topic")
}
