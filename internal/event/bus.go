// Package event broadcasts "some timer changed" to any part of the
// application that wants to refetch, without telling it which task.
package event

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TimerChanged is published once per successful start or pause.
type TimerChanged struct {
	At time.Time
}

// Handler receives published events. Handlers run on the publisher's
// goroutine and should return quickly.
type Handler func(TimerChanged)

// Bus is a fire-and-forget publish/subscribe hub owned by the application
// shell. The zero value is not usable; call NewBus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[uuid.UUID]Handler
	order    []uuid.UUID
	logger   *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{handlers: make(map[uuid.UUID]Handler), logger: logger}
}

// Subscribe registers h and returns a function that removes it. The
// returned function may be called any number of times.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	id := uuid.New()

	b.mu.Lock()
	b.handlers[id] = h
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, id)
	for i, o := range b.order {
		if o == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish delivers e to every current subscriber in subscription order.
// There is no acknowledgement; a panicking handler is logged and skipped.
func (b *Bus) Publish(e TimerChanged) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h, e)
	}
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

func (b *Bus) deliver(h Handler, e TimerChanged) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("timer_changed_handler_panic", "panic", p)
		}
	}()
	h(e)
}
