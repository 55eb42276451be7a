package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus(nil)
	var got []string

	bus.Subscribe(func(TimerChanged) { got = append(got, "list") })
	bus.Subscribe(func(TimerChanged) { got = append(got, "dashboard") })

	bus.Publish(TimerChanged{At: time.Now()})

	assert.Equal(t, []string{"list", "dashboard"}, got)
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	bus := NewBus(nil)
	calls := 0

	unsubscribe := bus.Subscribe(func(TimerChanged) { calls++ })
	other := bus.Subscribe(func(TimerChanged) {})
	assert.Equal(t, 2, bus.Len())

	unsubscribe()
	unsubscribe()
	bus.Publish(TimerChanged{})

	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, bus.Len())
	other()
	assert.Equal(t, 0, bus.Len())
}

func TestBus_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(nil)
	delivered := false

	bus.Subscribe(func(TimerChanged) { panic("boom") })
	bus.Subscribe(func(TimerChanged) { delivered = true })

	assert.NotPanics(t, func() { bus.Publish(TimerChanged{}) })
	assert.True(t, delivered)
}

func TestBus_HandlerMayUnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus(nil)
	calls := 0

	var unsubscribe func()
	unsubscribe = bus.Subscribe(func(TimerChanged) {
		calls++
		unsubscribe()
	})

	bus.Publish(TimerChanged{})
	bus.Publish(TimerChanged{})

	assert.Equal(t, 1, calls)
}
