package event

import (
	"reflect"
	"sync"
)

// Bus is a typed publish/subscribe bus. Delivery is synchronous and safe
// from any goroutine: settle timers, session handlers and the service loop
// all publish directly rather than queueing for a tick.
type Bus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[reflect.Type][]any)}
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// Publish delivers the event to every subscribed handler of type T, in
// registration order, on the caller's goroutine.
func Publish[T any](b *Bus, ev T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.RLock()
	handlers := b.handlers[t]
	b.mu.RUnlock()
	for _, h := range handlers {
		// Safe: Subscribe and Publish key the map by the same type.
		h.(func(T))(ev)
	}
}
