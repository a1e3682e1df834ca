package catalog

import "sync"

// observable is a value holder screens can read or subscribe to. Each
// subscriber has a capacity-1 channel with latest-wins delivery: a slow
// reader only ever sees the newest value, never a backlog of stale ones.
type observable[T any] struct {
	mu    sync.RWMutex
	value T
	subs  map[int]chan T
	next  int
}

func newObservable[T any](initial T) *observable[T] {
	return &observable[T]{
		value: initial,
		subs:  map[int]chan T{},
	}
}

// Get returns the current value.
func (o *observable[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Set replaces the current value and notifies every subscriber.
func (o *observable[T]) Set(value T) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.value = value
	for _, ch := range o.subs {
		select {
		case ch <- value:
			continue
		default:
		}
		// Channel full: replace the superseded value.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- value:
		default:
		}
	}
}

// Subscribe registers a listener primed with the current value. The
// returned func unsubscribes and closes the channel.
func (o *observable[T]) Subscribe() (<-chan T, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.next
	o.next++

	ch := make(chan T, 1)
	ch <- o.value
	o.subs[id] = ch

	cancel := func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if sub, ok := o.subs[id]; ok {
			delete(o.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}
