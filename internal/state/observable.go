// Package state provides a small observable value used by the storefront
// stores to publish their state to whoever renders it.
package state

import "sync"

// Observable holds a value and notifies subscribers after every change.
//
// Notifications are delivered synchronously and in change order. A
// subscriber must not call Set or Update on the same Observable.
type Observable[T any] struct {
	notifyMu sync.Mutex

	mu      sync.RWMutex
	value   T
	version uint64
	subs    map[uint64]func(T)
	order   []uint64
	nextID  uint64
}

// New creates an Observable holding initial.
func New[T any](initial T) *Observable[T] {
	return &Observable[T]{value: initial, subs: make(map[uint64]func(T))}
}

// Get returns the current value.
func (o *Observable[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Version increases by one with every change. Consumers can poll it to
// decide when to re-read.
func (o *Observable[T]) Version() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.version
}

// Set replaces the value and notifies subscribers.
func (o *Observable[T]) Set(v T) {
	o.Update(func(T) T { return v })
}

// Update replaces the value with fn(current) atomically and notifies
// subscribers. It returns the new value.
func (o *Observable[T]) Update(fn func(T) T) T {
	v, _ := o.UpdateIf(func(cur T) (T, bool) { return fn(cur), true })
	return v
}

// UpdateIf is Update for changes that may turn out to be unwanted: when fn
// reports false the value, version and subscribers are left alone. It
// returns the resulting value and whether it changed.
func (o *Observable[T]) UpdateIf(fn func(T) (T, bool)) (T, bool) {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	o.mu.Lock()
	next, ok := fn(o.value)
	if !ok {
		v := o.value
		o.mu.Unlock()
		return v, false
	}
	o.value = next
	o.version++
	subs := o.snapshotLocked()
	o.mu.Unlock()

	for _, s := range subs {
		s(next)
	}
	return next, true
}

// Subscribe registers fn and returns a function that removes it.
func (o *Observable[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	o.order = append(o.order, id)
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subs, id)
			for i, v := range o.order {
				if v == id {
					o.order = append(o.order[:i], o.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Subscribers returns the number of registered subscribers.
func (o *Observable[T]) Subscribers() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs)
}

func (o *Observable[T]) snapshotLocked() []func(T) {
	subs := make([]func(T), 0, len(o.order))
	for _, id := range o.order {
		subs = append(subs, o.subs[id])
	}
	return subs
}
