// Package live exposes single decoded fields as observable properties.
//
// A Property reads and writes through a binding, usually one entry of a
// field.Values instance. Set is a no-op when the new value equals the
// current one, so echoes of local edits coming back from the device do
// not notify again.
package live

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Listener receives the previous and the new value of a property.
type Listener[T any] func(old, cur T)

// Property values are read and written from a single goroutine (the device
// worker); only the listener set is safe for concurrent use.
type Property[T comparable] struct {
	name string
	get  func() T
	set  func(T) error

	mu        sync.Mutex
	listeners map[uint64]Listener[T]
	next      uint64
}

// Derived binds a property to arbitrary getter and setter functions,
// e.g. a composite of two fields.
func Derived[T comparable](name string, get func() T, set func(T) error) *Property[T] {
	if get == nil || set == nil {
		panic(fmt.Sprintf("live: %s: nil binding", name))
	}
	return &Property[T]{name: name, get: get, set: set}
}

// Value is a free-standing property holding its own value.
func Value[T comparable](name string, init T) *Property[T] {
	v := init
	return Derived(name,
		func() T { return v },
		func(n T) error { v = n; return nil },
	)
}

func (p *Property[T]) Name() string { return p.name }

func (p *Property[T]) Get() T {
	return p.get()
}

// Set writes v through the binding and notifies listeners with the old and
// new values. Setting the current value does nothing.
func (p *Property[T]) Set(v T) error {
	old := p.get()
	if old == v {
		return nil
	}
	if err := p.set(v); err != nil {
		return fmt.Errorf("live: set %s: %w", p.name, err)
	}
	p.mu.Lock()
	ls := make([]Listener[T], 0, len(p.listeners))
	for _, id := range p.order() {
		ls = append(ls, p.listeners[id])
	}
	p.mu.Unlock()

	for _, fn := range ls {
		p.call(fn, old, v)
	}
	return nil
}

// Subscribe registers fn and returns a function that removes it.
func (p *Property[T]) Subscribe(fn Listener[T]) (cancel func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listeners == nil {
		p.listeners = make(map[uint64]Listener[T])
	}
	id := p.next
	p.next++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// order returns listener ids in registration order.
func (p *Property[T]) order() []uint64 {
	ids := make([]uint64, 0, len(p.listeners))
	for id := uint64(0); id < p.next; id++ {
		if _, ok := p.listeners[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (p *Property[T]) call(fn Listener[T], old, v T) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("property", p.name).Interface("panic", r).Msg("listener panicked")
		}
	}()
	fn(old, v)
}

func (p *Property[T]) String() string {
	return fmt.Sprintf("%s=%v", p.name, p.Get())
}
