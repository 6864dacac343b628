package soa

import (
	"fmt"
	"sync"
)

// Listener receives every value a service notifies.
type Listener[V any] interface {
	ProcessAdd(V) error
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc[V any] func(V) error

func (f ListenerFunc[V]) ProcessAdd(v V) error { return f(v) }

// Service is the contract shared by every keyed service in the desk.
type Service[K comparable, V any] interface {
	GetData(key K) (V, error)
	OnMessage(v V) error
	AddListener(l Listener[V])
	Listeners() []Listener[V]
}

// Store keeps the latest value per key and the listeners of a service.
// Notify runs on the caller's goroutine, in registration order, and never
// holds the store lock while a listener runs so listeners may re-enter.
type Store[K comparable, V any] struct {
	mu        sync.RWMutex
	data      map[K]V
	listeners []Listener[V]
	keyOf     func(V) K
}

// NewStore creates an empty store keyed by keyOf.
func NewStore[K comparable, V any](keyOf func(V) K) *Store[K, V] {
	return &Store[K, V]{
		data:  make(map[K]V),
		keyOf: keyOf,
	}
}

// GetData returns the current value for key, or ErrNotFound.
func (s *Store[K, V]) GetData(key K) (V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		var zero V
		return zero, fmt.Errorf("%v: %w", key, ErrNotFound)
	}
	return v, nil
}

// Put stores v under its natural key, replacing any previous value.
func (s *Store[K, V]) Put(v V) K {
	key := s.keyOf(v)

	s.mu.Lock()
	s.data[key] = v
	s.mu.Unlock()
	return key
}

// Insert stores v only when its key is free, otherwise it returns ErrExists
// and leaves the stored value untouched.
func (s *Store[K, V]) Insert(v V) (K, error) {
	key := s.keyOf(v)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return key, fmt.Errorf("%v: %w", key, ErrExists)
	}
	s.data[key] = v
	return key, nil
}

// Update applies fn to the stored value for key under the write lock.
// The value is written back only if fn returns true.
func (s *Store[K, V]) Update(key K, fn func(*V) bool) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	if !ok {
		var zero V
		return zero, fmt.Errorf("%v: %w", key, ErrNotFound)
	}
	if fn(&v) {
		s.data[key] = v
	}
	return v, nil
}

// OnMessage stores v and notifies listeners.
func (s *Store[K, V]) OnMessage(v V) error {
	s.Put(v)
	return s.Notify(v)
}

// AddListener registers a downstream consumer.
func (s *Store[K, V]) AddListener(l Listener[V]) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Listeners returns a copy of the registered listeners.
func (s *Store[K, V]) Listeners() []Listener[V] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Listener[V], len(s.listeners))
	copy(out, s.listeners)
	return out
}

// Notify invokes ProcessAdd on each listener in registration order.
// The first failure aborts the remaining listeners and is returned as a
// *ListenerError.
func (s *Store[K, V]) Notify(v V) error {
	for i, l := range s.Listeners() {
		if err := l.ProcessAdd(v); err != nil {
			return &ListenerError{Index: i, Err: err}
		}
	}
	return nil
}

// Len returns the number of stored keys.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Values returns a snapshot of all stored values in no particular order.
func (s *Store[K, V]) Values() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]V, 0, len(s.data))
	for _, v := range s.data {
		out = append(out, v)
	}
	return out
}
