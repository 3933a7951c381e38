// Package mirror holds the in-process copies of remote state that the
// client renders from. Every mutation is synchronous and visible to readers
// as soon as it returns; pairing it with a remote write is the caller's job.
package mirror

import (
	"slices"
	"sync"
)

// Keyed is implemented by every record a Store can hold.
type Keyed interface {
	Key() string
}

// Store is an ordered collection of records with unique keys.
type Store[T Keyed] struct {
	mu        sync.RWMutex
	items     []T
	listeners map[int]func([]T)
	nextID    int
	version   uint64

	// notifyMu serializes delivery; delivered is the newest version sent.
	notifyMu  sync.Mutex
	delivered uint64
}

func NewStore[T Keyed]() *Store[T] {
	return &Store[T]{listeners: make(map[int]func([]T))}
}

// Add appends item, or replaces the record with the same key in place so
// keys stay unique and order is preserved.
func (s *Store[T]) Add(item T) {
	s.mu.Lock()
	if i := s.indexLocked(item.Key()); i >= 0 {
		s.items[i] = item
	} else {
		s.items = append(s.items, item)
	}
	s.notifyLocked()
}

// Remove drops the record with the given key and reports whether it existed.
func (s *Store[T]) Remove(key string) bool {
	s.mu.Lock()
	i := s.indexLocked(key)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = slices.Delete(slices.Clone(s.items), i, i+1)
	s.notifyLocked()
	return true
}

// Patch replaces the matching record with merge(record). Records with other
// keys and the sequence order are untouched. It reports whether a record
// matched.
func (s *Store[T]) Patch(key string, merge func(T) T) bool {
	s.mu.Lock()
	i := s.indexLocked(key)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	items := slices.Clone(s.items)
	items[i] = merge(items[i])
	s.items = items
	s.notifyLocked()
	return true
}

// ReplaceAll installs a full snapshot. When the snapshot repeats a key the
// last value wins at the first position.
func (s *Store[T]) ReplaceAll(items []T) {
	deduped := make([]T, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, item := range items {
		if i, ok := seen[item.Key()]; ok {
			deduped[i] = item
			continue
		}
		seen[item.Key()] = len(deduped)
		deduped = append(deduped, item)
	}
	s.mu.Lock()
	s.items = deduped
	s.notifyLocked()
}

// Reset empties the store. Subscribers stay registered.
func (s *Store[T]) Reset() { s.ReplaceAll(nil) }

func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(key); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// List returns a copy of the current sequence.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Subscribe registers fn to receive the full sequence after every mutation.
// Deliveries are serialized and never go back in time: a snapshot older
// than one already delivered is dropped. fn may read the store but must
// not mutate it. The returned func unregisters it.
func (s *Store[T]) Subscribe(fn func([]T)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store[T]) indexLocked(key string) int {
	return slices.IndexFunc(s.items, func(item T) bool { return item.Key() == key })
}

// notifyLocked releases the lock before calling listeners so they may read
// the store.
func (s *Store[T]) notifyLocked() {
	s.version++
	version := s.version
	snapshot := slices.Clone(s.items)
	fns := make([]func([]T), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if version <= s.delivered {
		return
	}
	s.delivered = version
	for _, fn := range fns {
		fn(snapshot)
	}
}
