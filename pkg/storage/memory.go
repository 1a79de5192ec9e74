package storage

import "sync"

// MemoryStore is an in-process Store.
// All state stores constructed over the same MemoryStore observe each
// other's writes through the shared subscriber set.
type MemoryStore struct {
	subscriberSet

	mu     sync.RWMutex
	values map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
	}
}

// Get returns the stored value for key.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false
	}
	// Copy so callers can't mutate the durable copy in place.
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

// Set stores value under key and notifies subscribers.
func (s *MemoryStore) Set(key string, value []byte, origin string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored
	s.mu.Unlock()

	s.notify(Event{Key: key, Origin: origin})
	return nil
}

// Delete removes key and notifies subscribers.
func (s *MemoryStore) Delete(key string, origin string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	delete(s.values, key)
	s.mu.Unlock()

	s.notify(Event{Key: key, Origin: origin})
	return nil
}

// Subscribe registers fn for future change events.
func (s *MemoryStore) Subscribe(fn Subscriber) func() {
	return s.add(fn)
}

// Close marks the store closed. Reads keep working; writes fail.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
