package storage

import (
	"sync"
	"sync/atomic"
)

var subIDCounter uint64

// subscriberSet provides subscriber management shared by the store backends.
// It is embedded in MemoryStore and DiskStore.
type subscriberSet struct {
	mu   sync.RWMutex
	subs map[uint64]Subscriber
}

// add registers a subscriber and returns its removal func.
func (s *subscriberSet) add(fn Subscriber) func() {
	if fn == nil {
		return func() {}
	}

	id := atomic.AddUint64(&subIDCounter, 1)

	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[uint64]Subscriber)
	}
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// notify delivers ev to every subscriber.
// Uses copy-before-notify to avoid holding the lock during callbacks.
func (s *subscriberSet) notify(ev Event) {
	s.mu.RLock()
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
