package storage

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultPollInterval is how often DiskStore scans for writes made by
// other processes sharing the same directory.
const DefaultPollInterval = 250 * time.Millisecond

// DiskStore persists each key as a file in a directory. It is the
// durable backend for the terminal client: two invocations pointed at the
// same state directory observe each other's writes through the watcher.
type DiskStore struct {
	subscriberSet

	dir  string
	poll time.Duration

	mu         sync.Mutex
	timestamps map[string]time.Time
	closed     bool
	stopCh     chan struct{}
}

// DiskOption configures a DiskStore.
type DiskOption func(*DiskStore)

// WithPollInterval sets the cross-process watch interval.
// Zero disables the watcher; same-process notification still works.
func WithPollInterval(d time.Duration) DiskOption {
	return func(s *DiskStore) {
		s.poll = d
	}
}

// NewDiskStore creates a DiskStore rooted at dir, creating it if needed.
func NewDiskStore(dir string, opts ...DiskOption) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	s := &DiskStore{
		dir:        dir,
		poll:       DefaultPollInterval,
		timestamps: make(map[string]time.Time),
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Seed timestamps so pre-existing state isn't reported as a change.
	s.mu.Lock()
	s.seedLocked()
	s.mu.Unlock()

	if s.poll > 0 {
		go s.watch()
	}
	return s, nil
}

// Get returns the stored value for key.
func (s *DiskStore) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores value under key and notifies subscribers.
// The write is atomic: a temp file is renamed into place so a concurrent
// reader never sees a partial value.
func (s *DiskStore) Set(key string, value []byte, origin string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0644); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		s.mu.Unlock()
		return err
	}
	s.markSeenLocked(path)
	s.mu.Unlock()

	s.notify(Event{Key: key, Origin: origin})
	return nil
}

// Delete removes key and notifies subscribers.
func (s *DiskStore) Delete(key string, origin string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	path := s.path(key)
	os.Remove(path)
	delete(s.timestamps, path)
	s.mu.Unlock()

	s.notify(Event{Key: key, Origin: origin})
	return nil
}

// Subscribe registers fn for future change events.
func (s *DiskStore) Subscribe(fn Subscriber) func() {
	return s.add(fn)
}

// Close stops the watcher. Subsequent writes return ErrClosed.
func (s *DiskStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stopCh)
	s.mu.Unlock()
	return nil
}

// path maps a key to its file. Keys are hex-encoded so arbitrary key
// strings can't escape the state directory.
func (s *DiskStore) path(key string) string {
	return filepath.Join(s.dir, hex.EncodeToString([]byte(key))+".json")
}

// markSeenLocked records the file's current mtime so the watcher doesn't
// re-report our own write. Caller holds s.mu.
func (s *DiskStore) markSeenLocked(path string) {
	if info, err := os.Stat(path); err == nil {
		s.timestamps[path] = info.ModTime()
	}
}

// watch polls the state directory for writes made by other processes and
// broadcasts them with an empty origin.
func (s *DiskStore) watch() {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			for _, ev := range s.scan() {
				s.notify(ev)
			}
		}
	}
}

// seedLocked records current mtimes for every state file. Caller holds s.mu.
func (s *DiskStore) seedLocked() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if info, err := entry.Info(); err == nil {
			s.timestamps[filepath.Join(s.dir, entry.Name())] = info.ModTime()
		}
	}
}

// scan returns one event per externally created, modified, or deleted key.
func (s *DiskStore) scan() []Event {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}

	var events []Event

	s.mu.Lock()
	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(s.dir, name)
		present[path] = true
		last, seen := s.timestamps[path]
		if seen && !info.ModTime().After(last) {
			continue
		}
		s.timestamps[path] = info.ModTime()

		key, ok := keyFromPath(name)
		if !ok {
			continue
		}
		events = append(events, Event{Key: key})
	}

	// A tracked file that vanished is an external delete. Our own Delete
	// drops the timestamp entry up front, so only foreign removals land
	// here.
	for path := range s.timestamps {
		if present[path] {
			continue
		}
		delete(s.timestamps, path)
		key, ok := keyFromPath(filepath.Base(path))
		if !ok {
			continue
		}
		events = append(events, Event{Key: key})
	}
	s.mu.Unlock()

	return events
}

// keyFromPath decodes a state file name back into its key.
func keyFromPath(name string) (string, bool) {
	raw, err := hex.DecodeString(name[:len(name)-len(".json")])
	if err != nil {
		return "", false
	}
	return string(raw), true
}
