// Package pref provides persisted user preferences.
//
// Preferences are small JSON values (theme, display options) stored in
// the same durable storage as the rest of the client state, so they
// survive restarts and stay consistent across every open instance: a Set
// in one instance is observed by all others through the storage change
// bus, and the durable copy is last-writer-wins.
//
// Example:
//
//	theme := pref.New[string](st, storage.KeyTheme, "light")
//	current := theme.Get()
//	theme.Set("dark")
package pref

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/campuseats-dev/campuseats/pkg/storage"
)

// Pref is one persisted preference value.
type Pref[T any] struct {
	store    storage.Store
	key      string
	defaults T
	origin   string
	logger   *slog.Logger
	cancel   func()

	mu    sync.RWMutex
	value T
}

// Option configures a Pref.
type Option func(p interface{ setLogger(*slog.Logger) })

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p interface{ setLogger(*slog.Logger) }) {
		p.setLogger(logger)
	}
}

func (p *Pref[T]) setLogger(logger *slog.Logger) {
	p.logger = logger
}

// New creates a preference bound to key, restoring any persisted value.
// A corrupted persisted value falls back to the default.
func New[T any](store storage.Store, key string, defaultValue T, opts ...Option) *Pref[T] {
	p := &Pref[T]{
		store:    store,
		key:      key,
		defaults: defaultValue,
		origin:   uuid.NewString(),
		logger:   slog.Default(),
		value:    defaultValue,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.reload()
	p.cancel = store.Subscribe(p.onStorageEvent)
	return p
}

// Close unsubscribes from storage events.
func (p *Pref[T]) Close() {
	if p.cancel != nil {
		p.cancel()
	}
}

// Key returns the preference key.
func (p *Pref[T]) Key() string {
	return p.key
}

// Get returns the current value.
func (p *Pref[T]) Get() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Set persists value and broadcasts the change to other instances.
func (p *Pref[T]) Set(value T) {
	data, err := json.Marshal(value)
	if err != nil {
		p.logger.Warn("pref: marshal failed", "key", p.key, "error", err)
		return
	}

	p.mu.Lock()
	p.value = value
	if err := p.store.Set(p.key, data, p.origin); err != nil {
		p.logger.Warn("pref: persist failed", "key", p.key, "error", err)
	}
	p.mu.Unlock()
}

// Update applies fn to the current value and persists the result.
func (p *Pref[T]) Update(fn func(T) T) {
	p.Set(fn(p.Get()))
}

// Reset restores the default value.
func (p *Pref[T]) Reset() {
	p.Set(p.defaults)
}

// reload replaces the in-memory value with the durable copy.
func (p *Pref[T]) reload() {
	value := p.defaults
	if data, ok := p.store.Get(p.key); ok {
		if err := json.Unmarshal(data, &value); err != nil {
			p.logger.Warn("pref: corrupted persisted value, resetting", "key", p.key, "error", err)
			value = p.defaults
		}
	}

	p.mu.Lock()
	p.value = value
	p.mu.Unlock()
}

// onStorageEvent reloads when another instance writes this key.
func (p *Pref[T]) onStorageEvent(ev storage.Event) {
	if ev.Key != p.key || ev.Origin == p.origin {
		return
	}
	p.reload()
}
