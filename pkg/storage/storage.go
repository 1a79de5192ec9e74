package storage

import "errors"

// Well-known keys shared by the state stores.
// Writers must treat read-modify-write as the only mutation pattern at
// these keys; partial-field updates at the storage layer are not allowed.
const (
	KeyCartItems    = "cart"
	KeyCartVendorID = "cartVendorId"
	KeyToken        = "token"
	KeyUser         = "user"
	KeyTheme        = "theme"
)

// ErrClosed is returned when operations are attempted on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// Event describes one durable write.
type Event struct {
	// Key is the storage key that changed.
	Key string

	// Origin identifies the writer. Subscribers that wrote the value
	// themselves can use it to skip redundant reloads.
	Origin string
}

// Subscriber receives change events. Callbacks run synchronously on the
// writer's goroutine and must not call back into the store's mutators.
type Subscriber func(Event)

// Store is durable key/value persistence with change notification.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the stored value for key.
	// Returns (nil, false) if the key is absent.
	Get(key string) ([]byte, bool)

	// Set stores value under key and notifies all subscribers.
	// origin is recorded on the resulting Event.
	Set(key string, value []byte, origin string) error

	// Delete removes key and notifies all subscribers.
	// Deleting an absent key still notifies; callers rely on the
	// notify-then-reload pattern, not on delta information.
	Delete(key string, origin string) error

	// Subscribe registers fn for all future events. The returned func
	// removes the registration.
	Subscribe(fn Subscriber) (cancel func())

	// Close releases resources. Subsequent writes return ErrClosed.
	Close() error
}
