package cart

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/campuseats-dev/campuseats/pkg/metrics"
	"github.com/campuseats-dev/campuseats/pkg/storage"
)

// Item is one cart line item. Quantity and VendorID are expected to be
// >= 1 when passed to AddItem (a zero VendorID is the empty-cart
// sentinel and would bypass the vendor check); the store does not
// validate these preconditions.
type Item struct {
	MenuItemID int64   `json:"menuItemId"`
	Name       string  `json:"name"`
	UnitPrice  float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	VendorID   int64   `json:"vendorId"`
	VendorName string  `json:"vendorName,omitempty"`
	ImageURL   string  `json:"imageUrl,omitempty"`
}

// AddResult is the outcome of AddItem.
type AddResult struct {
	// Conflict is set when the cart already holds another vendor's items.
	// The cart is unchanged; Pending carries the requested item so the
	// caller can invoke ReplaceWithItem after confirming with the user.
	Conflict bool

	// Pending is the requested item. Only meaningful when Conflict is set.
	Pending Item
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetrics attaches the metrics bundle.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// Store is the cart state manager. Reads are safe from any goroutine;
// mutations are expected one at a time per process. Change notification
// is synchronous, so two instances over the same storage mutating
// concurrently from different goroutines could each block on the other's
// reload.
type Store struct {
	storage storage.Store
	origin  string
	logger  *slog.Logger
	metrics *metrics.Metrics
	cancel  func()

	mu       sync.RWMutex
	items    []Item
	vendorID int64 // 0 when the cart is empty
}

// New creates a Store over the given durable storage, restoring any
// persisted cart and subscribing to change events from other instances.
func New(store storage.Store, opts ...Option) *Store {
	s := &Store{
		storage: store,
		origin:  uuid.NewString(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.reload()
	s.cancel = store.Subscribe(s.onStorageEvent)
	return s
}

// Close unsubscribes from storage events. The persisted cart is kept.
func (s *Store) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// AddItem adds item to the cart.
//
// An empty cart accepts any item and adopts its vendor. A cart holding the
// same vendor either bumps the quantity of an existing line (same
// MenuItemID) or appends a new one. A cart holding a different vendor is
// left untouched and the conflict is reported to the caller.
func (s *Store) AddItem(item Item) AddResult {
	s.mu.Lock()

	if s.vendorID != 0 && s.vendorID != item.VendorID {
		s.mu.Unlock()
		return AddResult{Conflict: true, Pending: item}
	}

	found := false
	for i := range s.items {
		if s.items[i].MenuItemID == item.MenuItemID {
			s.items[i].Quantity += item.Quantity
			found = true
			break
		}
	}
	if !found {
		s.items = append(s.items, item)
	}
	s.vendorID = item.VendorID
	s.persistLocked()
	s.mu.Unlock()

	s.metrics.IncCartMutation("add")
	return AddResult{}
}

// ReplaceWithItem clears the cart and adds item, adopting its vendor.
// This is the confirmed resolution of a vendor conflict.
func (s *Store) ReplaceWithItem(item Item) {
	s.mu.Lock()
	s.items = []Item{item}
	s.vendorID = item.VendorID
	s.persistLocked()
	s.mu.Unlock()

	s.metrics.IncCartMutation("replace")
}

// RemoveItem removes the line item with the given menu item id.
// Removing an id not in the cart is a no-op. Removing the last item
// resets the vendor.
func (s *Store) RemoveItem(menuItemID int64) {
	s.mu.Lock()
	changed := false
	for i := range s.items {
		if s.items[i].MenuItemID == menuItemID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			changed = true
			break
		}
	}
	if !changed {
		s.mu.Unlock()
		return
	}
	if len(s.items) == 0 {
		s.vendorID = 0
	}
	s.persistLocked()
	s.mu.Unlock()

	s.metrics.IncCartMutation("remove")
}

// UpdateQuantity sets the quantity of the line item with the given menu
// item id. A quantity <= 0 behaves exactly like RemoveItem. Updating an
// id not in the cart is a no-op.
func (s *Store) UpdateQuantity(menuItemID int64, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(menuItemID)
		return
	}

	s.mu.Lock()
	changed := false
	for i := range s.items {
		if s.items[i].MenuItemID == menuItemID {
			s.items[i].Quantity = quantity
			changed = true
			break
		}
	}
	if !changed {
		s.mu.Unlock()
		return
	}
	s.persistLocked()
	s.mu.Unlock()

	s.metrics.IncCartMutation("quantity")
}

// Clear empties the cart, resets the vendor, and clears persisted storage.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.vendorID = 0
	if err := s.storage.Delete(storage.KeyCartItems, s.origin); err != nil {
		s.logger.Warn("cart: clear persist failed", "error", err)
	}
	if err := s.storage.Delete(storage.KeyCartVendorID, s.origin); err != nil {
		s.logger.Warn("cart: clear persist failed", "error", err)
	}
	s.mu.Unlock()

	s.metrics.IncCartMutation("clear")
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// VendorID returns the cart's vendor. ok is false when the cart is empty.
func (s *Store) VendorID() (id int64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vendorID, s.vendorID != 0
}

// Total returns the sum of UnitPrice * Quantity over all line items.
// Delivery fees are a checkout concern and are not included.
func (s *Store) Total() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for _, item := range s.items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// ItemCount returns the sum of all quantities, for badge displays.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// persistLocked writes items and vendor id to durable storage.
// Caller holds s.mu.
func (s *Store) persistLocked() {
	data, err := json.Marshal(s.items)
	if err != nil {
		s.logger.Warn("cart: marshal failed", "error", err)
		return
	}
	if err := s.storage.Set(storage.KeyCartItems, data, s.origin); err != nil {
		s.logger.Warn("cart: persist failed", "error", err)
	}

	if s.vendorID != 0 {
		v := []byte(strconv.FormatInt(s.vendorID, 10))
		if err := s.storage.Set(storage.KeyCartVendorID, v, s.origin); err != nil {
			s.logger.Warn("cart: persist failed", "error", err)
		}
	} else {
		if err := s.storage.Delete(storage.KeyCartVendorID, s.origin); err != nil {
			s.logger.Warn("cart: persist failed", "error", err)
		}
	}
}

// onStorageEvent reloads the cart when another instance writes it.
// The durable copy is last-writer-wins; no delta merging.
func (s *Store) onStorageEvent(ev storage.Event) {
	if ev.Origin == s.origin {
		return
	}
	if ev.Key != storage.KeyCartItems && ev.Key != storage.KeyCartVendorID {
		return
	}
	s.reload()
}

// reload replaces in-memory state with the durable copy. Corrupted or
// unparseable payloads fall back to the empty cart.
func (s *Store) reload() {
	var items []Item
	if data, ok := s.storage.Get(storage.KeyCartItems); ok {
		if err := json.Unmarshal(data, &items); err != nil {
			s.logger.Warn("cart: corrupted persisted cart, resetting", "error", err)
			items = nil
		}
	}

	var vendorID int64
	if data, ok := s.storage.Get(storage.KeyCartVendorID); ok {
		id, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			s.logger.Warn("cart: corrupted persisted vendor id, resetting", "error", err)
		} else {
			vendorID = id
		}
	}

	// Restore the invariant: no items means no vendor, and a missing
	// vendor id is recovered from the items themselves.
	if len(items) == 0 {
		items = nil
		vendorID = 0
	} else if vendorID == 0 {
		vendorID = items[0].VendorID
	}

	s.mu.Lock()
	s.items = items
	s.vendorID = vendorID
	s.mu.Unlock()
}
