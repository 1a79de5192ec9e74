// Package cart maintains the single-vendor shopping cart.
//
// A Store holds an ordered list of line items that all belong to one
// vendor. Every mutation is persisted to durable storage before other
// instances are notified, and a Store fully reloads from storage when
// another instance (or another process sharing a DiskStore) writes, so
// every mounted view of the cart stays consistent without merging deltas.
//
// Adding an item from a different vendor never silently clears or mixes
// the cart: AddItem reports a conflict carrying the pending item, and the
// caller decides (typically after confirming with the user) whether to
// call ReplaceWithItem or abandon the add.
package cart
