// Package storage provides durable client-side key/value persistence with
// change notification.
//
// Every write to a Store is broadcast to all local subscribers, regardless
// of which instance (or, for DiskStore, which process) performed the write.
// Stores that cache values in memory reload from the durable copy when
// notified; the durable copy is the last-writer-wins source of truth.
//
// Two backends are provided:
//
//   - MemoryStore: in-process persistence. Several state stores sharing one
//     MemoryStore model several mounted views of the same client.
//   - DiskStore: file-per-key persistence for the terminal client, with a
//     polling watcher that picks up writes from other processes.
package storage
