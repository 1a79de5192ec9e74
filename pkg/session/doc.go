// Package session owns the authentication token and current-user identity.
//
// A Store is the single source of truth for "who is logged in". Login and
// Register set the token and normalized user atomically from the backend's
// auth payload and persist both; the persisted copy is a cache used to
// restore state across restarts, never an authority during a live session.
// Logout calls the backend invalidation endpoint best-effort and always
// clears local state. The Store also tolerates being cleared out-of-band
// by the HTTP client's ambient-401 teardown.
package session
