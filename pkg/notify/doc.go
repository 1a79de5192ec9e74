// Package notify maintains the unread-notification feed and its realtime
// inbound channel.
//
// The Feed is a bounded, most-recent-first display list: newly arrived
// messages are prepended, a message whose id is already present is
// dropped, and the list is capped at a fixed size. The Socket is a thin
// websocket consumer that decodes the backend's notification events and
// merges them into a Feed; the wire protocol is the backend's and is
// treated as an opaque JSON stream.
package notify
