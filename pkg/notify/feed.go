package notify

import "sync"

// DefaultCap is the bound on the display list.
const DefaultCap = 50

// Message is one notification event from the realtime channel.
// Only title and message are required; id and timestamp may be absent.
type Message struct {
	ID        int64  `json:"id,omitempty"`
	Type      string `json:"type,omitempty"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Reference string `json:"reference,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Feed is the bounded, most-recent-first notification list with an
// unread counter. Safe for concurrent use.
type Feed struct {
	mu       sync.RWMutex
	messages []Message
	unread   int
	cap      int
	onChange func()
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithCap overrides the display-list bound.
func WithCap(n int) FeedOption {
	return func(f *Feed) {
		if n > 0 {
			f.cap = n
		}
	}
}

// OnChange sets a callback invoked after every feed change, e.g. to
// refresh a badge.
func OnChange(fn func()) FeedOption {
	return func(f *Feed) {
		f.onChange = fn
	}
}

// NewFeed creates an empty feed.
func NewFeed(opts ...FeedOption) *Feed {
	f := &Feed{cap: DefaultCap}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Push merges msg into the feed. Messages without a title and body are
// ignored, as is a message whose id is already present. New messages are
// prepended and the list is trimmed to the cap.
func (f *Feed) Push(msg Message) {
	if msg.Title == "" || msg.Message == "" {
		return
	}

	f.mu.Lock()
	if msg.ID != 0 {
		for _, existing := range f.messages {
			if existing.ID == msg.ID {
				f.mu.Unlock()
				return
			}
		}
	}

	f.messages = append([]Message{msg}, f.messages...)
	if len(f.messages) > f.cap {
		f.messages = f.messages[:f.cap]
	}
	f.unread++
	changed := f.onChange
	f.mu.Unlock()

	if changed != nil {
		changed()
	}
}

// Replace swaps the whole list, e.g. after fetching the persisted
// notification history. The unread counter is untouched.
func (f *Feed) Replace(messages []Message) {
	f.mu.Lock()
	trimmed := make([]Message, 0, min(len(messages), f.cap))
	for i, msg := range messages {
		if i == f.cap {
			break
		}
		trimmed = append(trimmed, msg)
	}
	f.messages = trimmed
	changed := f.onChange
	f.mu.Unlock()

	if changed != nil {
		changed()
	}
}

// Messages returns a copy of the display list, most recent first.
func (f *Feed) Messages() []Message {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Message, len(f.messages))
	copy(out, f.messages)
	return out
}

// Unread returns the unread counter.
func (f *Feed) Unread() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.unread
}

// MarkAllRead resets the unread counter.
func (f *Feed) MarkAllRead() {
	f.mu.Lock()
	f.unread = 0
	changed := f.onChange
	f.mu.Unlock()

	if changed != nil {
		changed()
	}
}
