package history

import (
	"sync"

	"github.com/dmitrymomot/chatrelay/core/chat"
)

// DefaultLimit is the number of messages retained when no limit is configured.
const DefaultLimit = 30

// Ring is a bounded FIFO of the most recent accepted messages, oldest first.
// Readers share a lock; Append takes it exclusively for the copy only.
type Ring struct {
	mu    sync.RWMutex
	buf   []chat.Message
	head  int // index of the oldest message
	size  int
	limit int
}

// New creates a ring retaining at most limit messages. A non-positive limit
// falls back to DefaultLimit.
func New(limit int) *Ring {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Ring{
		buf:   make([]chat.Message, limit),
		limit: limit,
	}
}

// Append inserts msg at the tail, evicting the oldest message when full.
// It reports whether an eviction happened.
func (r *Ring) Append(msg chat.Message) (evicted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appendLocked(msg)
}

func (r *Ring) appendLocked(msg chat.Message) bool {
	if r.size < r.limit {
		r.buf[(r.head+r.size)%r.limit] = msg
		r.size++
		return false
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.limit
	return true
}

// Seed replaces the contents with the newest messages of msgs, keeping order.
// Used once at startup with the persisted history.
func (r *Ring) Seed(msgs []chat.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.buf)
	r.head, r.size = 0, 0
	if len(msgs) > r.limit {
		msgs = msgs[len(msgs)-r.limit:]
	}
	for _, m := range msgs {
		r.appendLocked(m)
	}
}

// Snapshot returns a point-in-time copy of the retained messages, oldest first.
// It returns nil when the ring is empty.
func (r *Ring) Snapshot() []chat.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.size == 0 {
		return nil
	}
	out := make([]chat.Message, r.size)
	for i := range r.size {
		out[i] = r.buf[(r.head+i)%r.limit]
	}
	return out
}

// Len returns the number of retained messages.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Limit returns the configured capacity.
func (r *Ring) Limit() int {
	return r.limit
}
