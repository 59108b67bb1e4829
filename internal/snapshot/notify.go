package snapshot

import (
	"sync"

	"github.com/TimurManjosov/goloyalty/internal/store"
)

// Change describes one committed write to a rule set.
type Change struct {
	Kind    store.OwnerKind `json:"kind"`
	OwnerID string          `json:"ownerId"`
	ETag    string          `json:"etag,omitempty"`
	Deleted bool            `json:"deleted,omitempty"`
}

const defaultBuffer = 8

// Feed is a non-blocking fan-out of rule-set changes.
type Feed struct {
	mu     sync.Mutex
	subs   map[chan Change]struct{}
	buffer int
}

// NewFeed creates a feed whose subscribers each buffer up to buffer changes.
// A non-positive buffer uses the default.
func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Feed{subs: make(map[chan Change]struct{}), buffer: buffer}
}

// Subscribe registers a listener and returns its channel and an unsubscribe func.
// The unsubscribe func may be called more than once.
func (f *Feed) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, f.buffer)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			close(ch)
			f.mu.Unlock()
		})
	}
	return ch, unsub
}

// Publish notifies all listeners (non-blocking).
func (f *Feed) Publish(c Change) {
	f.mu.Lock()
	for ch := range f.subs {
		select {
		case ch <- c:
		default: // if client is slow, skip instead of blocking
		}
	}
	f.mu.Unlock()
}

// Subscribers returns the number of active listeners.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
