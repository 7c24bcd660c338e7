package sink

import (
	"chat-relay/errors"
	"sync"
)

// Timeline holds every payload delivered to it in memory.
// It never overflows, useful for tools and tests that need the full history of a connection.
type Timeline struct {
	mu       sync.Mutex
	Owner    string
	payloads [][]byte
	closed   bool
	notify   chan struct{}
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{Owner: owner, notify: make(chan struct{}, 1)}
}

func (t *Timeline) Deliver(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.ErrSinkClosed
	}
	t.payloads = append(t.payloads, payload)
	select {
	case t.notify <- struct{}{}:
	default:
	}
	return nil
}

func (t *Timeline) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

func (t *Timeline) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Payloads returns a copy of what was delivered so far.
func (t *Timeline) Payloads() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.payloads))
	copy(out, t.payloads)
	return out
}

// Notify fires at least once after each delivery.
func (t *Timeline) Notify() <-chan struct{} {
	return t.notify
}
