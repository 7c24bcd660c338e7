package sink

import (
	"chat-relay/errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// OverflowPolicy decides what happens when a slow connection lets its outbox fill up.
type OverflowPolicy string

const (
	// DropNewest rejects the payload being delivered and keeps the queue untouched.
	DropNewest OverflowPolicy = "drop_newest"
	// DropOldest evicts the head of the queue to make room for the new payload.
	DropOldest OverflowPolicy = "drop_oldest"
	// Disconnect closes the outbox, the connection writer then terminates the peer.
	Disconnect OverflowPolicy = "disconnect"
)

func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch p := OverflowPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DropNewest, DropOldest, Disconnect:
		return p, nil
	case "":
		return DropNewest, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownPolicy, s)
	}
}

// Outbox is the outbound path of one live connection.
// The coordinator delivers into it without ever waiting,
// a dedicated writer goroutine drains Messages and writes to the transport.
type Outbox struct {
	mu        sync.Mutex
	queue     chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	policy    OverflowPolicy
	dropped   atomic.Uint64
	overflow  atomic.Bool
}

func NewOutbox(bufferSize int, policy OverflowPolicy) *Outbox {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Outbox{
		queue:  make(chan []byte, bufferSize),
		closed: make(chan struct{}),
		policy: policy,
	}
}

// Deliver enqueues the payload or applies the overflow policy.
// The queue channel is never closed, so a late Deliver can't panic.
func (o *Outbox) Deliver(payload []byte) error {
	select {
	case <-o.closed:
		return errors.ErrSinkClosed
	default:
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	select {
	case o.queue <- payload:
		return nil
	default:
	}

	switch o.policy {
	case DropOldest:
		select {
		case <-o.queue:
			o.dropped.Add(1)
		default:
		}
		select {
		case o.queue <- payload:
			return nil
		default:
			o.dropped.Add(1)
			return errors.ErrSinkFull
		}
	case Disconnect:
		o.dropped.Add(1)
		o.overflow.Store(true)
		o.Close()
		return fmt.Errorf("%w: outbox closed", errors.ErrSinkFull)
	default:
		o.dropped.Add(1)
		return errors.ErrSinkFull
	}
}

// Messages is drained by the connection writer.
func (o *Outbox) Messages() <-chan []byte {
	return o.queue
}

// Done is closed once the outbox stops accepting payloads.
func (o *Outbox) Done() <-chan struct{} {
	return o.closed
}

// Close is idempotent.
func (o *Outbox) Close() {
	o.closeOnce.Do(func() { close(o.closed) })
}

// Dropped counts the payloads lost to the overflow policy.
func (o *Outbox) Dropped() uint64 {
	return o.dropped.Load()
}

// Overflowed reports whether the outbox was closed by the disconnect policy.
func (o *Outbox) Overflowed() bool {
	return o.overflow.Load()
}

func (o *Outbox) Len() int {
	return len(o.queue)
}
