// Package queue is the per-endpoint broadcast mailbox: a bounded FIFO of
// messages waiting for the endpoint's delivery worker.
package queue

import (
	"context"
	"sync"

	"github.com/okian/handnav/internal/domain/model"
	"github.com/okian/handnav/pkg/metrics"
)

// DefaultCapacity is the mailbox size when none is configured.
const DefaultCapacity = 256

// Message is the payload flowing through the mailbox.
type Message = model.Message

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds m; it never blocks. ErrFull and ErrClosed report drops.
	Enqueue(ctx context.Context, m Message) error

	// Dequeue returns a channel yielding messages in enqueue order. It closes
	// once the queue is closed and drained, or when ctx is done.
	Dequeue(ctx context.Context) <-chan Message

	Len(ctx context.Context) int

	// Close stops accepting messages. Already queued messages stay readable.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	messages chan Message
	capacity int
	name     string

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a mailbox.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: DefaultCapacity,
		name:     "mailbox",
	}
	for _, opt := range opts {
		opt(q)
	}
	q.messages = make(chan Message, q.capacity)
	metrics.UpdateMailboxSize(q.name, 0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, m Message) error { //nolint:gocritic // hugeParam: value semantics for channel send
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("mailbox", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordErrorByComponent("mailbox", "context_cancelled")
		return err
	}

	select {
	case q.messages <- m:
		metrics.UpdateMailboxSize(q.name, len(q.messages))
		return nil
	default:
		metrics.RecordErrorByComponent("mailbox", "full")
		return ErrFull
	}
}

// Dequeue implements Queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Message {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-q.messages:
				if !ok {
					return
				}
				metrics.UpdateMailboxSize(q.name, len(q.messages))
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len implements Queue.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.messages)
}

// Close implements Queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.messages)
	q.closed = true
	metrics.DeleteMailbox(q.name)
	return nil
}

// IsClosed implements Queue.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
