package broadcast

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/handnav/internal/adapters/mq/queue"
	"github.com/okian/handnav/internal/adapters/mq/worker"
	"github.com/okian/handnav/internal/domain/model"
	"github.com/okian/handnav/pkg/logger"
	"github.com/okian/handnav/pkg/metrics"
)

const endpointShutdownTimeout = 2 * time.Second

// endpoint holds what every transport's Channel shares: the subscriber set
// and the mailbox drained by one deliverer.
type endpoint struct {
	id        string
	name      string
	transport string
	log       logger.Logger

	mu     sync.RWMutex
	subs   map[uint64]Handler
	nextID uint64
	closed bool

	box       *queue.InMemoryQueue
	deliverer *worker.Deliverer
	cancel    context.CancelFunc
}

func newEndpoint(name, transport string, capacity int, log logger.Logger) *endpoint {
	e := &endpoint{
		id:        uuid.NewString(),
		name:      name,
		transport: transport,
		log:       log,
		subs:      make(map[uint64]Handler),
	}
	e.box = queue.NewInMemoryQueue(queue.WithCapacity(capacity), queue.WithName(e.id))
	e.deliverer = worker.NewDeliverer(e.box, e.dispatch,
		worker.WithName("endpoint-"+e.id[:8]),
		worker.WithLogger(log),
		worker.WithChannel(name, transport),
	)

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go e.deliverer.Run(ctx)
	return e
}

func (e *endpoint) ID() string   { return e.id }
func (e *endpoint) Name() string { return e.name }

func (e *endpoint) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

// Subscribe implements Channel.
func (e *endpoint) Subscribe(h Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || h == nil {
		return func() {}
	}
	id := e.nextID
	e.nextID++
	e.subs[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

// accept queues m for local delivery; a full mailbox drops it for this endpoint only.
func (e *endpoint) accept(ctx context.Context, m model.Message) { //nolint:gocritic // hugeParam: value semantics
	err := e.box.Enqueue(ctx, m)
	switch {
	case err == nil:
	case errors.Is(err, queue.ErrFull):
		metrics.RecordBroadcastDropped(e.name, "mailbox_full")
		e.log.Warn(ctx, "mailbox full, message dropped",
			logger.String("endpoint", e.id),
			logger.String("message_id", m.ID))
	case errors.Is(err, queue.ErrClosed):
		metrics.RecordBroadcastDropped(e.name, "closed")
	default:
		metrics.RecordBroadcastDropped(e.name, "cancelled")
	}
}

// dispatch runs on the deliverer goroutine.
func (e *endpoint) dispatch(ctx context.Context, m model.Message) error { //nolint:gocritic // hugeParam: value semantics
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil
	}
	ids := make([]uint64, 0, len(e.subs))
	for id := range e.subs {
		ids = append(ids, id)
	}
	handlers := make([]Handler, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, e.subs[id])
	}
	e.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, m)
	}
	return nil
}

// shutdown releases the mailbox and waits for the deliverer. It reports
// whether this call did the closing.
func (e *endpoint) shutdown() bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.closed = true
	e.subs = map[uint64]Handler{}
	e.mu.Unlock()

	_ = e.box.Close()
	e.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), endpointShutdownTimeout)
	defer cancel()
	_ = e.deliverer.Shutdown(ctx)
	return true
}
