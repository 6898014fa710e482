package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/handnav/internal/domain/model"
	"github.com/okian/handnav/pkg/logger"
	"github.com/okian/handnav/pkg/metrics"
)

// Queue defines how the deliverer receives messages.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Message
}

// Handler consumes one delivered message.
type Handler func(ctx context.Context, m model.Message) error

// Deliverer is the single consumer of one mailbox. Running exactly one per
// endpoint keeps delivery in publish order.
type Deliverer struct {
	queue     Queue
	handle    Handler
	name      string
	channel   string
	transport string

	once     sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewDeliverer creates a deliverer feeding handle from q.
func NewDeliverer(q Queue, handle Handler, opts ...Option) *Deliverer {
	d := &Deliverer{
		queue:     q,
		handle:    handle,
		name:      "deliverer",
		transport: "memory",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("deliverer"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.name != "deliverer" {
		d.logger = d.logger.Named(d.name)
	}
	return d
}

// Run delivers until ctx is cancelled, Shutdown is called or the mailbox closes.
func (d *Deliverer) Run(ctx context.Context) {
	defer close(d.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case m, ok := <-messages:
			if !ok {
				return
			}
			if err := d.deliver(ctx, m); err != nil {
				d.logger.Error(ctx, "delivery failed",
					logger.String("message_id", m.ID),
					logger.Error(err),
				)
			}
		}
	}
}

// Done is closed once Run has returned.
func (d *Deliverer) Done() <-chan struct{} { return d.done }

// Shutdown stops the deliverer and waits for Run to return.
func (d *Deliverer) Shutdown(ctx context.Context) error {
	d.once.Do(func() { close(d.shutdown) })

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// deliver runs the handler, converting a panic into an error so one bad
// subscriber cannot stop the endpoint.
func (d *Deliverer) deliver(ctx context.Context, m model.Message) (err error) { //nolint:gocritic // hugeParam: value semantics
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			metrics.RecordErrorByComponent("deliverer", "panic")
		}
		metrics.RecordDeliveryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := d.handle(ctx, m); err != nil {
		metrics.RecordErrorByComponent("deliverer", "handler_error")
		return err
	}
	metrics.RecordBroadcastDelivered(d.channel, d.transport)
	return nil
}
