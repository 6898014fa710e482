package broadcast

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/okian/handnav/internal/domain/model"
	"github.com/okian/handnav/pkg/logger"
	"github.com/okian/handnav/pkg/metrics"
)

// TransportMemory names the in-process transport.
const TransportMemory = "memory"

// MemoryTransport is an in-process bus, the equivalent of tabs sharing one
// browser.
type MemoryTransport struct {
	opts options
	log  logger.Logger

	mu       sync.RWMutex
	channels map[string]map[string]*memoryChannel
	closed   bool
}

// NewMemoryTransport creates an empty bus.
func NewMemoryTransport(opts ...Option) *MemoryTransport {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryTransport{
		opts:     o,
		log:      o.logger("broadcast-memory"),
		channels: make(map[string]map[string]*memoryChannel),
	}
}

// Name implements Transport.
func (t *MemoryTransport) Name() string { return TransportMemory }

// Open implements Transport.
func (t *MemoryTransport) Open(_ context.Context, name string) (Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}

	c := &memoryChannel{
		endpoint: newEndpoint(name, TransportMemory, t.opts.mailbox, t.log),
		bus:      t,
	}
	peers := t.channels[name]
	if peers == nil {
		peers = make(map[string]*memoryChannel)
		t.channels[name] = peers
	}
	peers[c.id] = c
	metrics.UpdateBroadcastEndpoints(name, len(peers))
	return c, nil
}

// Endpoints reports how many endpoints are open on name.
func (t *MemoryTransport) Endpoints(name string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.channels[name])
}

// Close implements Transport; it closes every open endpoint.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	var all []*memoryChannel
	for _, peers := range t.channels {
		for _, c := range peers {
			all = append(all, c)
		}
	}
	t.mu.Unlock()

	for _, c := range all {
		_ = c.Close()
	}
	return nil
}

func (t *MemoryTransport) publish(ctx context.Context, from *memoryChannel, m model.Message) { //nolint:gocritic // hugeParam: value semantics
	t.mu.RLock()
	defer t.mu.RUnlock()
	for id, peer := range t.channels[from.name] {
		if id == from.id {
			continue
		}
		peer.accept(ctx, m)
	}
}

func (t *MemoryTransport) remove(c *memoryChannel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	peers := t.channels[c.name]
	delete(peers, c.id)
	if len(peers) == 0 {
		delete(t.channels, c.name)
	}
	metrics.UpdateBroadcastEndpoints(c.name, len(peers))
}

type memoryChannel struct {
	*endpoint
	bus *MemoryTransport
}

func (c *memoryChannel) Publish(ctx context.Context, m model.Message) error { //nolint:gocritic // hugeParam: value semantics
	if c.isClosed() {
		return nil
	}
	m = stamp(m, c.id)
	c.bus.publish(ctx, c, m)
	metrics.RecordBroadcastPublished(c.name, TransportMemory)
	return nil
}

func (c *memoryChannel) Close() error {
	if c.shutdown() {
		c.bus.remove(c)
	}
	return nil
}

func (c *memoryChannel) String() string {
	return fmt.Sprintf("memory:%s/%s", c.name, c.id)
}
