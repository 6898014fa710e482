package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/okian/handnav/internal/domain/dedupe"
	"github.com/okian/handnav/internal/domain/model"
	"github.com/okian/handnav/pkg/logger"
	"github.com/okian/handnav/pkg/metrics"
)

// TransportRedis names the Redis Pub/Sub transport.
const TransportRedis = "redis"

// RedisTransport spans processes: every endpoint holds its own subscription
// on <prefix>:<name>. The client is owned by the caller.
type RedisTransport struct {
	client redis.UniversalClient
	opts   options
	log    logger.Logger

	mu     sync.Mutex
	open   map[string]*redisChannel
	closed bool
}

// NewRedisTransport wraps an existing client.
func NewRedisTransport(client redis.UniversalClient, opts ...Option) *RedisTransport {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisTransport{
		client: client,
		opts:   o,
		log:    o.logger("broadcast-redis"),
		open:   make(map[string]*redisChannel),
	}
}

// NewRedisClient builds the client used by NewRedisTransport.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Name implements Transport.
func (t *RedisTransport) Name() string { return TransportRedis }

// Ping implements Pinger.
func (t *RedisTransport) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

// Key returns the Pub/Sub channel used for name.
func (t *RedisTransport) Key(name string) string {
	return t.opts.prefix + ":" + name
}

// Open implements Transport. It returns once the subscription is confirmed,
// so messages published afterwards are not missed.
func (t *RedisTransport) Open(ctx context.Context, name string) (Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTransportClosed
	}
	t.mu.Unlock()

	ps := t.client.Subscribe(ctx, t.Key(name))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", t.Key(name), err)
	}

	c := &redisChannel{
		endpoint: newEndpoint(name, TransportRedis, t.opts.mailbox, t.log),
		t:        t,
		ps:       ps,
		seen:     dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(t.opts.dedupeSize)),
		stopped:  make(chan struct{}),
	}

	t.mu.Lock()
	t.open[c.id] = c
	t.mu.Unlock()

	go c.receive()
	return c, nil
}

// Close implements Transport; it closes every endpoint but not the client.
func (t *RedisTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	all := make([]*redisChannel, 0, len(t.open))
	for _, c := range t.open {
		all = append(all, c)
	}
	t.mu.Unlock()

	for _, c := range all {
		_ = c.Close()
	}
	return nil
}

func (t *RedisTransport) forget(c *redisChannel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.open, c.id)
}

type redisChannel struct {
	*endpoint
	t       *RedisTransport
	ps      *redis.PubSub
	seen    dedupe.Deduper
	stopped chan struct{}
}

func (c *redisChannel) Publish(ctx context.Context, m model.Message) error { //nolint:gocritic // hugeParam: value semantics
	if c.isClosed() {
		return nil
	}
	m = stamp(m, c.id)
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	if err := c.t.client.Publish(ctx, c.t.Key(c.name), payload).Err(); err != nil {
		metrics.RecordErrorByComponent("broadcast", "redis_publish")
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	metrics.RecordBroadcastPublished(c.name, TransportRedis)
	return nil
}

// receive moves Pub/Sub payloads into the mailbox, skipping our own
// publishes and repeated ids.
func (c *redisChannel) receive() {
	defer close(c.stopped)
	ctx := context.Background()
	for raw := range c.ps.Channel() {
		var m model.Message
		if err := json.Unmarshal([]byte(raw.Payload), &m); err != nil {
			metrics.RecordBroadcastDropped(c.name, "malformed")
			c.log.Debug(ctx, "malformed broadcast payload", logger.Error(err))
			continue
		}
		if m.Origin == c.id {
			continue
		}
		if c.seen.SeenAndRecord(ctx, m.ID) {
			metrics.RecordBroadcastDropped(c.name, "duplicate")
			continue
		}
		c.accept(ctx, m)
	}
}

func (c *redisChannel) Close() error {
	if !c.shutdown() {
		return nil
	}
	err := c.ps.Close()
	<-c.stopped
	c.t.forget(c)
	return err
}
