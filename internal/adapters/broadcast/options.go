package broadcast

import (
	"github.com/okian/handnav/internal/adapters/mq/queue"
	"github.com/okian/handnav/internal/domain/dedupe"
	"github.com/okian/handnav/pkg/logger"
)

// DefaultRedisPrefix namespaces channel keys in Redis.
const DefaultRedisPrefix = "handnav"

type options struct {
	mailbox    int
	prefix     string
	dedupeSize int
	log        logger.Logger
}

func defaultOptions() options {
	return options{
		mailbox:    queue.DefaultCapacity,
		prefix:     DefaultRedisPrefix,
		dedupeSize: dedupe.DefaultMaxSize,
	}
}

// Option configures a transport.
type Option func(*options)

// WithMailboxSize bounds each endpoint's pending deliveries.
func WithMailboxSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.mailbox = n
		}
	}
}

// WithPrefix sets the Redis key prefix.
func WithPrefix(p string) Option {
	return func(o *options) {
		if p != "" {
			o.prefix = p
		}
	}
}

// WithDedupeSize bounds the message ids each Redis endpoint remembers.
func WithDedupeSize(n int) Option {
	return func(o *options) {
		o.dedupeSize = n
	}
}

// WithLogger sets the transport logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func (o *options) logger(component string) logger.Logger {
	if o.log == nil {
		o.log = logger.Get().Named(component)
	}
	return o.log
}
