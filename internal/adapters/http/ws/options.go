package ws

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/handnav/pkg/logger"
)

const (
	// DefaultPublishRate is messages per second a single client may publish.
	DefaultPublishRate = 10
	// DefaultPublishBurst is the publish bucket size per client.
	DefaultPublishBurst = 20
	// DefaultSendBuffer bounds messages queued for one socket.
	DefaultSendBuffer = 64

	defaultPingInterval = 30 * time.Second
	defaultWriteTimeout = 5 * time.Second
	maxMessageBytes     = 16 << 10
)

// Option configures a Bridge.
type Option func(*options)

type options struct {
	log          logger.Logger
	rate         rate.Limit
	burst        int
	sendBuffer   int
	pingInterval time.Duration
	writeTimeout time.Duration
}

func defaultOptions() options {
	return options{
		rate:         rate.Limit(DefaultPublishRate),
		burst:        DefaultPublishBurst,
		sendBuffer:   DefaultSendBuffer,
		pingInterval: defaultPingInterval,
		writeTimeout: defaultWriteTimeout,
	}
}

// WithLogger sets the bridge logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithPublishLimit limits how fast one client may publish.
func WithPublishLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		if perSecond > 0 {
			o.rate = rate.Limit(perSecond)
		}
		if burst > 0 {
			o.burst = burst
		}
	}
}

// WithSendBuffer sets how many outbound messages may wait per socket before
// new ones are dropped.
func WithSendBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.sendBuffer = n
		}
	}
}

// WithPingInterval sets the keepalive period. The read deadline is twice
// the interval.
func WithPingInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pingInterval = d
		}
	}
}

// WithWriteTimeout bounds every socket write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}
