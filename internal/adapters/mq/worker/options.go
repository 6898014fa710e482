// Package worker drains an endpoint mailbox and hands each message to the
// endpoint's subscribers.
package worker

import (
	"github.com/okian/handnav/pkg/logger"
)

// Option applies a configuration option to the Deliverer.
type Option func(*Deliverer)

// WithName sets the deliverer name for identification and logging.
func WithName(name string) Option {
	return func(d *Deliverer) {
		if name != "" {
			d.name = name
		}
	}
}

// WithLogger sets a custom logger for the deliverer.
func WithLogger(l logger.Logger) Option {
	return func(d *Deliverer) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithChannel labels delivery metrics with the broadcast channel name.
func WithChannel(channel, transport string) Option {
	return func(d *Deliverer) {
		d.channel = channel
		d.transport = transport
	}
}
