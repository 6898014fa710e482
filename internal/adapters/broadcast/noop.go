package broadcast

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/okian/handnav/internal/domain/model"
)

// TransportNone names the disabled transport.
const TransportNone = "none"

// NoopTransport hands out endpoints that neither send nor receive.
type NoopTransport struct{}

// NewNoopTransport creates the disabled transport.
func NewNoopTransport() *NoopTransport { return &NoopTransport{} }

func (*NoopTransport) Name() string { return TransportNone }

func (*NoopTransport) Open(_ context.Context, name string) (Channel, error) {
	return &noopChannel{id: uuid.NewString(), name: name}, nil
}

func (*NoopTransport) Close() error { return nil }

type noopChannel struct {
	id     string
	name   string
	closed atomic.Bool
}

func (c *noopChannel) ID() string   { return c.id }
func (c *noopChannel) Name() string { return c.name }

func (c *noopChannel) Publish(context.Context, model.Message) error { //nolint:gocritic // hugeParam: interface
	return nil
}

func (c *noopChannel) Subscribe(Handler) func() { return func() {} }

func (c *noopChannel) Close() error {
	c.closed.Store(true)
	return nil
}
