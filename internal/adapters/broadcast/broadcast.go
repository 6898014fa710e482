// Package broadcast is the cross-tab publish/subscribe channel.
//
// A Transport opens named endpoints. Publishing on an endpoint reaches every
// other endpoint open on the same name, never the publisher itself. Each
// endpoint delivers to its subscribers in publish order through a single
// worker; there is no ordering guarantee across endpoints.
package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/okian/handnav/internal/domain/gesture"
	"github.com/okian/handnav/internal/domain/model"
	"github.com/okian/handnav/pkg/logger"
)

// Handler receives messages published by other endpoints.
type Handler func(ctx context.Context, m model.Message)

// Channel is one endpoint on a named channel.
type Channel interface {
	ID() string
	Name() string

	// Publish sends m to every other endpoint on the channel. It is a no-op
	// once the endpoint is closed.
	Publish(ctx context.Context, m model.Message) error

	// Subscribe registers h and returns a function removing it.
	Subscribe(h Handler) (unsubscribe func())

	Close() error
}

// Transport opens endpoints.
type Transport interface {
	Name() string
	Open(ctx context.Context, name string) (Channel, error)
	Close() error
}

// Pinger is implemented by transports that depend on an external service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewGestureMessage builds a gesture-action message.
func NewGestureMessage(g gesture.ID, data json.RawMessage, at time.Time) model.Message {
	if at.IsZero() {
		at = time.Now()
	}
	return model.Message{
		Type:      model.TypeGestureAction,
		Gesture:   string(g),
		Data:      data,
		Timestamp: at.UnixMilli(),
		ID:        uuid.NewString(),
	}
}

// DecodeGesture turns a gesture-action message into a remote event. Other
// message types and unknown gestures report false.
func DecodeGesture(m model.Message) (gesture.Event, bool) { //nolint:gocritic // hugeParam: value semantics
	if !m.IsGestureAction() {
		return gesture.Event{}, false
	}
	id, ok := gesture.Parse(m.Gesture)
	if !ok || id.IsNone() {
		return gesture.Event{}, false
	}
	return gesture.Event{
		ID:        m.ID,
		Gesture:   id,
		Origin:    m.Origin,
		Timestamp: m.Time(),
		Data:      m.Data,
		Remote:    true,
	}, true
}

// Probe reports whether t can actually carry messages.
func Probe(ctx context.Context, t Transport) bool {
	if t == nil {
		return false
	}
	if _, ok := t.(*NoopTransport); ok {
		return false
	}
	if p, ok := t.(Pinger); ok {
		return p.Ping(ctx) == nil
	}
	return true
}

// Resolve returns t when it passes Probe and a NoopTransport otherwise, so
// the session keeps working as a single tab.
func Resolve(ctx context.Context, t Transport, log logger.Logger) Transport {
	if Probe(ctx, t) {
		return t
	}
	if t != nil {
		if _, noop := t.(*NoopTransport); !noop {
			log.Warn(ctx, "broadcast transport unavailable, continuing without cross-tab sync",
				logger.String("transport", t.Name()))
			_ = t.Close()
		}
	}
	return NewNoopTransport()
}

// stamp fills the fields a transport relies on before a message leaves an endpoint.
func stamp(m model.Message, origin string) model.Message { //nolint:gocritic // hugeParam: value semantics
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp == 0 {
		m.Timestamp = time.Now().UnixMilli()
	}
	m.Origin = origin
	return m
}
