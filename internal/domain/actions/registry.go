package actions

import (
	"context"

	"github.com/okian/handnav/internal/domain/gesture"
	"github.com/okian/handnav/pkg/logger"
)

const defaultScrollDelta = 100

// Handler performs one gesture's side effect.
type Handler func()

// Descriptor documents one registry entry.
type Descriptor struct {
	Gesture     gesture.ID `json:"gesture"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithScrollDelta sets the pixel distance for vertical scrolls.
func WithScrollDelta(delta int) Option {
	return func(r *Registry) {
		if delta > 0 {
			r.scrollDelta = delta
		}
	}
}

// WithLogger sets the logger used for degraded operations.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// Registry is the immutable gesture -> handler table.
type Registry struct {
	host        Host
	caps        Capabilities
	scrollDelta int
	logger      logger.Logger

	handlers map[gesture.ID]Handler
	docs     []Descriptor
}

// NewRegistry builds the table for host. caps is normally Probe(host); it is
// passed in so the probe runs once and stays the single source of truth.
func NewRegistry(host Host, caps Capabilities, opts ...Option) *Registry {
	r := &Registry{
		host:        host,
		caps:        caps,
		scrollDelta: defaultScrollDelta,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("actions")
	}

	r.add(gesture.PointingUp, "scroll the view up", r.scrollUp)
	r.add(gesture.PointingDown, "scroll the view down", r.scrollDown)
	r.add(gesture.PointingLeft, "go back in history", r.back)
	r.add(gesture.PointingRight, "go forward in history", r.forward)
	r.add(gesture.OpenPalm, "pause playing media", r.pauseMedia)
	r.add(gesture.OKSign, "click the focused element", r.activateFocused)
	r.add(gesture.PeaceSign, "reload the view", r.reload)
	r.add(gesture.Pinch, "toggle fullscreen", r.toggleFullscreen)
	return r
}

func (r *Registry) add(id gesture.ID, desc string, h Handler) {
	if r.handlers == nil {
		r.handlers = make(map[gesture.ID]Handler, len(gesture.All()))
	}
	r.handlers[id] = h
	r.docs = append(r.docs, Descriptor{Gesture: id, Name: id.DisplayName(), Description: desc})
}

// Lookup returns the handler for id. The None sentinel and unknown ids have none.
func (r *Registry) Lookup(id gesture.ID) (Handler, bool) {
	if id.IsNone() {
		return nil, false
	}
	h, ok := r.handlers[id]
	return h, ok
}

// Dispatch runs the handler for id and reports whether one existed.
func (r *Registry) Dispatch(id gesture.ID) bool {
	h, ok := r.Lookup(id)
	if !ok {
		return false
	}
	h()
	return true
}

// Gestures lists the table in dispatch order.
func (r *Registry) Gestures() []Descriptor {
	out := make([]Descriptor, len(r.docs))
	copy(out, r.docs)
	return out
}

// Capabilities returns the probe result the registry was built with.
func (r *Registry) Capabilities() Capabilities {
	return r.caps
}

func (r *Registry) scrollUp() {
	if r.caps.Scroll {
		r.host.Scroll.ScrollBy(0, -r.scrollDelta)
	}
}

func (r *Registry) scrollDown() {
	if r.caps.Scroll {
		r.host.Scroll.ScrollBy(0, r.scrollDelta)
	}
}

func (r *Registry) back() {
	if r.caps.History && r.host.History.Length() > 1 {
		r.host.History.Back()
	}
}

func (r *Registry) forward() {
	if r.caps.History {
		r.host.History.Forward()
	}
}

func (r *Registry) pauseMedia() {
	if !r.caps.Media {
		return
	}
	for _, m := range r.host.Media.MediaElements() {
		if m != nil && !m.Paused() {
			m.Pause()
		}
	}
}

func (r *Registry) activateFocused() {
	if !r.caps.Focus {
		return
	}
	if el, ok := r.host.Focus.Focused(); ok && el != nil {
		el.Click()
	}
}

func (r *Registry) reload() {
	if r.caps.Reload {
		r.host.Page.Reload()
	}
}

func (r *Registry) toggleFullscreen() {
	if !r.caps.Fullscreen {
		return
	}
	fs := r.host.Fullscreen
	var err error
	if fs.IsFullscreen() {
		err = fs.ExitFullscreen()
	} else {
		err = fs.EnterFullscreen()
	}
	if err != nil {
		r.logger.Debug(context.Background(), "fullscreen toggle ignored", logger.Error(err))
	}
}
