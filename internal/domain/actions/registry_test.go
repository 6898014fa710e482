package actions_test

import (
	"errors"
	"testing"

	"github.com/okian/handnav/internal/domain/actions"
	"github.com/okian/handnav/internal/domain/gesture"
	"github.com/okian/handnav/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeVideo struct{ paused bool }

func (v *fakeVideo) Paused() bool { return v.paused }
func (v *fakeVideo) Pause()       { v.paused = true }

type fakeButton struct{ clicks int }

func (b *fakeButton) Click() { b.clicks++ }

type fakeHost struct {
	dx, dy      int
	length      int
	backs       int
	forwards    int
	videos      []*fakeVideo
	focused     *fakeButton
	reloads     int
	fullscreen  bool
	supported   bool
	fullscreenE error
}

func (h *fakeHost) ScrollBy(dx, dy int) { h.dx += dx; h.dy += dy }
func (h *fakeHost) Length() int         { return h.length }
func (h *fakeHost) Back()               { h.backs++ }
func (h *fakeHost) Forward()            { h.forwards++ }
func (h *fakeHost) Reload()             { h.reloads++ }

func (h *fakeHost) MediaElements() []actions.MediaElement {
	out := make([]actions.MediaElement, len(h.videos))
	for i, v := range h.videos {
		out[i] = v
	}
	return out
}

func (h *fakeHost) Focused() (actions.Activatable, bool) {
	if h.focused == nil {
		return nil, false
	}
	return h.focused, true
}

func (h *fakeHost) IsFullscreen() bool        { return h.fullscreen }
func (h *fakeHost) FullscreenSupported() bool { return h.supported }

func (h *fakeHost) EnterFullscreen() error {
	if h.fullscreenE != nil {
		return h.fullscreenE
	}
	h.fullscreen = true
	return nil
}

func (h *fakeHost) ExitFullscreen() error {
	if h.fullscreenE != nil {
		return h.fullscreenE
	}
	h.fullscreen = false
	return nil
}

func fullHost(h *fakeHost) actions.Host {
	return actions.Host{Scroll: h, History: h, Media: h, Focus: h, Page: h, Fullscreen: h}
}

func TestProbe(t *testing.T) {
	Convey("Given hosts with different capabilities", t, func() {
		Convey("When every capability is present and fullscreen is supported", func() {
			caps := actions.Probe(fullHost(&fakeHost{supported: true}))
			So(caps, ShouldResemble, actions.Capabilities{
				Scroll: true, History: true, Media: true, Focus: true, Reload: true, Fullscreen: true,
			})
		})

		Convey("When fullscreen reports unsupported", func() {
			caps := actions.Probe(fullHost(&fakeHost{supported: false}))
			So(caps.Fullscreen, ShouldBeFalse)
			So(caps.Scroll, ShouldBeTrue)
		})

		Convey("When the host is empty", func() {
			So(actions.Probe(actions.Host{}), ShouldResemble, actions.Capabilities{})
		})
	})
}

func TestRegistryLookup(t *testing.T) {
	Convey("Given a registry over a full host", t, func() {
		h := &fakeHost{length: 3, supported: true}
		host := fullHost(h)
		reg := actions.NewRegistry(host, actions.Probe(host))

		Convey("Then every actionable gesture should have exactly one handler", func() {
			for _, id := range gesture.All() {
				handler, ok := reg.Lookup(id)
				So(ok, ShouldBeTrue)
				So(handler, ShouldNotBeNil)
				So(func() { handler() }, ShouldNotPanic)
			}
			So(len(reg.Gestures()), ShouldEqual, len(gesture.All()))
		})

		Convey("Then none and unknown ids should have no handler", func() {
			_, ok := reg.Lookup(gesture.None)
			So(ok, ShouldBeFalse)
			_, ok = reg.Lookup("")
			So(ok, ShouldBeFalse)
			_, ok = reg.Lookup("thumbs_up")
			So(ok, ShouldBeFalse)
			So(reg.Dispatch("thumbs_up"), ShouldBeFalse)
		})
	})
}

func TestRegistryEffects(t *testing.T) {
	Convey("Given a registry over a full host", t, func() {
		h := &fakeHost{length: 3, supported: true}
		host := fullHost(h)
		reg := actions.NewRegistry(host, actions.Probe(host), actions.WithScrollDelta(120))

		Convey("When pointing up and down", func() {
			reg.Dispatch(gesture.PointingUp)
			So(h.dy, ShouldEqual, -120)
			reg.Dispatch(gesture.PointingDown)
			reg.Dispatch(gesture.PointingDown)
			So(h.dy, ShouldEqual, 120)
			So(h.dx, ShouldEqual, 0)
		})

		Convey("When pointing left with history", func() {
			reg.Dispatch(gesture.PointingLeft)
			So(h.backs, ShouldEqual, 1)
		})

		Convey("When pointing left without history depth", func() {
			h.length = 1
			reg.Dispatch(gesture.PointingLeft)
			So(h.backs, ShouldEqual, 0)
		})

		Convey("When pointing right", func() {
			reg.Dispatch(gesture.PointingRight)
			So(h.forwards, ShouldEqual, 1)
		})

		Convey("When showing an open palm", func() {
			h.videos = []*fakeVideo{{paused: false}, {paused: true}, {paused: false}}
			reg.Dispatch(gesture.OpenPalm)
			for _, v := range h.videos {
				So(v.paused, ShouldBeTrue)
			}
		})

		Convey("When making an ok sign with a focused element", func() {
			h.focused = &fakeButton{}
			reg.Dispatch(gesture.OKSign)
			So(h.focused.clicks, ShouldEqual, 1)
		})

		Convey("When making an ok sign with nothing focused", func() {
			So(func() { reg.Dispatch(gesture.OKSign) }, ShouldNotPanic)
		})

		Convey("When making a peace sign", func() {
			reg.Dispatch(gesture.PeaceSign)
			So(h.reloads, ShouldEqual, 1)
		})

		Convey("When pinching twice", func() {
			reg.Dispatch(gesture.Pinch)
			So(h.fullscreen, ShouldBeTrue)
			reg.Dispatch(gesture.Pinch)
			So(h.fullscreen, ShouldBeFalse)
		})

		Convey("When fullscreen fails", func() {
			h.fullscreenE = errors.New("not allowed")

			Convey("Then the toggle should degrade to a no-op", func() {
				So(func() { reg.Dispatch(gesture.Pinch) }, ShouldNotPanic)
				So(h.fullscreen, ShouldBeFalse)
			})
		})
	})
}

func TestRegistryMissingCapabilities(t *testing.T) {
	Convey("Given a registry over an empty host", t, func() {
		reg := actions.NewRegistry(actions.Host{}, actions.Capabilities{})

		Convey("Then every handler should be a no-op", func() {
			for _, id := range gesture.All() {
				So(reg.Dispatch(id), ShouldBeTrue)
			}
		})
	})

	Convey("Given a host whose fullscreen is unsupported", t, func() {
		h := &fakeHost{supported: false}
		host := fullHost(h)
		reg := actions.NewRegistry(host, actions.Probe(host))

		Convey("Then pinch should not touch fullscreen", func() {
			reg.Dispatch(gesture.Pinch)
			So(h.fullscreen, ShouldBeFalse)
			So(reg.Capabilities().Fullscreen, ShouldBeFalse)
		})
	})
}
