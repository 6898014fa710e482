// Package actions maps gestures to side effects on a host environment.
package actions

// Scroller scrolls the viewport.
type Scroller interface {
	ScrollBy(dx, dy int)
}

// Navigator moves through session history.
type Navigator interface {
	Length() int
	Back()
	Forward()
}

// MediaElement is a playable element such as a <video>.
type MediaElement interface {
	Paused() bool
	Pause()
}

// MediaPlayer lists media elements on the page.
type MediaPlayer interface {
	MediaElements() []MediaElement
}

// Activatable is an interactive element that can be clicked.
type Activatable interface {
	Click()
}

// FocusTracker exposes the focused element, if any.
type FocusTracker interface {
	Focused() (Activatable, bool)
}

// Reloader reloads the current view.
type Reloader interface {
	Reload()
}

// FullscreenController toggles fullscreen presentation.
type FullscreenController interface {
	IsFullscreen() bool
	EnterFullscreen() error
	ExitFullscreen() error
}

// fullscreenSupport is optionally implemented by a FullscreenController that
// can tell whether the environment allows fullscreen at all.
type fullscreenSupport interface {
	FullscreenSupported() bool
}

// Host bundles the capabilities of an environment. A nil field means the
// environment lacks that capability.
type Host struct {
	Scroll     Scroller
	History    Navigator
	Media      MediaPlayer
	Focus      FocusTracker
	Page       Reloader
	Fullscreen FullscreenController
}

// Capabilities is the result of probing a Host once at startup.
type Capabilities struct {
	Scroll     bool `json:"scroll"`
	History    bool `json:"history"`
	Media      bool `json:"media"`
	Focus      bool `json:"focus"`
	Reload     bool `json:"reload"`
	Fullscreen bool `json:"fullscreen"`
}

// Probe inspects h and reports which capabilities are usable.
func Probe(h Host) Capabilities {
	c := Capabilities{
		Scroll:  h.Scroll != nil,
		History: h.History != nil,
		Media:   h.Media != nil,
		Focus:   h.Focus != nil,
		Reload:  h.Page != nil,
	}
	if h.Fullscreen != nil {
		c.Fullscreen = true
		if s, ok := h.Fullscreen.(fullscreenSupport); ok {
			c.Fullscreen = s.FullscreenSupported()
		}
	}
	return c
}
