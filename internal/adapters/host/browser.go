// Package host provides a virtual browser page that implements every action
// capability, so the service can run sessions without a real browser.
package host

import (
	"errors"
	"sort"
	"sync"

	"github.com/okian/handnav/internal/domain/actions"
)

// DefaultStartURL is the first history entry.
const DefaultStartURL = "about:blank"

// ErrFullscreenUnsupported is returned when the page disallows fullscreen.
var ErrFullscreenUnsupported = errors.New("fullscreen not supported")

// Option configures a Browser.
type Option func(*Browser)

// WithFullscreenSupported toggles whether fullscreen requests succeed.
func WithFullscreenSupported(ok bool) Option {
	return func(b *Browser) { b.fullscreenSupported = ok }
}

// WithStartURL sets the initial history entry.
func WithStartURL(url string) Option {
	return func(b *Browser) {
		if url != "" {
			b.history = []string{url}
		}
	}
}

// MediaState is one media element in a snapshot.
type MediaState struct {
	ID      string `json:"id"`
	Playing bool   `json:"playing"`
}

// State is a copy of the page model.
type State struct {
	URL                 string         `json:"url"`
	History             []string       `json:"history"`
	HistoryIndex        int            `json:"history_index"`
	ScrollX             int            `json:"scroll_x"`
	ScrollY             int            `json:"scroll_y"`
	Media               []MediaState   `json:"media"`
	Focused             string         `json:"focused,omitempty"`
	Clicks              map[string]int `json:"clicks"`
	Reloads             int            `json:"reloads"`
	Fullscreen          bool           `json:"fullscreen"`
	FullscreenSupported bool           `json:"fullscreen_supported"`
}

// Browser is a mutex-protected page model.
type Browser struct {
	mu                  sync.Mutex
	history             []string
	index               int
	scrollX, scrollY    int
	media               map[string]bool
	mediaOrder          []string
	focused             string
	clicks              map[string]int
	reloads             int
	fullscreen          bool
	fullscreenSupported bool
}

// NewBrowser creates a page at DefaultStartURL.
func NewBrowser(opts ...Option) *Browser {
	b := &Browser{
		history:             []string{DefaultStartURL},
		media:               make(map[string]bool),
		clicks:              make(map[string]int),
		fullscreenSupported: true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Host exposes b through the action capability bundle.
func (b *Browser) Host() actions.Host {
	return actions.Host{
		Scroll:     b,
		History:    b,
		Media:      b,
		Focus:      b,
		Page:       b,
		Fullscreen: b,
	}
}

// Navigate pushes url, dropping any forward entries.
func (b *Browser) Navigate(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history[:b.index+1], url)
	b.index = len(b.history) - 1
	b.scrollX, b.scrollY = 0, 0
}

// AddMedia adds or replaces a media element.
func (b *Browser) AddMedia(id string, playing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.media[id]; !ok {
		b.mediaOrder = append(b.mediaOrder, id)
	}
	b.media[id] = playing
}

// Focus moves focus to id; an empty id blurs.
func (b *Browser) Focus(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.focused = id
}

// ScrollBy implements actions.Scroller. The page cannot scroll above its top.
func (b *Browser) ScrollBy(dx, dy int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scrollX = max(0, b.scrollX+dx)
	b.scrollY = max(0, b.scrollY+dy)
}

// Length implements actions.Navigator.
func (b *Browser) Length() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.history)
}

// Back implements actions.Navigator.
func (b *Browser) Back() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.index > 0 {
		b.index--
	}
}

// Forward implements actions.Navigator.
func (b *Browser) Forward() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.index < len(b.history)-1 {
		b.index++
	}
}

// MediaElements implements actions.MediaPlayer.
func (b *Browser) MediaElements() []actions.MediaElement {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]actions.MediaElement, 0, len(b.mediaOrder))
	for _, id := range b.mediaOrder {
		out = append(out, &mediaElement{b: b, id: id})
	}
	return out
}

// Focused implements actions.FocusTracker.
func (b *Browser) Focused() (actions.Activatable, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.focused == "" {
		return nil, false
	}
	return &element{b: b, id: b.focused}, true
}

// Reload implements actions.Reloader.
func (b *Browser) Reload() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloads++
}

// IsFullscreen implements actions.FullscreenController.
func (b *Browser) IsFullscreen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fullscreen
}

// EnterFullscreen implements actions.FullscreenController.
func (b *Browser) EnterFullscreen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.fullscreenSupported {
		return ErrFullscreenUnsupported
	}
	b.fullscreen = true
	return nil
}

// ExitFullscreen implements actions.FullscreenController.
func (b *Browser) ExitFullscreen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fullscreen = false
	return nil
}

// FullscreenSupported is consulted by actions.Probe.
func (b *Browser) FullscreenSupported() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fullscreenSupported
}

// Snapshot copies the page model.
func (b *Browser) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := State{
		URL:                 b.history[b.index],
		History:             append([]string(nil), b.history...),
		HistoryIndex:        b.index,
		ScrollX:             b.scrollX,
		ScrollY:             b.scrollY,
		Media:               make([]MediaState, 0, len(b.mediaOrder)),
		Focused:             b.focused,
		Clicks:              make(map[string]int, len(b.clicks)),
		Reloads:             b.reloads,
		Fullscreen:          b.fullscreen,
		FullscreenSupported: b.fullscreenSupported,
	}
	for _, id := range b.mediaOrder {
		s.Media = append(s.Media, MediaState{ID: id, Playing: b.media[id]})
	}
	for id, n := range b.clicks {
		s.Clicks[id] = n
	}
	return s
}

// ClickedElements lists elements clicked at least once, sorted.
func (s State) ClickedElements() []string {
	out := make([]string, 0, len(s.Clicks))
	for id := range s.Clicks {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type mediaElement struct {
	b  *Browser
	id string
}

func (m *mediaElement) Paused() bool {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	return !m.b.media[m.id]
}

func (m *mediaElement) Pause() {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if _, ok := m.b.media[m.id]; ok {
		m.b.media[m.id] = false
	}
}

type element struct {
	b  *Browser
	id string
}

func (e *element) Click() {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	e.b.clicks[e.id]++
}
