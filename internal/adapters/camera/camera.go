// Package camera models the video input the recognition loop needs while a
// session is active.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/handnav/pkg/metrics"
)

// Default capture size.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Constraints describe the requested stream.
type Constraints struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultConstraints returns 640x480.
func DefaultConstraints() Constraints {
	return Constraints{Width: DefaultWidth, Height: DefaultHeight}
}

func (c Constraints) String() string { return fmt.Sprintf("%dx%d", c.Width, c.Height) }

// Stream is an acquired camera. Release is idempotent.
type Stream interface {
	Constraints() Constraints
	Release()
}

// Acquirer hands out camera streams.
type Acquirer interface {
	Acquire(ctx context.Context, c Constraints) (Stream, error)
}

// Option configures a Device.
type Option func(*Device)

// WithDenied makes every acquisition fail as if the user refused permission.
func WithDenied(denied bool) Option {
	return func(d *Device) { d.denied = denied }
}

// WithUnavailable makes every acquisition fail as if no camera exists.
func WithUnavailable(unavailable bool) Option {
	return func(d *Device) { d.unavailable = unavailable }
}

// WithAcquireDelay simulates the time a permission prompt takes.
func WithAcquireDelay(delay time.Duration) Option {
	return func(d *Device) {
		if delay > 0 {
			d.delay = delay
		}
	}
}

// Device is a simulated single-owner camera.
type Device struct {
	denied      bool
	unavailable bool
	delay       time.Duration

	mu       sync.Mutex
	held     *stream
	acquired uint64
}

// NewDevice creates a simulated camera.
func NewDevice(opts ...Option) *Device {
	d := &Device{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Acquire implements Acquirer.
func (d *Device) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	if c.Width <= 0 || c.Height <= 0 {
		c = DefaultConstraints()
	}
	if d.delay > 0 {
		t := time.NewTimer(d.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			metrics.RecordCameraAcquisition("cancelled")
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordCameraAcquisition("cancelled")
		return nil, err
	}

	switch {
	case d.denied:
		metrics.RecordCameraAcquisition("denied")
		return nil, ErrPermissionDenied
	case d.unavailable:
		metrics.RecordCameraAcquisition("unavailable")
		return nil, ErrUnavailable
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.held != nil {
		metrics.RecordCameraAcquisition("busy")
		return nil, ErrBusy
	}
	s := &stream{dev: d, constraints: c}
	d.held = s
	d.acquired++
	metrics.RecordCameraAcquisition("ok")
	metrics.UpdateCameraHeld(true)
	return s, nil
}

// Held reports whether a stream is currently acquired.
func (d *Device) Held() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.held != nil
}

// Acquisitions counts successful acquisitions.
func (d *Device) Acquisitions() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acquired
}

func (d *Device) release(s *stream) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.held == s {
		d.held = nil
		metrics.UpdateCameraHeld(false)
	}
}

type stream struct {
	dev         *Device
	constraints Constraints
	once        sync.Once
}

func (s *stream) Constraints() Constraints { return s.constraints }

func (s *stream) Release() {
	s.once.Do(func() { s.dev.release(s) })
}

// UserMessage turns an acquisition error into text suitable for the UI.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "Camera access denied. Please allow camera permissions."
	case errors.Is(err, ErrUnavailable):
		return "No camera found. Please connect a camera and try again."
	case errors.Is(err, ErrBusy):
		return "Camera is already in use by another application."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Camera request was cancelled."
	default:
		return "Unable to access the camera. Please try again."
	}
}
