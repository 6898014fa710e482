package service

import (
	"time"

	"github.com/okian/handnav/internal/adapters/camera"
	"github.com/okian/handnav/internal/adapters/repository"
	"github.com/okian/handnav/pkg/logger"
)

// DefaultThreshold is the minimum confidence for a reading to trigger an action.
const DefaultThreshold = 70.0

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCamera sets the camera the session acquires on Start.
func WithCamera(c camera.Acquirer) Option {
	return func(s *Service) {
		if c != nil {
			s.camera = c
		}
	}
}

// WithThreshold sets the confidence threshold (0-100).
func WithThreshold(t float64) Option {
	return func(s *Service) {
		if t >= 0 && t <= 100 {
			s.threshold = t
		}
	}
}

// WithCameraConstraints sets the requested capture size.
func WithCameraConstraints(c camera.Constraints) Option {
	return func(s *Service) {
		if c.Width > 0 && c.Height > 0 {
			s.constraints = c
		}
	}
}

// WithHistory records dispatched gestures in store.
func WithHistory(store repository.Store) Option {
	return func(s *Service) {
		s.history = store
	}
}

// WithRemoteActions controls whether gestures from other tabs run locally.
func WithRemoteActions(enabled bool) Option {
	return func(s *Service) {
		s.remoteActions = enabled
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
