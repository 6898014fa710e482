package repository

import "time"

// DefaultCapacity is the number of entries kept when none is configured.
const DefaultCapacity = 500

// Option applies a configuration option to the RingStore.
type Option func(*RingStore)

// WithCapacity bounds how many entries are retained.
func WithCapacity(n int) Option {
	return func(s *RingStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *RingStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}
