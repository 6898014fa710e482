package recognition

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/handnav/internal/domain/gesture"
)

// RandomOption configures a RandomSource.
type RandomOption func(*RandomSource)

// WithInterval sets the time between readings.
func WithInterval(d time.Duration) RandomOption {
	return func(s *RandomSource) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSeed makes the draw sequence deterministic.
func WithSeed(seed int64) RandomOption {
	return func(s *RandomSource) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // simulation, not security
	}
}

// WithGestures restricts the vocabulary drawn from.
func WithGestures(ids ...gesture.ID) RandomOption {
	return func(s *RandomSource) {
		if len(ids) > 0 {
			s.vocabulary = append([]gesture.ID(nil), ids...)
		}
	}
}

// RandomSource simulates a recognizer: every tick it picks a gesture from the
// vocabulary (all gestures plus none) and a confidence in [0,100).
type RandomSource struct {
	interval   time.Duration
	vocabulary []gesture.ID

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource creates the simulated recognizer.
func NewRandomSource(opts ...RandomOption) *RandomSource {
	s := &RandomSource{
		interval:   DefaultInterval,
		vocabulary: gesture.WithNone(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // simulation
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Source.
func (s *RandomSource) Name() string { return KindRandom }

// Stream implements Source.
func (s *RandomSource) Stream(ctx context.Context) <-chan gesture.Reading {
	return tick(ctx, s.interval, func(now time.Time) (gesture.Reading, bool) {
		return s.Draw(now), true
	})
}

// Draw produces one reading stamped at.
func (s *RandomSource) Draw(at time.Time) gesture.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gesture.Reading{
		Gesture:    s.vocabulary[s.rng.Intn(len(s.vocabulary))],
		Confidence: s.rng.Float64() * gesture.MaxConfidence,
		Landmarks:  []gesture.Point{},
		At:         at,
	}
}
