package recognition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/handnav/internal/domain/gesture"
)

// ScriptOption configures a ScriptSource.
type ScriptOption func(*ScriptSource)

// WithScriptInterval sets the time between readings.
func WithScriptInterval(d time.Duration) ScriptOption {
	return func(s *ScriptSource) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLoop restarts the script from the top instead of ending the stream.
func WithLoop(loop bool) ScriptOption {
	return func(s *ScriptSource) {
		s.loop = loop
	}
}

// ScriptSource replays a fixed list of readings. Each Stream call starts from
// the first reading.
type ScriptSource struct {
	interval time.Duration
	loop     bool
	readings []gesture.Reading

	mu     sync.Mutex
	played int
}

// NewScriptSource replays readings in order.
func NewScriptSource(readings []gesture.Reading, opts ...ScriptOption) *ScriptSource {
	s := &ScriptSource{
		interval: DefaultInterval,
		readings: append([]gesture.Reading(nil), readings...),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Source.
func (s *ScriptSource) Name() string { return KindScript }

// Played reports how many readings have been emitted across all streams.
func (s *ScriptSource) Played() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.played
}

// Stream implements Source. A non-looping script ends after its last reading.
func (s *ScriptSource) Stream(ctx context.Context) <-chan gesture.Reading {
	i := 0
	return tick(ctx, s.interval, func(now time.Time) (gesture.Reading, bool) {
		if len(s.readings) == 0 {
			return gesture.Reading{}, false
		}
		if i >= len(s.readings) {
			if !s.loop {
				return gesture.Reading{}, false
			}
			i = 0
		}
		r := s.readings[i]
		i++
		if r.At.IsZero() {
			r.At = now
		}
		s.mu.Lock()
		s.played++
		s.mu.Unlock()
		return r, true
	})
}

type scriptEntry struct {
	Gesture    string          `koanf:"gesture"`
	Confidence float64         `koanf:"confidence"`
	Landmarks  []gesture.Point `koanf:"landmarks"`
}

// LoadScript reads a YAML readings script:
//
//	loop: true
//	readings:
//	  - gesture: pointing_up
//	    confidence: 85
func LoadScript(path string) ([]gesture.Reading, bool, error) {
	if path == "" {
		return nil, false, fmt.Errorf("%w: empty path", ErrScript)
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %w", ErrScript, path, err)
	}

	var entries []scriptEntry
	if err := k.UnmarshalWithConf("readings", &entries, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrScript, err)
	}
	if len(entries) == 0 {
		return nil, false, fmt.Errorf("%w: no readings", ErrScript)
	}

	readings := make([]gesture.Reading, 0, len(entries))
	for i, e := range entries {
		id, ok := gesture.Parse(e.Gesture)
		if !ok {
			return nil, false, fmt.Errorf("%w: reading %d: unknown gesture %q", ErrScript, i, e.Gesture)
		}
		readings = append(readings, gesture.Reading{
			Gesture:    id,
			Confidence: e.Confidence,
			Landmarks:  e.Landmarks,
		}.Clamp())
	}
	return readings, k.Bool("loop"), nil
}
