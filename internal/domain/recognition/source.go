// Package recognition defines where gesture readings come from.
//
// A Source is a lazy, infinite, restartable sequence: every call to Stream
// starts a new sequence that ticks once per interval until its context is
// cancelled. Nothing is sent after cancellation, including a reading that was
// already drawn when the cancel arrived.
package recognition

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/handnav/internal/domain/gesture"
)

// DefaultInterval is the time between readings.
const DefaultInterval = 500 * time.Millisecond

// Source produces gesture readings.
type Source interface {
	// Name identifies the implementation in logs and stats.
	Name() string

	// Stream starts a new sequence; the channel closes when ctx is done.
	Stream(ctx context.Context) <-chan gesture.Reading
}

// Kinds accepted by New.
const (
	KindRandom = "random"
	KindScript = "script"
)

// Settings selects and configures a Source for New.
type Settings struct {
	Kind       string
	Interval   time.Duration
	Seed       int64
	ScriptPath string
}

// New builds a Source from settings.
func New(s Settings) (Source, error) {
	switch s.Kind {
	case "", KindRandom:
		opts := []RandomOption{WithInterval(s.Interval)}
		if s.Seed != 0 {
			opts = append(opts, WithSeed(s.Seed))
		}
		return NewRandomSource(opts...), nil
	case KindScript:
		readings, loop, err := LoadScript(s.ScriptPath)
		if err != nil {
			return nil, err
		}
		return NewScriptSource(readings, WithScriptInterval(s.Interval), WithLoop(loop)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, s.Kind)
	}
}

// tick drives a ticker-paced stream: next is called once per interval and its
// reading is delivered unless ctx ends first. next returning false ends the stream.
func tick(ctx context.Context, interval time.Duration, next func(time.Time) (gesture.Reading, bool)) <-chan gesture.Reading {
	out := make(chan gesture.Reading)
	go func() {
		defer close(out)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				r, ok := next(now)
				if !ok {
					return
				}
				select {
				case <-ctx.Done():
					return
				default:
				}
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
