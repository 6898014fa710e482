// Package service is the session controller: it owns the recognition loop,
// turns qualifying readings into actions and broadcasts them to other tabs.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/okian/handnav/internal/adapters/broadcast"
	"github.com/okian/handnav/internal/adapters/camera"
	"github.com/okian/handnav/internal/adapters/repository"
	"github.com/okian/handnav/internal/domain/actions"
	"github.com/okian/handnav/internal/domain/gesture"
	"github.com/okian/handnav/internal/domain/model"
	"github.com/okian/handnav/internal/domain/recognition"
	"github.com/okian/handnav/internal/domain/stats"
	"github.com/okian/handnav/internal/domain/types"
	"github.com/okian/handnav/pkg/logger"
	"github.com/okian/handnav/pkg/metrics"
)

// Registry resolves gestures to handlers.
type Registry interface {
	Lookup(id gesture.ID) (actions.Handler, bool)
	Gestures() []actions.Descriptor
}

// Service is the session controller.
//
// Every mutation of session state happens under mu. Readings from the source
// are consumed by one loop goroutine, so ticks are strictly sequential; a
// generation counter, bumped by Start and Stop, lets a tick that lost the
// race with Stop discard itself.
type Service struct {
	mu sync.Mutex

	// Collaborators
	source   recognition.Source
	registry Registry
	channel  broadcast.Channel
	camera   camera.Acquirer
	history  repository.Store

	// Configuration
	threshold     float64
	constraints   camera.Constraints
	remoteActions bool
	now           func() time.Time

	// State
	state      State
	generation uint64
	current    gesture.ID
	confidence float64
	stats      stats.Tracker
	message    string
	startedAt  time.Time
	stream     camera.Stream
	cancel     context.CancelFunc
	loopDone   chan struct{}
	acquiring  chan struct{}
	teardown   chan struct{}
	closed     bool

	unsubscribe func()

	logger logger.Logger
}

// New wires a controller. channel may be nil, in which case the session runs
// as a single tab. The controller subscribes to channel immediately, so
// gestures from other tabs are applied even while this one is idle.
func New(source recognition.Source, registry Registry, channel broadcast.Channel, opts ...Option) *Service {
	s := &Service{
		source:        source,
		registry:      registry,
		channel:       channel,
		threshold:     DefaultThreshold,
		constraints:   camera.DefaultConstraints(),
		remoteActions: true,
		now:           time.Now,
		current:       gesture.None,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("session")
	}
	if s.camera == nil {
		s.camera = camera.NewDevice()
	}
	if s.channel == nil {
		s.channel, _ = broadcast.NewNoopTransport().Open(context.Background(), model.DefaultChannel)
	}
	s.unsubscribe = s.channel.Subscribe(s.onRemote)

	metrics.UpdateSessionState(int(Idle))
	return s
}

// Start acquires the camera and begins consuming readings. It is a no-op
// unless the session is idle.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	for s.teardown != nil {
		wait := s.teardown
		s.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
	}
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != Idle {
		s.mu.Unlock()
		return nil
	}
	s.state = Acquiring
	s.generation++
	gen := s.generation
	s.message = ""
	acqCtx, acqCancel := context.WithCancel(ctx)
	acquired := make(chan struct{})
	s.cancel = acqCancel
	s.acquiring = acquired
	s.mu.Unlock()
	defer acqCancel()
	defer close(acquired)

	metrics.UpdateSessionState(int(Acquiring))
	s.logger.Info(ctx, "requesting camera", logger.String("constraints", s.constraints.String()))

	stream, err := s.camera.Acquire(acqCtx, s.constraints)

	s.mu.Lock()
	s.acquiring = nil
	if s.generation != gen {
		s.mu.Unlock()
		if stream != nil {
			stream.Release()
		}
		s.logger.Info(ctx, "session stopped while acquiring camera")
		return ErrCancelled
	}
	if err != nil {
		s.state = Idle
		s.cancel = nil
		s.message = camera.UserMessage(err)
		s.mu.Unlock()

		metrics.UpdateSessionState(int(Idle))
		metrics.RecordErrorByComponent("session", "camera")
		s.logger.Warn(ctx, "camera acquisition failed", logger.Error(err))
		return fmt.Errorf("%w: %w", ErrAcquire, err)
	}

	loopCtx, loopCancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.state = Active
	s.stream = stream
	s.startedAt = s.now()
	s.cancel = loopCancel
	s.loopDone = done
	readings := s.source.Stream(loopCtx)
	s.mu.Unlock()

	go s.run(gen, readings, done)

	metrics.UpdateSessionState(int(Active))
	s.logger.Info(ctx, "session active",
		logger.String("recognizer", s.source.Name()),
		logger.Float64("threshold", s.threshold),
	)
	return nil
}

// Stop ends the session from any state. It is idempotent and returns once
// the loop has exited and the camera is released. Statistics are kept.
//
// The session reads Idle as soon as Stop begins; a Start issued before the
// teardown finishes waits for it.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.state == Idle {
		wait := s.teardown
		s.mu.Unlock()
		if wait != nil {
			<-wait
		}
		return
	}
	s.generation++
	s.state = Idle
	cancel, done, stream, acquiring := s.cancel, s.loopDone, s.stream, s.acquiring
	s.cancel, s.loopDone, s.stream, s.acquiring = nil, nil, nil, nil
	s.current = gesture.None
	s.confidence = 0
	s.startedAt = time.Time{}
	teardown := make(chan struct{})
	s.teardown = teardown
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if acquiring != nil {
		<-acquiring
	}
	if done != nil {
		<-done
	}
	if stream != nil {
		stream.Release()
	}
	metrics.UpdateSessionState(int(Idle))

	s.mu.Lock()
	if s.teardown == teardown {
		s.teardown = nil
	}
	s.mu.Unlock()
	close(teardown)

	s.logger.Info(context.Background(), "session stopped")
}

// Close stops the session and leaves the broadcast channel.
func (s *Service) Close() error {
	s.Stop()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	unsubscribe()
	return s.channel.Close()
}

func (s *Service) run(gen uint64, readings <-chan gesture.Reading, done chan struct{}) {
	defer close(done)
	for r := range readings {
		s.tick(gen, r)
	}
}

// tick evaluates one reading from the loop unless Stop superseded it.
func (s *Service) tick(gen uint64, r gesture.Reading) {
	s.mu.Lock()
	if s.generation != gen || s.state != Active {
		s.mu.Unlock()
		return
	}
	out, msg := s.evaluateLocked(r)
	s.mu.Unlock()

	s.afterEvaluate(context.Background(), r, &out, msg)
}

// Evaluate runs the tick logic on a reading submitted directly, for example
// through the API. It works in any session state.
func (s *Service) Evaluate(ctx context.Context, r gesture.Reading) types.Outcome {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return types.Outcome{Gesture: r.Gesture, Confidence: r.Confidence, Reason: types.ReasonClosed}
	}
	out, msg := s.evaluateLocked(r)
	s.mu.Unlock()

	s.afterEvaluate(ctx, r, &out, msg)
	return out
}

// evaluateLocked applies one reading to the session. Counters move first
// and accuracy follows; a qualifying gesture then runs its handler. The
// returned message, if any, must be published once the lock is released.
func (s *Service) evaluateLocked(r gesture.Reading) (types.Outcome, *model.Message) {
	start := time.Now()
	defer func() {
		metrics.RecordTickLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	r = r.Clamp()
	if r.At.IsZero() {
		r.At = s.now()
	}
	if s.state != Idle {
		s.current = r.Gesture
		s.confidence = r.Confidence
	}

	out := types.Outcome{Gesture: r.Gesture, Confidence: r.Confidence}
	switch {
	case r.Gesture.IsNone():
		out.Reason = types.ReasonNoGesture
	case !r.Gesture.Known():
		out.Reason = types.ReasonUnknownGesture
	case r.Confidence < s.threshold:
		out.Reason = types.ReasonLowConfidence
	}

	if out.Reason != "" {
		s.stats.Rejected()
		metrics.RecordReading(string(r.Gesture), out.Reason)
		metrics.UpdateAccuracy(s.stats.Snapshot().Accuracy)
		return out, nil
	}

	s.stats.Detected()
	out.Accepted = true
	metrics.RecordReading(string(r.Gesture), "accepted")
	metrics.RecordGestureDetected(string(r.Gesture))
	metrics.UpdateAccuracy(s.stats.Snapshot().Accuracy)

	if h, ok := s.registry.Lookup(r.Gesture); ok {
		h()
		out.Executed = s.stats.Executed()
		metrics.RecordActionExecuted(string(r.Gesture), "local")
	}

	data, _ := json.Marshal(map[string]any{
		"confidence": r.Confidence,
		"source":     s.source.Name(),
	})
	msg := broadcast.NewGestureMessage(r.Gesture, data, r.At)
	out.EventID = msg.ID
	return out, &msg
}

// afterEvaluate publishes and records an accepted reading.
func (s *Service) afterEvaluate(ctx context.Context, r gesture.Reading, out *types.Outcome, msg *model.Message) {
	if msg == nil {
		return
	}
	if err := s.channel.Publish(ctx, *msg); err != nil {
		metrics.RecordErrorByComponent("session", "publish")
		s.logger.Warn(ctx, "broadcast failed",
			logger.String("gesture", string(r.Gesture)),
			logger.Error(err))
	} else {
		out.Published = true
	}

	s.logger.Debug(ctx, "gesture dispatched",
		logger.String("gesture", string(out.Gesture)),
		logger.Float64("confidence", out.Confidence),
		logger.Bool("executed", out.Executed))

	s.record(ctx, types.HistoryEntry{
		EventID:    out.EventID,
		Gesture:    out.Gesture,
		Confidence: out.Confidence,
		Origin:     s.channel.ID(),
		Executed:   out.Executed,
		At:         msg.Time(),
	})
}

// onRemote handles a gesture announced by another tab. It is counted and
// recorded but never re-broadcast.
func (s *Service) onRemote(ctx context.Context, m model.Message) { //nolint:gocritic // hugeParam: handler signature
	ev, ok := broadcast.DecodeGesture(m)
	if !ok {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	executed := false
	if s.remoteActions {
		if h, found := s.registry.Lookup(ev.Gesture); found {
			h()
			executed = true
		}
	}
	s.stats.Remote()
	s.mu.Unlock()

	if executed {
		metrics.RecordActionExecuted(string(ev.Gesture), "remote")
	}
	s.logger.Debug(ctx, "remote gesture received",
		logger.String("gesture", string(ev.Gesture)),
		logger.String("origin", ev.Origin),
		logger.Bool("executed", executed))

	s.record(ctx, types.HistoryEntry{
		EventID:  ev.ID,
		Gesture:  ev.Gesture,
		Origin:   ev.Origin,
		Remote:   true,
		Executed: executed,
		At:       ev.Timestamp,
	})
}

func (s *Service) record(ctx context.Context, e types.HistoryEntry) {
	if s.history == nil {
		return
	}
	if _, err := s.history.Append(ctx, e); err != nil {
		s.logger.Debug(ctx, "history append skipped", logger.Error(err))
	}
}

// ResetStats clears the statistics.
func (s *Service) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Reset()
	metrics.UpdateAccuracy(0)
}

// State returns the lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a copy of the statistics.
func (s *Service) Stats() stats.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.Snapshot()
}

// Snapshot returns the current session view.
func (s *Service) Snapshot() types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := types.Session{
		State:          s.state.String(),
		Running:        s.state == Active,
		CurrentGesture: s.current,
		Confidence:     s.confidence,
		Threshold:      s.threshold,
		Stats:          s.stats.Snapshot(),
		Message:        s.message,
		Source:         s.source.Name(),
		Channel:        s.channel.Name(),
		Endpoint:       s.channel.ID(),
	}
	if !s.startedAt.IsZero() {
		at := s.startedAt
		out.StartedAt = &at
	}
	return out
}

// Gestures lists the action table.
func (s *Service) Gestures() []actions.Descriptor {
	return s.registry.Gestures()
}

// History returns up to n recent gestures, newest first.
func (s *Service) History(ctx context.Context, n int) ([]types.HistoryEntry, error) {
	if s.history == nil {
		return []types.HistoryEntry{}, nil
	}
	return s.history.Recent(ctx, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	snap := s.Snapshot()
	out := map[string]interface{}{
		"state":             snap.State,
		"running":           snap.Running,
		"source":            snap.Source,
		"channel":           snap.Channel,
		"threshold":         snap.Threshold,
		"current_gesture":   string(snap.CurrentGesture),
		"confidence":        snap.Confidence,
		"gestures_detected": snap.Stats.GesturesDetected,
		"rejected":          snap.Stats.Rejected,
		"actions_executed":  snap.Stats.ActionsExecuted,
		"remote_actions":    snap.Stats.RemoteActions,
		"accuracy":          snap.Stats.Accuracy,
	}
	if s.history != nil {
		n := s.history.Count(context.Background())
		out["history_size"] = n
		metrics.UpdateHistorySize(n)
	}
	return out
}
