package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/handnav/internal/adapters/broadcast"
	"github.com/okian/handnav/internal/adapters/camera"
	"github.com/okian/handnav/internal/adapters/host"
	"github.com/okian/handnav/internal/adapters/repository"
	service "github.com/okian/handnav/internal/app"
	"github.com/okian/handnav/internal/domain/actions"
	"github.com/okian/handnav/internal/domain/gesture"
	"github.com/okian/handnav/internal/domain/model"
	"github.com/okian/handnav/internal/domain/recognition"
	"github.com/okian/handnav/internal/domain/types"
	"github.com/okian/handnav/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const tick = 2 * time.Millisecond

type tab struct {
	browser *host.Browser
	channel broadcast.Channel
	svc     *service.Service
}

func newTab(t *testing.T, tr broadcast.Transport, src recognition.Source, opts ...service.Option) *tab {
	t.Helper()
	b := host.NewBrowser()
	b.ScrollBy(0, 300)
	h := b.Host()
	reg := actions.NewRegistry(h, actions.Probe(h))

	ch, err := tr.Open(context.Background(), model.DefaultChannel)
	if err != nil {
		t.Fatal(err)
	}
	return &tab{browser: b, channel: ch, svc: service.New(src, reg, ch, opts...)}
}

func idleSource() recognition.Source {
	return recognition.NewScriptSource(nil, recognition.WithScriptInterval(tick))
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

type inbox struct {
	mu   sync.Mutex
	msgs []model.Message
}

func (b *inbox) handle(_ context.Context, m model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, m)
}

func (b *inbox) all() []model.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Message(nil), b.msgs...)
}

func TestService_New(t *testing.T) {
	Convey("Given a controller without a channel", t, func() {
		b := host.NewBrowser()
		reg := actions.NewRegistry(b.Host(), actions.Probe(b.Host()))
		svc := service.New(idleSource(), reg, nil)
		defer svc.Close()

		Convey("Then it should start idle with defaults", func() {
			snap := svc.Snapshot()
			So(snap.State, ShouldEqual, "idle")
			So(snap.Running, ShouldBeFalse)
			So(snap.CurrentGesture, ShouldEqual, gesture.None)
			So(snap.Threshold, ShouldEqual, service.DefaultThreshold)
			So(snap.Channel, ShouldEqual, model.DefaultChannel)
			So(snap.StartedAt, ShouldBeNil)
			So(len(svc.Gestures()), ShouldEqual, 8)
		})

		Convey("Then an accepted reading should still execute locally", func() {
			out := svc.Evaluate(context.Background(), gesture.Reading{Gesture: gesture.PeaceSign, Confidence: 90})
			So(out.Executed, ShouldBeTrue)
			So(out.Published, ShouldBeTrue)
			So(b.Snapshot().Reloads, ShouldEqual, 1)
		})
	})
}

func TestService_Evaluate(t *testing.T) {
	Convey("Given a controller and a second tab on a memory channel", t, func() {
		tr := broadcast.NewMemoryTransport()
		defer tr.Close()
		a := newTab(t, tr, idleSource())
		defer a.svc.Close()

		peer, err := tr.Open(context.Background(), model.DefaultChannel)
		So(err, ShouldBeNil)
		var received inbox
		peer.Subscribe(received.handle)
		ctx := context.Background()

		Convey("When pointing_up arrives at 85%", func() {
			out := a.svc.Evaluate(ctx, gesture.Reading{Gesture: gesture.PointingUp, Confidence: 85})

			Convey("Then it should scroll up once, count and broadcast", func() {
				So(out.Accepted, ShouldBeTrue)
				So(out.Executed, ShouldBeTrue)
				So(out.Published, ShouldBeTrue)
				So(out.EventID, ShouldNotBeEmpty)
				So(a.browser.Snapshot().ScrollY, ShouldEqual, 200)

				st := a.svc.Stats()
				So(st.GesturesDetected, ShouldEqual, 1)
				So(st.ActionsExecuted, ShouldEqual, 1)
				So(st.Accuracy, ShouldEqual, 100)

				So(eventually(func() bool { return len(received.all()) == 1 }), ShouldBeTrue)
				m := received.all()[0]
				So(m.Type, ShouldEqual, "gesture-action")
				So(m.Gesture, ShouldEqual, "pointing_up")
				So(m.Timestamp, ShouldBeGreaterThan, 0)
				So(m.ID, ShouldEqual, out.EventID)
			})
		})

		Convey("When none arrives at 95%", func() {
			out := a.svc.Evaluate(ctx, gesture.Reading{Gesture: gesture.None, Confidence: 95})

			Convey("Then nothing should run", func() {
				So(out.Accepted, ShouldBeFalse)
				So(out.Reason, ShouldEqual, types.ReasonNoGesture)
				So(a.svc.Stats().ActionsExecuted, ShouldEqual, 0)
				So(a.svc.Stats().Rejected, ShouldEqual, 1)
				So(a.browser.Snapshot().ScrollY, ShouldEqual, 300)
				time.Sleep(20 * time.Millisecond)
				So(len(received.all()), ShouldEqual, 0)
			})
		})

		Convey("When the confidence is below the threshold", func() {
			out := a.svc.Evaluate(ctx, gesture.Reading{Gesture: gesture.PointingDown, Confidence: 69.9})
			So(out.Reason, ShouldEqual, types.ReasonLowConfidence)
			So(a.browser.Snapshot().ScrollY, ShouldEqual, 300)
		})

		Convey("When the confidence equals the threshold", func() {
			out := a.svc.Evaluate(ctx, gesture.Reading{Gesture: gesture.PointingDown, Confidence: 70})
			So(out.Executed, ShouldBeTrue)
			So(a.browser.Snapshot().ScrollY, ShouldEqual, 400)
		})

		Convey("When the gesture is unknown", func() {
			out := a.svc.Evaluate(ctx, gesture.Reading{Gesture: "wave", Confidence: 99})
			So(out.Reason, ShouldEqual, types.ReasonUnknownGesture)
			So(a.svc.Stats().Rejected, ShouldEqual, 1)
		})

		Convey("When a mix of readings is evaluated", func() {
			for _, r := range []gesture.Reading{
				{Gesture: gesture.Pinch, Confidence: 90},
				{Gesture: gesture.Pinch, Confidence: 10},
				{Gesture: gesture.None, Confidence: 99},
				{Gesture: gesture.OKSign, Confidence: 71},
			} {
				a.svc.Evaluate(ctx, r)
			}

			Convey("Then accuracy should be detected over evaluated", func() {
				st := a.svc.Stats()
				So(st.GesturesDetected, ShouldEqual, 2)
				So(st.Rejected, ShouldEqual, 2)
				So(st.Accuracy, ShouldEqual, 50)
				So(st.ActionsExecuted, ShouldBeLessThanOrEqualTo, st.GesturesDetected)
			})

			Convey("Then ResetStats should clear the counters", func() {
				a.svc.ResetStats()
				So(a.svc.Stats().GesturesDetected, ShouldEqual, 0)
				So(a.svc.Stats().Accuracy, ShouldEqual, 0)
			})
		})
	})
}

func TestService_TwoTabs(t *testing.T) {
	Convey("Given two controllers on the same channel", t, func() {
		tr := broadcast.NewMemoryTransport()
		defer tr.Close()
		store := repository.NewRingStore(context.Background())
		defer store.Close()

		a := newTab(t, tr, idleSource())
		b := newTab(t, tr, idleSource(), service.WithHistory(store))
		defer a.svc.Close()
		defer b.svc.Close()

		Convey("When A dispatches a gesture", func() {
			a.svc.Evaluate(context.Background(), gesture.Reading{Gesture: gesture.PointingDown, Confidence: 90})

			Convey("Then B should apply it exactly once and A should not see it again", func() {
				So(eventually(func() bool { return b.svc.Stats().RemoteActions == 1 }), ShouldBeTrue)
				time.Sleep(20 * time.Millisecond)

				So(b.svc.Stats().RemoteActions, ShouldEqual, 1)
				So(b.svc.Stats().ActionsExecuted, ShouldEqual, 0)
				So(b.browser.Snapshot().ScrollY, ShouldEqual, 400)

				So(a.svc.Stats().RemoteActions, ShouldEqual, 0)
				So(a.browser.Snapshot().ScrollY, ShouldEqual, 400)

				hist, err := b.svc.History(context.Background(), 10)
				So(err, ShouldBeNil)
				So(len(hist), ShouldEqual, 1)
				So(hist[0].Remote, ShouldBeTrue)
				So(hist[0].Origin, ShouldEqual, a.channel.ID())
			})
		})
	})

	Convey("Given a receiving tab with remote actions disabled", t, func() {
		tr := broadcast.NewMemoryTransport()
		defer tr.Close()
		a := newTab(t, tr, idleSource())
		b := newTab(t, tr, idleSource(), service.WithRemoteActions(false))
		defer a.svc.Close()
		defer b.svc.Close()

		a.svc.Evaluate(context.Background(), gesture.Reading{Gesture: gesture.PointingDown, Confidence: 90})

		Convey("Then the gesture should be counted but not applied", func() {
			So(eventually(func() bool { return b.svc.Stats().RemoteActions == 1 }), ShouldBeTrue)
			So(b.browser.Snapshot().ScrollY, ShouldEqual, 300)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a controller fed by a looping script", t, func() {
		script := []gesture.Reading{
			{Gesture: gesture.PointingDown, Confidence: 90},
			{Gesture: gesture.None, Confidence: 90},
			{Gesture: gesture.PeaceSign, Confidence: 20},
		}
		src := recognition.NewScriptSource(script, recognition.WithScriptInterval(tick), recognition.WithLoop(true))
		cam := camera.NewDevice()
		store := repository.NewRingStore(context.Background())
		defer store.Close()

		tr := broadcast.NewMemoryTransport()
		defer tr.Close()
		tb := newTab(t, tr, src, service.WithCamera(cam), service.WithHistory(store))
		defer tb.svc.Close()
		svc := tb.svc

		Convey("When started", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.State(), ShouldEqual, service.Active)
			So(cam.Held(), ShouldBeTrue)
			So(svc.Snapshot().StartedAt, ShouldNotBeNil)

			Convey("Then readings should be evaluated in order", func() {
				So(eventually(func() bool { return svc.Stats().GesturesDetected >= 3 }), ShouldBeTrue)
				st := svc.Stats()
				So(st.ActionsExecuted, ShouldBeLessThanOrEqualTo, st.GesturesDetected)
				So(st.Rejected, ShouldBeGreaterThanOrEqualTo, 4)
				So(store.Count(context.Background()), ShouldBeGreaterThanOrEqualTo, 3)
			})

			Convey("Then a second Start should be a no-op", func() {
				So(svc.Start(context.Background()), ShouldBeNil)
				So(cam.Acquisitions(), ShouldEqual, 1)
			})

			Convey("Then Stop should release everything and keep statistics", func() {
				So(eventually(func() bool { return svc.Stats().GesturesDetected >= 1 }), ShouldBeTrue)
				svc.Stop()

				So(svc.State(), ShouldEqual, service.Idle)
				So(cam.Held(), ShouldBeFalse)
				snap := svc.Snapshot()
				So(snap.CurrentGesture, ShouldEqual, gesture.None)
				So(snap.Confidence, ShouldEqual, 0)
				So(snap.StartedAt, ShouldBeNil)

				before := svc.Stats()
				So(before.GesturesDetected, ShouldBeGreaterThanOrEqualTo, 1)
				time.Sleep(20 * time.Millisecond)
				So(svc.Stats(), ShouldResemble, before)

				Convey("And Stop again should be harmless", func() {
					So(func() { svc.Stop() }, ShouldNotPanic)
					So(svc.State(), ShouldEqual, service.Idle)
				})

				Convey("And the session can start again", func() {
					So(svc.Start(context.Background()), ShouldBeNil)
					So(cam.Acquisitions(), ShouldEqual, 2)
					svc.Stop()
				})
			})
		})

		Convey("When stopped without being started", func() {
			So(func() { svc.Stop(); svc.Stop() }, ShouldNotPanic)
			So(svc.State(), ShouldEqual, service.Idle)
		})
	})
}

// gatedChannel holds every Publish until gate is closed.
type gatedChannel struct {
	broadcast.Channel
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (c *gatedChannel) Publish(ctx context.Context, m model.Message) error {
	c.once.Do(func() { close(c.entered) })
	<-c.gate
	return c.Channel.Publish(ctx, m)
}

func TestService_RestartDuringStop(t *testing.T) {
	Convey("Given an active session whose tick is parked mid-publish", t, func() {
		script := []gesture.Reading{{Gesture: gesture.PointingDown, Confidence: 90}}
		src := recognition.NewScriptSource(script, recognition.WithScriptInterval(tick), recognition.WithLoop(true))
		cam := camera.NewDevice()

		tr := broadcast.NewMemoryTransport()
		defer tr.Close()
		inner, err := tr.Open(context.Background(), model.DefaultChannel)
		So(err, ShouldBeNil)
		ch := &gatedChannel{Channel: inner, gate: make(chan struct{}), entered: make(chan struct{})}

		b := host.NewBrowser()
		reg := actions.NewRegistry(b.Host(), actions.Probe(b.Host()))
		svc := service.New(src, reg, ch, service.WithCamera(cam))
		defer svc.Close()

		So(svc.Start(context.Background()), ShouldBeNil)
		select {
		case <-ch.entered:
		case <-time.After(2 * time.Second):
			t.Fatal("no publish")
		}

		stopped := make(chan struct{})
		go func() {
			svc.Stop()
			close(stopped)
		}()
		So(eventually(func() bool { return svc.State() == service.Idle }), ShouldBeTrue)

		Convey("When Start is called before the teardown finishes", func() {
			started := make(chan error, 1)
			go func() { started <- svc.Start(context.Background()) }()

			time.Sleep(10 * time.Millisecond)
			So(svc.State(), ShouldEqual, service.Idle)
			close(ch.gate)

			Convey("Then it should wait and reach Active with the camera", func() {
				select {
				case err := <-started:
					So(err, ShouldBeNil)
				case <-time.After(2 * time.Second):
					t.Fatal("start did not return")
				}
				<-stopped
				So(svc.State(), ShouldEqual, service.Active)
				So(svc.Snapshot().Message, ShouldBeEmpty)
				So(cam.Held(), ShouldBeTrue)
				So(cam.Acquisitions(), ShouldEqual, 2)

				svc.Stop()
				So(cam.Held(), ShouldBeFalse)
			})
		})

		Convey("When Start gives up waiting", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			err := svc.Start(ctx)
			close(ch.gate)
			<-stopped

			Convey("Then it should return the context error and leave the session idle", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(svc.State(), ShouldEqual, service.Idle)
				So(cam.Held(), ShouldBeFalse)
				So(cam.Acquisitions(), ShouldEqual, 1)
			})
		})
	})
}

type fieldRecorder struct {
	mu     sync.Mutex
	fields map[string][]logger.Field
}

func (r *fieldRecorder) record(msg string, fields []logger.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fields == nil {
		r.fields = map[string][]logger.Field{}
	}
	r.fields[msg] = append([]logger.Field(nil), fields...)
}

func (r *fieldRecorder) keys(msg string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, f := range r.fields[msg] {
		out = append(out, f.Key)
	}
	return out
}

func (r *fieldRecorder) Info(_ context.Context, msg string, f ...logger.Field)  { r.record(msg, f) }
func (r *fieldRecorder) Error(_ context.Context, msg string, f ...logger.Field) { r.record(msg, f) }
func (r *fieldRecorder) Debug(_ context.Context, msg string, f ...logger.Field) { r.record(msg, f) }
func (r *fieldRecorder) Warn(_ context.Context, msg string, f ...logger.Field)  { r.record(msg, f) }
func (r *fieldRecorder) Fatal(_ context.Context, msg string, f ...logger.Field) { r.record(msg, f) }
func (r *fieldRecorder) Named(string) logger.Logger                              { return r }

func TestService_LogFields(t *testing.T) {
	Convey("Given a controller with a recording logger", t, func() {
		rec := &fieldRecorder{}
		tr := broadcast.NewMemoryTransport()
		defer tr.Close()
		tb := newTab(t, tr, idleSource(), service.WithLogger(rec))
		defer tb.svc.Close()

		Convey("When the session becomes active", func() {
			So(tb.svc.Start(context.Background()), ShouldBeNil)
			tb.svc.Stop()

			Convey("Then the recognizer name should not shadow the caller field", func() {
				keys := rec.keys("session active")
				So(keys, ShouldContain, "recognizer")
				So(keys, ShouldNotContain, "source")
			})
		})
	})
}

func TestService_CameraFailures(t *testing.T) {
	Convey("Given a denied camera", t, func() {
		tr := broadcast.NewMemoryTransport()
		defer tr.Close()
		tb := newTab(t, tr, idleSource(), service.WithCamera(camera.NewDevice(camera.WithDenied(true))))
		defer tb.svc.Close()

		Convey("When starting", func() {
			err := tb.svc.Start(context.Background())

			Convey("Then the session should stay idle with a message", func() {
				So(errors.Is(err, service.ErrAcquire), ShouldBeTrue)
				So(errors.Is(err, camera.ErrPermissionDenied), ShouldBeTrue)
				So(tb.svc.State(), ShouldEqual, service.Idle)
				So(tb.svc.Snapshot().Message, ShouldEqual, "Camera access denied. Please allow camera permissions.")
			})
		})
	})

	Convey("Given a slow camera", t, func() {
		tr := broadcast.NewMemoryTransport()
		defer tr.Close()
		cam := camera.NewDevice(camera.WithAcquireDelay(time.Second))
		tb := newTab(t, tr, idleSource(), service.WithCamera(cam))
		defer tb.svc.Close()

		Convey("When stopped while acquiring", func() {
			errCh := make(chan error, 1)
			go func() { errCh <- tb.svc.Start(context.Background()) }()
			So(eventually(func() bool { return tb.svc.State() == service.Acquiring }), ShouldBeTrue)
			tb.svc.Stop()

			Convey("Then Start should report cancellation and nothing is held", func() {
				var err error
				select {
				case err = <-errCh:
				case <-time.After(2 * time.Second):
					t.Fatal("start did not return")
				}
				So(errors.Is(err, service.ErrCancelled), ShouldBeTrue)
				So(tb.svc.State(), ShouldEqual, service.Idle)
				So(cam.Held(), ShouldBeFalse)
			})
		})
	})
}

func TestService_EvaluateWhileIdle(t *testing.T) {
	Convey("Given an idle controller", t, func() {
		tr := broadcast.NewMemoryTransport()
		defer tr.Close()
		tb := newTab(t, tr, idleSource())
		defer tb.svc.Close()

		Convey("When readings are submitted directly", func() {
			ctx := context.Background()
			out := tb.svc.Evaluate(ctx, gesture.Reading{Gesture: gesture.PointingDown, Confidence: 90})
			tb.svc.Evaluate(ctx, gesture.Reading{Gesture: gesture.Pinch, Confidence: 10})

			Convey("Then counters should move but the displayed gesture should stay cleared", func() {
				So(out.Accepted, ShouldBeTrue)
				st := tb.svc.Stats()
				So(st.GesturesDetected, ShouldEqual, 1)
				So(st.Rejected, ShouldEqual, 1)
				snap := tb.svc.Snapshot()
				So(snap.CurrentGesture, ShouldEqual, gesture.None)
				So(snap.Confidence, ShouldEqual, 0)
			})
		})
	})
}

func TestService_Close(t *testing.T) {
	Convey("Given a closed controller", t, func() {
		tr := broadcast.NewMemoryTransport()
		defer tr.Close()
		tb := newTab(t, tr, idleSource())
		So(tb.svc.Close(), ShouldBeNil)
		So(tb.svc.Close(), ShouldBeNil)

		Convey("Then it should refuse to start and ignore readings", func() {
			So(errors.Is(tb.svc.Start(context.Background()), service.ErrClosed), ShouldBeTrue)
			out := tb.svc.Evaluate(context.Background(), gesture.Reading{Gesture: gesture.Pinch, Confidence: 99})
			So(out.Reason, ShouldEqual, types.ReasonClosed)
			So(tr.Endpoints(model.DefaultChannel), ShouldEqual, 0)
		})
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a controller with history", t, func() {
		store := repository.NewRingStore(context.Background())
		defer store.Close()
		tr := broadcast.NewMemoryTransport()
		defer tr.Close()
		tb := newTab(t, tr, idleSource(), service.WithHistory(store), service.WithThreshold(50))
		defer tb.svc.Close()

		tb.svc.Evaluate(context.Background(), gesture.Reading{Gesture: gesture.Pinch, Confidence: 55})
		stats := tb.svc.GetStats()

		Convey("Then it should expose the counters", func() {
			So(stats["state"], ShouldEqual, "idle")
			So(stats["threshold"], ShouldEqual, 50.0)
			So(stats["gestures_detected"], ShouldEqual, uint64(1))
			So(stats["actions_executed"], ShouldEqual, uint64(1))
			So(stats["history_size"], ShouldEqual, 1)
			So(stats["current_gesture"], ShouldEqual, "pinch")
		})
	})
}
