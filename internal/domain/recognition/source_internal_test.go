package recognition

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/handnav/internal/domain/gesture"
)

func TestTick(t *testing.T) {
	Convey("Given a stream whose context ends while a reading is produced", t, func() {
		Convey("Then the reading is never delivered to a waiting receiver", func() {
			delivered := 0
			for i := 0; i < 50; i++ {
				ctx, cancel := context.WithCancel(context.Background())
				ch := tick(ctx, time.Millisecond, func(now time.Time) (gesture.Reading, bool) {
					cancel()
					return gesture.Reading{Gesture: gesture.PeaceSign, Confidence: 90, At: now}, true
				})
				for range ch {
					delivered++
				}
				cancel()
			}
			So(delivered, ShouldEqual, 0)
		})

		Convey("Then next returning false closes the stream", func() {
			ch := tick(context.Background(), time.Millisecond, func(time.Time) (gesture.Reading, bool) {
				return gesture.Reading{}, false
			})
			_, ok := <-ch
			So(ok, ShouldBeFalse)
		})
	})
}
