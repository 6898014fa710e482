package host_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/handnav/internal/adapters/host"
	"github.com/okian/handnav/internal/domain/actions"
	"github.com/okian/handnav/internal/domain/gesture"
	"github.com/okian/handnav/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func TestBrowser(t *testing.T) {
	Convey("Given a virtual browser behind the action registry", t, func() {
		b := host.NewBrowser(host.WithStartURL("https://example.test/"))
		h := b.Host()
		caps := actions.Probe(h)
		reg := actions.NewRegistry(h, caps, actions.WithScrollDelta(100))

		Convey("Then every capability should be probed as present", func() {
			So(caps, ShouldResemble, actions.Capabilities{
				Scroll: true, History: true, Media: true, Focus: true, Reload: true, Fullscreen: true,
			})
		})

		Convey("When scrolling down twice then up", func() {
			reg.Dispatch(gesture.PointingDown)
			reg.Dispatch(gesture.PointingDown)
			reg.Dispatch(gesture.PointingUp)
			So(b.Snapshot().ScrollY, ShouldEqual, 100)
		})

		Convey("When scrolling up at the top", func() {
			reg.Dispatch(gesture.PointingUp)
			So(b.Snapshot().ScrollY, ShouldEqual, 0)
		})

		Convey("When navigating through history", func() {
			reg.Dispatch(gesture.PointingLeft)
			So(b.Snapshot().URL, ShouldEqual, "https://example.test/")

			b.Navigate("https://example.test/a")
			b.Navigate("https://example.test/b")
			reg.Dispatch(gesture.PointingLeft)
			So(b.Snapshot().URL, ShouldEqual, "https://example.test/a")
			reg.Dispatch(gesture.PointingRight)
			So(b.Snapshot().URL, ShouldEqual, "https://example.test/b")
			reg.Dispatch(gesture.PointingRight)
			So(b.Snapshot().HistoryIndex, ShouldEqual, 2)

			Convey("Then navigating after going back should drop forward entries", func() {
				reg.Dispatch(gesture.PointingLeft)
				b.Navigate("https://example.test/c")
				So(b.Snapshot().History, ShouldResemble, []string{
					"https://example.test/", "https://example.test/a", "https://example.test/c",
				})
			})
		})

		Convey("When media is playing", func() {
			b.AddMedia("intro", true)
			b.AddMedia("ad", false)
			b.AddMedia("main", true)
			reg.Dispatch(gesture.OpenPalm)

			Convey("Then every element should be paused", func() {
				for _, m := range b.Snapshot().Media {
					So(m.Playing, ShouldBeFalse)
				}
				So(len(b.Snapshot().Media), ShouldEqual, 3)
			})
		})

		Convey("When an element is focused", func() {
			b.Focus("submit")
			reg.Dispatch(gesture.OKSign)
			reg.Dispatch(gesture.OKSign)
			So(b.Snapshot().Clicks["submit"], ShouldEqual, 2)
			So(b.Snapshot().ClickedElements(), ShouldResemble, []string{"submit"})

			b.Focus("")
			reg.Dispatch(gesture.OKSign)
			So(b.Snapshot().Clicks["submit"], ShouldEqual, 2)
		})

		Convey("When reloading", func() {
			reg.Dispatch(gesture.PeaceSign)
			So(b.Snapshot().Reloads, ShouldEqual, 1)
		})

		Convey("When pinching twice", func() {
			reg.Dispatch(gesture.Pinch)
			So(b.Snapshot().Fullscreen, ShouldBeTrue)
			reg.Dispatch(gesture.Pinch)
			So(b.Snapshot().Fullscreen, ShouldBeFalse)
		})
	})

	Convey("Given a browser without fullscreen support", t, func() {
		b := host.NewBrowser(host.WithFullscreenSupported(false))
		So(b.EnterFullscreen(), ShouldEqual, host.ErrFullscreenUnsupported)

		caps := actions.Probe(b.Host())
		So(caps.Fullscreen, ShouldBeFalse)

		reg := actions.NewRegistry(b.Host(), caps)
		So(func() { reg.Dispatch(gesture.Pinch) }, ShouldNotPanic)
		So(b.Snapshot().Fullscreen, ShouldBeFalse)
		So(b.Snapshot().URL, ShouldEqual, host.DefaultStartURL)
	})
}
