package gesture_test

import (
	"testing"

	"github.com/okian/handnav/internal/domain/gesture"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given gesture names", t, func() {
		Convey("When parsing every actionable id", func() {
			for _, id := range gesture.All() {
				got, ok := gesture.Parse(string(id))
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, id)
			}
		})

		Convey("When parsing with padding and case", func() {
			got, ok := gesture.Parse("  Pointing_Up ")
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, gesture.PointingUp)
		})

		Convey("When parsing the sentinel", func() {
			got, ok := gesture.Parse("none")
			So(ok, ShouldBeTrue)
			So(got.IsNone(), ShouldBeTrue)
			So(got.Known(), ShouldBeFalse)
		})

		Convey("When parsing an unknown name", func() {
			got, ok := gesture.Parse("thumbs_up")
			So(ok, ShouldBeFalse)
			So(got.Known(), ShouldBeFalse)
		})
	})
}

func TestVocabulary(t *testing.T) {
	Convey("Given the vocabulary", t, func() {
		So(len(gesture.All()), ShouldEqual, 8)
		So(len(gesture.WithNone()), ShouldEqual, 9)
		So(gesture.WithNone()[8], ShouldEqual, gesture.None)

		Convey("Then All should return a copy", func() {
			all := gesture.All()
			all[0] = "mutated"
			So(gesture.All()[0], ShouldEqual, gesture.PointingUp)
		})
	})
}

func TestDisplayName(t *testing.T) {
	Convey("Given display names", t, func() {
		So(gesture.PointingUp.DisplayName(), ShouldEqual, "Pointing Up")
		So(gesture.OKSign.DisplayName(), ShouldEqual, "Ok Sign")
		So(gesture.Pinch.DisplayName(), ShouldEqual, "Pinch")
		So(gesture.None.DisplayName(), ShouldEqual, "None")
		So(gesture.ID("").DisplayName(), ShouldEqual, "None")
	})
}

func TestReadingClamp(t *testing.T) {
	Convey("Given readings outside the confidence range", t, func() {
		So(gesture.Reading{Confidence: -3}.Clamp().Confidence, ShouldEqual, 0)
		So(gesture.Reading{Confidence: 140}.Clamp().Confidence, ShouldEqual, 100)
		So(gesture.Reading{Confidence: 42.5}.Clamp().Confidence, ShouldEqual, 42.5)
	})
}
