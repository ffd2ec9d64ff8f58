package history

import (
	"path/filepath"
	"testing"

	"github.com/avplay-cli/avplay/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestHistory(t *testing.T) {
	Convey("Given a file played halfway", t, func() {
		path := filepath.Join("clips", "intro.webm")
		So(Save(path, 5_000_000, 10_000_000), ShouldBeNil)
		Reset(func() { _ = Remove(path) })

		Convey("Then its position is remembered under the absolute path", func() {
			pos, err := Position(path)
			So(err, ShouldBeNil)
			So(pos.MustGet(), ShouldEqual, 5_000_000)

			entries, err := Get()
			So(err, ShouldBeNil)
			entry := entries[lo.Must(filepath.Abs(path))]
			So(entry, ShouldNotBeNil)
			So(entry.Percentage(), ShouldEqual, 50)
			So(entry.String(), ShouldEqual, "intro.webm : 5s / 10s")
		})

		Convey("When it is played through to the end", func() {
			So(Save(path, 9_500_000, 10_000_000), ShouldBeNil)

			Convey("Then it is forgotten", func() {
				pos, err := Position(path)
				So(err, ShouldBeNil)
				So(pos.IsAbsent(), ShouldBeTrue)
			})
		})

		Convey("When it is removed", func() {
			So(Remove(path), ShouldBeNil)

			Convey("Then nothing is saved for it", func() {
				pos, err := Position(path)
				So(err, ShouldBeNil)
				So(pos.IsAbsent(), ShouldBeTrue)
			})
		})
	})
}
