package media

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSeekMode(t *testing.T) {
	Convey("Seek modes", t, func() {
		Convey("Accurate seeks align to the previous sync point", func() {
			So(Accurate.SyncMode(), ShouldEqual, PreviousSync)
		})

		Convey("Inaccurate seeks align to the closest sync point", func() {
			So(Inaccurate.SyncMode(), ShouldEqual, ClosestSync)
		})

		Convey("Parsing accepts known names", func() {
			mode, err := ParseSeekMode("accurate")
			So(err, ShouldBeNil)
			So(mode, ShouldEqual, Accurate)

			mode, err = ParseSeekMode("keyframe")
			So(err, ShouldBeNil)
			So(mode, ShouldEqual, Inaccurate)
		})

		Convey("Parsing rejects unknown names", func() {
			_, err := ParseSeekMode("sideways")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestFormat(t *testing.T) {
	Convey("Given a format without a declared input size", t, func() {
		f := Format{MIME: "video/x-vnd.on2.vp8"}

		Convey("The default slot size is used", func() {
			So(f.InputSize(), ShouldEqual, DefaultMaxInputSize)
		})
	})

	Convey("Timestamps convert both ways", t, func() {
		So(Micros(1500), ShouldEqual, 1500*time.Microsecond)
		So(ToMicros(2*time.Second), ShouldEqual, 2_000_000)
	})

	Convey("End of stream is a flag", t, func() {
		u := &OutputUnit{Flags: FlagEndOfStream}
		So(u.EndOfStream(), ShouldBeTrue)
		So((&OutputUnit{Flags: FlagSync}).EndOfStream(), ShouldBeFalse)
	})
}
