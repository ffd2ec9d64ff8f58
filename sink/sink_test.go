package sink

import (
	"testing"
	"time"

	"github.com/avplay-cli/avplay/clock"
	"github.com/avplay-cli/avplay/media"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSurface(t *testing.T) {
	Convey("A surface counts frames and keeps the latest timestamp", t, func() {
		s := NewSurface("main")
		So(s.Last(), ShouldEqual, -1)
		So(s.Present(&media.OutputUnit{PTS: 40}), ShouldBeNil)
		So(s.Present(&media.OutputUnit{PTS: 80}), ShouldBeNil)
		So(s.Frames(), ShouldEqual, 2)
		So(s.Last(), ShouldEqual, 80)
		So(s.Name(), ShouldEqual, "main")
	})
}

func TestRecorder(t *testing.T) {
	Convey("Given a recorder on a manual clock", t, func() {
		src := clock.NewManual(time.Unix(0, 0))
		r := NewRecorder(src)

		Convey("Writes before start are refused", func() {
			_, err := r.Write([]byte{1})
			So(err, ShouldEqual, ErrNotStarted)
		})

		Convey("Presentations are stamped with the source time", func() {
			So(r.Present(&media.OutputUnit{PTS: 1}), ShouldBeNil)
			src.Advance(time.Second)
			So(r.Present(&media.OutputUnit{PTS: 2}), ShouldBeNil)

			frames := r.Frames()
			So(r.PTS(), ShouldResemble, []int64{1, 2})
			So(frames[1].At.Sub(frames[0].At), ShouldEqual, time.Second)

			r.Reset()
			So(r.PTS(), ShouldBeEmpty)
		})

		Convey("Started recorders count writes", func() {
			So(r.Start(), ShouldBeNil)
			_, err := r.Write([]byte{1, 2})
			So(err, ShouldBeNil)
			So(r.Writes(), ShouldEqual, 1)
			So(r.Started(), ShouldBeTrue)
		})
	})
}

func TestDevice(t *testing.T) {
	Convey("Given a 100ms device at 1000 bytes per second", t, func() {
		src := clock.NewManual(time.Unix(0, 0))
		d := NewDevice(media.Format{SampleRate: 250, Channels: 2}, 100*time.Millisecond, src)

		Convey("It refuses writes before start", func() {
			_, err := d.Write(make([]byte, 10))
			So(err, ShouldEqual, ErrNotStarted)
		})

		Convey("When started", func() {
			So(d.Start(), ShouldBeNil)

			Convey("Writes within the buffer return immediately", func() {
				n, err := d.Write(make([]byte, 100))
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 100)
				So(d.Buffered(), ShouldEqual, 100*time.Millisecond)
				So(src.Now(), ShouldEqual, time.Unix(0, 0))
			})

			Convey("A write that overflows blocks until enough has drained", func() {
				_, _ = d.Write(make([]byte, 100))
				_, err := d.Write(make([]byte, 50))
				So(err, ShouldBeNil)
				So(src.Now(), ShouldEqual, time.Unix(0, 0).Add(50*time.Millisecond))
				So(d.Written(), ShouldEqual, 150)
			})
		})
	})
}
