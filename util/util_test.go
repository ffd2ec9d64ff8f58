package util

import (
	"testing"

	"github.com/avplay-cli/avplay/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestQuantify(t *testing.T) {
	Convey("Quantify", t, func() {
		So(Quantify(1, "file", "files"), ShouldEqual, "1 file")
		So(Quantify(2, "file", "files"), ShouldEqual, "2 files")
	})
}

func TestCapitalize(t *testing.T) {
	Convey("Capitalize", t, func() {
		So(Capitalize("paused"), ShouldEqual, "Paused")
		So(Capitalize(""), ShouldEqual, "")
	})
}

func TestFileStem(t *testing.T) {
	Convey("FileStem", t, func() {
		So(FileStem("clips/intro.webm"), ShouldEqual, "intro")
		So(FileStem("intro"), ShouldEqual, "intro")
	})
}

func TestTimestamp(t *testing.T) {
	Convey("Timestamp", t, func() {
		So(Timestamp(0), ShouldEqual, "0:00.000")
		So(Timestamp(62_345_000), ShouldEqual, "1:02.345")
		So(Timestamp(3_723_004_000), ShouldEqual, "1:02:03.004")
		So(Timestamp(-1_500_000), ShouldEqual, "-0:01.500")
	})
}

func TestClamp(t *testing.T) {
	Convey("Clamp", t, func() {
		So(Clamp(5, 0, 10), ShouldEqual, 5)
		So(Clamp(-5, 0, 10), ShouldEqual, 0)
		So(Clamp(int64(50), 0, 10), ShouldEqual, 10)
	})
}

func TestDelete(t *testing.T) {
	Convey("Given a file and a directory", t, func() {
		fs := filesystem.API()
		So(fs.WriteFile("/tmp/avplay/history.json", []byte("{}"), 0644), ShouldBeNil)

		Convey("Delete removes the file", func() {
			So(Delete("/tmp/avplay/history.json"), ShouldBeNil)
			So(lo.Must(fs.Exists("/tmp/avplay/history.json")), ShouldBeFalse)
		})

		Convey("Delete removes the directory recursively", func() {
			So(Delete("/tmp/avplay"), ShouldBeNil)
			So(lo.Must(fs.Exists("/tmp/avplay")), ShouldBeFalse)
		})

		Convey("Delete reports missing paths", func() {
			So(Delete("/tmp/nothing"), ShouldNotBeNil)
		})
	})
}
