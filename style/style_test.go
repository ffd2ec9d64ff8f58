package style

import (
	"testing"

	"github.com/avplay-cli/avplay/color"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRenderers(t *testing.T) {
	Convey("Renderers keep the text", t, func() {
		So(Fg(color.Red)("failed"), ShouldContainSubstring, "failed")
		So(Tag(Base, AccentColor)("paused"), ShouldContainSubstring, "paused")
		So(Title("avplay"), ShouldContainSubstring, "avplay")
		So(Bold("video"), ShouldContainSubstring, "video")
	})

	Convey("Truncate pads to the width", t, func() {
		So(len(Truncate(10)("abc")), ShouldBeGreaterThanOrEqualTo, 10)
	})
}
