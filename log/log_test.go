package log

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/avplay-cli/avplay/filesystem"
	"github.com/avplay-cli/avplay/key"
	"github.com/avplay-cli/avplay/where"
	"github.com/samber/lo"
	logrus "github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Given logging disabled", t, func() {
		viper.Set(key.LogsWrite, false)
		So(Setup(), ShouldBeNil)
		So(Enabled(), ShouldBeFalse)
	})

	Convey("Given logging enabled at debug level", t, func() {
		viper.Set(key.LogsWrite, true)
		viper.Set(key.LogsLevel, "debug")
		Reset(func() {
			viper.Set(key.LogsWrite, false)
			enabled = false
		})

		So(Setup(), ShouldBeNil)
		So(Enabled(), ShouldBeTrue)
		So(logrus.GetLevel(), ShouldEqual, logrus.DebugLevel)

		Convey("Messages land in today's file", func() {
			Infof("video: sought to %d", 42)
			path := filepath.Join(where.Logs(), time.Now().Format("2006-01-02")+".log")
			So(string(lo.Must(filesystem.API().ReadFile(path))), ShouldContainSubstring, "video: sought to 42")
		})

		Convey("An unknown level falls back to info", func() {
			viper.Set(key.LogsLevel, "chatty")
			So(Setup(), ShouldBeNil)
			So(logrus.GetLevel(), ShouldEqual, logrus.InfoLevel)
		})
	})
}
