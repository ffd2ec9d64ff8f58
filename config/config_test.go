package config

import (
	"strings"
	"testing"

	"github.com/avplay-cli/avplay/filesystem"
	"github.com/avplay-cli/avplay/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Config Setup", t, func() {
		Convey("Should initialize without error", func() {
			So(Setup(), ShouldBeNil)
		})

		Convey("Should have default values populated", func() {
			So(Setup(), ShouldBeNil)
			for name := range Default {
				So(viper.Get(name), ShouldNotBeNil)
			}
			So(viper.GetInt(key.PlaybackDequeueTimeoutUs), ShouldEqual, 10000)
			So(viper.GetString(key.PlaybackSeekMode), ShouldEqual, "inaccurate")
			So(viper.GetBool(key.PlaybackGateAudio), ShouldBeFalse)
		})

		Convey("Should register every defined key", func() {
			So(Default, ShouldHaveLength, key.DefinedFieldsCount)
		})

		Convey("EnvKeyReplacer should convert dots to underscores", func() {
			So(EnvKeyReplacer.Replace("playback.seek_mode"), ShouldEqual, "playback_seek_mode")
		})

		Convey("Fields expose prefixed environment names", func() {
			f := Default[key.PlaybackLateDropMs]
			So(f.Env(), ShouldEqual, "AVPLAY_PLAYBACK_LATE_DROP_MS")
			So(f.typeName(), ShouldEqual, "int")
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		So(Setup(), ShouldBeNil)

		Convey("It is valid", func() {
			So(Validate(), ShouldBeNil)
		})

		Convey("Bad values are all reported at once", func() {
			viper.Set(key.PlaybackSeekMode, "sideways")
			viper.Set(key.PlaybackPacing, "vsync")
			viper.Set(key.DecoderInputSlots, 0)
			viper.Set(key.PlaybackLateDropMs, -5)
			Reset(func() {
				for _, k := range []string{key.PlaybackSeekMode, key.PlaybackPacing, key.DecoderInputSlots, key.PlaybackLateDropMs} {
					viper.Set(k, Default[k].Value)
				}
			})

			err := Validate()
			So(err, ShouldNotBeNil)
			for _, k := range []string{key.PlaybackSeekMode, key.PlaybackPacing, key.DecoderInputSlots, key.PlaybackLateDropMs} {
				So(strings.Contains(err.Error(), k), ShouldBeTrue)
			}
		})
	})
}
