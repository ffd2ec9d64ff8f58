package cmd

import (
	"time"

	"github.com/avplay-cli/avplay/key"
	"github.com/avplay-cli/avplay/media"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func bindFlag(fs *pflag.FlagSet, name, configKey string) {
	lo.Must0(viper.BindPFlag(configKey, fs.Lookup(name)))
}

// optionalDuration reads a duration flag, present only when it was given.
func optionalDuration(fs *pflag.FlagSet, name string) mo.Option[time.Duration] {
	if !fs.Changed(name) {
		return mo.None[time.Duration]()
	}
	return mo.Some(lo.Must(fs.GetDuration(name)))
}

// seekModeFlags registers --accurate and --seek-mode.
func seekModeFlags(fs *pflag.FlagSet) {
	fs.BoolP("accurate", "a", false, "Seek to the exact position instead of the nearest sync point")
	fs.StringP("seek-mode", "m", "inaccurate", "Default seek mode (accurate or inaccurate)")
	bindFlag(fs, "seek-mode", key.PlaybackSeekMode)
}

// seekMode resolves --accurate first and the configured mode otherwise.
func seekMode(fs *pflag.FlagSet) (media.SeekMode, error) {
	if lo.Must(fs.GetBool("accurate")) {
		return media.Accurate, nil
	}
	return media.ParseSeekMode(viper.GetString(key.PlaybackSeekMode))
}
