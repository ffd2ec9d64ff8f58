// Package config loads settings from defaults, the environment and the
// TOML config file into viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/avplay-cli/avplay/constant"
	"github.com/avplay-cli/avplay/filesystem"
	"github.com/avplay-cli/avplay/key"
	"github.com/avplay-cli/avplay/media"
	"github.com/avplay-cli/avplay/where"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// EnvKeyReplacer maps config keys to environment variable suffixes.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup registers defaults and env bindings, reads the config file if any
// and validates the result.
func Setup() error {
	viper.SetConfigName(constant.Avplay)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.Avplay)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := lo.ErrorsAs[viper.ConfigFileNotFoundError](err); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	return Validate()
}

// Validate checks the loaded values the playback engine depends on.
func Validate() error {
	var errs []error

	if _, err := media.ParseSeekMode(viper.GetString(key.PlaybackSeekMode)); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", key.PlaybackSeekMode, err))
	}

	if pacing := viper.GetString(key.PlaybackPacing); !lo.Contains([]string{"poll", "timer"}, pacing) {
		errs = append(errs, fmt.Errorf("%s: unknown strategy %q", key.PlaybackPacing, pacing))
	}

	positive := []string{
		key.PlaybackDequeueTimeoutUs,
		key.PlaybackPaceIntervalMs,
		key.PlaybackSpeedPercent,
		key.DecoderInputSlots,
		key.DecoderOutputSlots,
		key.AudioBufferMs,
	}
	for _, k := range positive {
		if v := viper.GetInt(k); v <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive, got %d", k, v))
		}
	}

	for _, k := range []string{key.DecoderLatency, key.PlaybackLateDropMs} {
		if v := viper.GetInt(k); v < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative, got %d", k, v))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
