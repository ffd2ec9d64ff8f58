package player

import (
	"time"

	"github.com/avplay-cli/avplay/clock"
	"github.com/avplay-cli/avplay/codec"
	"github.com/avplay-cli/avplay/key"
	"github.com/avplay-cli/avplay/media"
	"github.com/avplay-cli/avplay/sink"
	"github.com/avplay-cli/avplay/source"
	"github.com/spf13/viper"
)

// Options configures an Engine. Zero values fall back to the defaults noted per field.
type Options struct {
	// File is the path opened for both tracks.
	File string

	// Target receives decoded video frames.
	Target media.RenderTarget

	// NewSink builds the audio device for the selected audio format.
	// Defaults to an emulated device on the clock's time source.
	NewSink func(format media.Format) media.AudioSink

	// Decoders selects decoder engines. Defaults to codec.Default(true).
	Decoders media.DecoderFactory

	// Open opens one Sample Source over a file. Defaults to source.Open.
	Open func(path string) (media.SampleSource, error)

	// Clock is the shared playback clock. Defaults to a wall clock.
	Clock *clock.Clock

	// Timeout bounds every decoder slot wait. Defaults to 10ms.
	Timeout time.Duration

	// PosterFrame renders one frame at construction.
	PosterFrame bool

	// GateAudio holds audio writes while paused.
	GateAudio bool

	// LateDrop discards video frames later than this. Zero disables it.
	LateDrop time.Duration

	// AudioBuffer sizes the default audio device. Defaults to 250ms.
	AudioBuffer time.Duration
}

// DefaultOptions builds options for path from the loaded configuration.
func DefaultOptions(path string, target media.RenderTarget) Options {
	var pacer clock.Pacer
	if viper.GetString(key.PlaybackPacing) == "timer" {
		pacer = clock.Timer()
	} else {
		pacer = clock.Poll(time.Duration(viper.GetInt(key.PlaybackPaceIntervalMs)) * time.Millisecond)
	}

	return Options{
		File:   path,
		Target: target,
		Decoders: codec.Default(
			viper.GetBool(key.DecoderPreferHardware),
			codec.WithSlots(viper.GetInt(key.DecoderInputSlots), viper.GetInt(key.DecoderOutputSlots)),
			codec.WithLatency(viper.GetInt(key.DecoderLatency)),
		),
		Clock: clock.New(
			clock.WithPacer(pacer),
			clock.WithSpeed(float64(viper.GetInt(key.PlaybackSpeedPercent))/100),
		),
		Timeout:     time.Duration(viper.GetInt(key.PlaybackDequeueTimeoutUs)) * time.Microsecond,
		PosterFrame: viper.GetBool(key.PlaybackPosterFrame),
		GateAudio:   viper.GetBool(key.PlaybackGateAudio),
		LateDrop:    time.Duration(viper.GetInt(key.PlaybackLateDropMs)) * time.Millisecond,
		AudioBuffer: time.Duration(viper.GetInt(key.AudioBufferMs)) * time.Millisecond,
	}
}

func (o *Options) fill() {
	if o.Decoders == nil {
		o.Decoders = codec.Default(true)
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Open == nil {
		o.Open = func(path string) (media.SampleSource, error) {
			table, err := source.Open(path)
			if err != nil {
				return nil, err
			}
			return table, nil
		}
	}
	if o.NewSink == nil {
		src, buffer := o.Clock.Source(), o.AudioBuffer
		o.NewSink = func(format media.Format) media.AudioSink {
			return sink.NewDevice(format, buffer, src)
		}
	}
}
