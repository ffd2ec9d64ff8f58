// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/avplay-cli/avplay/color"
	"github.com/avplay-cli/avplay/constant"
	"github.com/avplay-cli/avplay/key"
	"github.com/avplay-cli/avplay/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Avplay + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []int:
		return "[]int"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	// register validates and adds a new configuration field to the global registry.
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		EnvExposed = append(EnvExposed, k)
	}

	register(key.PlaybackDequeueTimeoutUs, 10000, "Bounded wait for a decoder input slot or output unit, in microseconds")
	register(key.PlaybackPaceIntervalMs, 10, "Sleep increment of the video pacing loop, in milliseconds")
	register(key.PlaybackPacing, "poll", "Video pacing strategy.\nAvailable options are: poll (fixed increments, re-checks pause), timer (one sleep per frame)")
	register(key.PlaybackSeekMode, "inaccurate", "Default seek mode.\nAvailable options are: inaccurate (nearest keyframe), accurate (exact, decodes and drops up to the target)")
	register(key.PlaybackPosterFrame, true, "Render the first frame as soon as a file is opened")
	register(key.PlaybackGateAudio, false, "Hold audio output while paused.\nBy default audio keeps draining into the device buffer")
	register(key.PlaybackLateDropMs, 0, "Drop video frames that are later than this many milliseconds.\n0 disables dropping")
	register(key.PlaybackSpeedPercent, 100, "Playback speed in percent of real time")
	register(key.DecoderInputSlots, 4, "Number of decoder input slots")
	register(key.DecoderOutputSlots, 4, "Maximum number of decoded units outstanding at once")
	register(key.DecoderLatency, 2, "Number of samples a decoder holds before emitting output")
	register(key.DecoderPreferHardware, true, "Probe hardware decoders before software ones")
	register(key.AudioBufferMs, 250, "Audio device buffer, in milliseconds")
	register(key.HistorySaveOnExit, true, "Remember the playback position of a file on exit")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
