// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// DefinedFieldsCount represents the total cardinality of the application configuration schema.
const DefinedFieldsCount = 19

// Playback Engine - these keys tune the decode loops and the playback clock.
const (
	PlaybackDequeueTimeoutUs = "playback.dequeue_timeout_us"
	PlaybackPaceIntervalMs   = "playback.pace_interval_ms"
	PlaybackPacing           = "playback.pacing"
	PlaybackSeekMode         = "playback.seek_mode"
	PlaybackPosterFrame      = "playback.poster_frame"
	PlaybackGateAudio        = "playback.gate_audio"
	PlaybackLateDropMs       = "playback.late_drop_ms"
	PlaybackSpeedPercent     = "playback.speed_percent"
)

// Decoder Selection - these keys shape the software decoder engines and the probing order.
const (
	DecoderInputSlots     = "decoder.input_slots"
	DecoderOutputSlots    = "decoder.output_slots"
	DecoderLatency        = "decoder.latency"
	DecoderPreferHardware = "decoder.prefer_hardware"
)

// Audio Output - these keys configure the audio device.
const (
	AudioBufferMs = "audio.buffer_ms"
)

// History Tracking - these keys configure the persistence of playback positions.
const (
	HistorySaveOnExit = "history.save_on_exit"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the non-TUI application behavior.
const (
	CliColored = "cli.colored"
)
