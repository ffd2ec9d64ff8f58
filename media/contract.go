package media

import "time"

// SampleSource demuxes one track of a container into compressed samples.
//
// Instances are not safe for concurrent use; the engine confines each to one worker.
type SampleSource interface {
	// Tracks lists every track the source can select.
	Tracks() []Track

	// SelectTrack binds the source to one track and rewinds it.
	SelectTrack(id int) error

	// SeekTo moves the read position to a sync point chosen by mode.
	SeekTo(timestampUs int64, mode SyncMode) error

	// ReadSample copies the current sample into buf and returns its size.
	// It returns io.EOF once the track is exhausted.
	ReadSample(buf []byte) (int, error)

	// SampleFlags returns the flags of the current sample.
	SampleFlags() Flags

	// SampleTime returns the timestamp of the current sample, or -1 when exhausted.
	SampleTime() int64

	// Advance moves to the next sample and reports whether one exists.
	Advance() bool

	// Release frees the source; it must not be used afterwards.
	Release() error
}

// RenderTarget is a video presentation surface.
type RenderTarget interface {
	Present(unit *OutputUnit) error
}

// AudioSink is an audio output device.
type AudioSink interface {
	Start() error
	Write(samples []byte) (int, error)
}

// DecoderEngine is a stateful decode transform with slot-based buffer exchange.
type DecoderEngine interface {
	// Configure prepares the engine for a format; target may be nil for audio.
	Configure(format Format, target RenderTarget) error
	Start() error
	Flush() error
	SetOutputTarget(target RenderTarget) error

	// DequeueInputSlot waits up to timeout for a free input slot.
	DequeueInputSlot(timeout time.Duration) (int, bool)

	// InputBuffer exposes the memory behind an input slot.
	InputBuffer(slot int) []byte

	SubmitInput(slot, size int, timestampUs int64, flags Flags) error

	// DequeueOutputUnit waits up to timeout for a decoded unit.
	DequeueOutputUnit(timeout time.Duration) (*OutputUnit, bool)

	// ReleaseOutputUnit returns a unit to the pool, presenting it on the
	// render target first when deliver is true.
	ReleaseOutputUnit(id int, deliver bool) error

	Release() error
}

// DecoderFactory picks a concrete decoder for a stream.
type DecoderFactory interface {
	SelectDecoder(mime string, width, height int) (DecoderEngine, error)
}
