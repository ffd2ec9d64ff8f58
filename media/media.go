// Package media defines the shared vocabulary of the playback engine: tracks, formats,
// decoded output units and the contracts of the collaborators the engine drives.
//
// All timestamps are stream time in microseconds.
package media

import (
	"fmt"
	"time"
)

// TrackKind identifies the elementary stream type of a track.
type TrackKind int

const (
	Video TrackKind = iota
	Audio
)

func (k TrackKind) String() string {
	switch k {
	case Video:
		return "video"
	case Audio:
		return "audio"
	default:
		return fmt.Sprintf("TrackKind(%d)", int(k))
	}
}

// SyncMode selects how a Sample Source aligns a seek to a sync point.
type SyncMode int

const (
	// PreviousSync lands on the last sync point at or before the requested timestamp.
	PreviousSync SyncMode = iota
	// ClosestSync lands on the sync point nearest to the requested timestamp.
	ClosestSync
)

func (m SyncMode) String() string {
	if m == ClosestSync {
		return "closest-sync"
	}
	return "previous-sync"
}

// SeekMode is the caller-facing seek precision.
type SeekMode int

const (
	// Inaccurate lands on the nearest sync point and delivers the first decoded unit.
	Inaccurate SeekMode = iota
	// Accurate lands on the previous sync point and drops every unit before the target.
	Accurate
)

func (m SeekMode) String() string {
	if m == Accurate {
		return "accurate"
	}
	return "inaccurate"
}

// ParseSeekMode resolves a textual seek mode.
func ParseSeekMode(s string) (SeekMode, error) {
	switch s {
	case "accurate", "exact":
		return Accurate, nil
	case "inaccurate", "keyframe", "":
		return Inaccurate, nil
	default:
		return Inaccurate, fmt.Errorf("unknown seek mode %q", s)
	}
}

// SyncMode returns the source alignment used for this seek mode.
func (m SeekMode) SyncMode() SyncMode {
	if m == Accurate {
		return PreviousSync
	}
	return ClosestSync
}

// DefaultMaxInputSize is the input slot size used when a format does not declare one.
const DefaultMaxInputSize = 70000

// Format describes a track's elementary stream.
type Format struct {
	MIME         string `json:"mime"`
	Codec        string `json:"codec,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	SampleRate   int    `json:"sample_rate,omitempty"`
	Channels     int    `json:"channels,omitempty"`
	MaxInputSize int    `json:"max_input_size,omitempty"`
}

// InputSize returns the slot size needed to hold one sample of this format.
func (f Format) InputSize() int {
	if f.MaxInputSize > 0 {
		return f.MaxInputSize
	}
	return DefaultMaxInputSize
}

// Track is one selectable elementary stream of a Sample Source.
type Track struct {
	ID       int       `json:"id"`
	Kind     TrackKind `json:"kind"`
	Format   Format    `json:"format"`
	Samples  int       `json:"samples"`
	Syncs    int       `json:"sync_points"`
	Duration int64     `json:"duration_us"`
}

// Flags annotate submitted samples and decoded units.
type Flags uint32

const (
	FlagSync Flags = 1 << iota
	FlagEndOfStream
)

// OutputUnit is one decoded frame or PCM block.
type OutputUnit struct {
	ID      int
	PTS     int64
	Payload []byte
	Flags   Flags
}

// EndOfStream reports whether the unit terminates the stream.
func (u *OutputUnit) EndOfStream() bool {
	return u.Flags&FlagEndOfStream != 0
}

// Micros converts a stream timestamp to a duration.
func Micros(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}

// ToMicros converts a duration to a stream timestamp.
func ToMicros(d time.Duration) int64 {
	return d.Microseconds()
}
