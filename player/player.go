// Package player implements the transport controller that drives the video and
// audio pipelines of one file against a shared playback clock.
package player

import (
	"errors"

	"github.com/avplay-cli/avplay/media"
	"github.com/avplay-cli/avplay/pipeline"
)

var (
	// ErrIncompatibleSource is returned by SwitchSource when the new file
	// cannot be decoded by the engines already in use.
	ErrIncompatibleSource = errors.New("player: source incompatible with current decoders")

	// ErrClosed is returned by operations on a closed player.
	ErrClosed = errors.New("player: closed")
)

// Player is the caller-facing transport surface. Commands are asynchronous:
// they are queued on the track workers and return immediately.
type Player interface {
	// Play starts continuous playback of every track not already playing.
	Play()

	// Pause gates video presentation. Audio keeps draining into its device.
	Pause()

	// Resume reopens the gate, shifting the clock by the pause duration.
	Resume()

	// Seek repositions both tracks and renders exactly one video frame
	// without resuming playback.
	Seek(positionUs int64, mode media.SeekMode)

	// SeekAndPlay repositions both tracks and continues playback from there.
	SeekAndPlay(positionUs int64, mode media.SeekMode)

	// SwitchSource hot-swaps the input file and video target while keeping
	// the decoders. Open failures are returned before anything changes.
	SwitchSource(path string, target media.RenderTarget) error

	// Status returns a snapshot of the playback state.
	Status() Status

	// Close stops both tracks and releases every resource.
	Close() error
}

// State is the coarse playback state reported by Status.
type State int

const (
	Idle State = iota
	Playing
	Paused
	Completed
	Closed
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	case Closed:
		return "closed"
	default:
		return "idle"
	}
}

// TrackStatus describes one track pipeline.
type TrackStatus struct {
	Kind       media.TrackKind     `json:"kind"`
	MIME       string              `json:"mime"`
	Decoder    string              `json:"decoder"`
	PlayStatus pipeline.PlayStatus `json:"play_status"`
	Active     bool                `json:"active"`
	Ended      bool                `json:"ended"`
	PositionUs int64               `json:"position_us"`
	Stats      pipeline.Stats      `json:"stats"`
}

// Status is a point-in-time view of a player.
type Status struct {
	File       string        `json:"file"`
	State      State         `json:"state"`
	PositionUs int64         `json:"position_us"`
	DurationUs int64         `json:"duration_us"`
	Tracks     []TrackStatus `json:"tracks"`
}

// Percentage returns the played share of the file, from 0 to 100.
func (s Status) Percentage() float64 {
	if s.DurationUs <= 0 || s.PositionUs <= 0 {
		return 0
	}
	return min(float64(s.PositionUs)/float64(s.DurationUs)*100, 100)
}
