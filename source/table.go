// Package source implements Sample Sources: container files indexed into per-track
// sample tables that can be selected, sought and read one compressed sample at a time.
package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/avplay-cli/avplay/media"
)

var (
	ErrUnsupportedContainer = errors.New("source: unsupported container")
	ErrNoTrack              = errors.New("source: no such track")
	ErrReleased             = errors.New("source: released")
)

// Sample is one compressed access unit.
type Sample struct {
	PTS  int64
	Sync bool
	Data []byte
}

// TrackData is a track description together with its samples in decode order.
type TrackData struct {
	Track   media.Track
	Samples []Sample
}

// Table is an in-memory Sample Source.
type Table struct {
	name     string
	tracks   []TrackData
	selected int
	cursor   int
	released bool
}

// NewTable builds a source from already demuxed tracks, filling in the derived
// track statistics.
func NewTable(tracks ...TrackData) *Table {
	for i := range tracks {
		td := &tracks[i]
		td.Track.Samples = len(td.Samples)
		td.Track.Syncs = 0
		largest := 0

		for _, s := range td.Samples {
			if s.Sync {
				td.Track.Syncs++
			}
			largest = max(largest, len(s.Data))
			td.Track.Duration = max(td.Track.Duration, s.PTS)
		}

		if td.Track.Format.MaxInputSize < largest {
			td.Track.Format.MaxInputSize = max(largest, media.DefaultMaxInputSize)
		}
	}

	return &Table{tracks: tracks, selected: -1}
}

// Name returns the path the table was opened from, if any.
func (t *Table) Name() string {
	return t.name
}

func (t *Table) Tracks() []media.Track {
	tracks := make([]media.Track, len(t.tracks))
	for i, td := range t.tracks {
		tracks[i] = td.Track
	}
	return tracks
}

// Duration returns the largest sample timestamp across all tracks.
func (t *Table) Duration() int64 {
	var d int64
	for _, td := range t.tracks {
		d = max(d, td.Track.Duration)
	}
	return d
}

func (t *Table) SelectTrack(id int) error {
	if t.released {
		return ErrReleased
	}
	for i, td := range t.tracks {
		if td.Track.ID == id {
			t.selected = i
			t.cursor = 0
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrNoTrack, id)
}

func (t *Table) samples() ([]Sample, error) {
	if t.released {
		return nil, ErrReleased
	}
	if t.selected < 0 {
		return nil, ErrNoTrack
	}
	return t.tracks[t.selected].Samples, nil
}

func (t *Table) SeekTo(timestampUs int64, mode media.SyncMode) error {
	samples, err := t.samples()
	if err != nil {
		return err
	}

	switch mode {
	case media.ClosestSync:
		t.cursor = closestSync(samples, timestampUs)
	default:
		t.cursor = previousSync(samples, timestampUs)
	}
	return nil
}

// previousSync finds the last sync sample at or before ts, falling back to the first sync sample.
func previousSync(samples []Sample, ts int64) int {
	found, first := -1, -1
	for i, s := range samples {
		if !s.Sync {
			continue
		}
		if first < 0 {
			first = i
		}
		if s.PTS <= ts {
			found = i
		}
	}

	switch {
	case found >= 0:
		return found
	case first >= 0:
		return first
	default:
		return 0
	}
}

// closestSync finds the sync sample nearest to ts; ties go to the earlier one.
func closestSync(samples []Sample, ts int64) int {
	best := -1
	var bestDist int64
	for i, s := range samples {
		if !s.Sync {
			continue
		}
		dist := s.PTS - ts
		if dist < 0 {
			dist = -dist
		}
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return max(best, 0)
}

func (t *Table) ReadSample(buf []byte) (int, error) {
	samples, err := t.samples()
	if err != nil {
		return 0, err
	}
	if t.cursor >= len(samples) {
		return 0, io.EOF
	}

	data := samples[t.cursor].Data
	if len(buf) < len(data) {
		return 0, io.ErrShortBuffer
	}
	return copy(buf, data), nil
}

func (t *Table) SampleFlags() media.Flags {
	samples, err := t.samples()
	if err != nil || t.cursor >= len(samples) {
		return 0
	}
	if samples[t.cursor].Sync {
		return media.FlagSync
	}
	return 0
}

func (t *Table) SampleTime() int64 {
	samples, err := t.samples()
	if err != nil || t.cursor >= len(samples) {
		return -1
	}
	return samples[t.cursor].PTS
}

func (t *Table) Advance() bool {
	samples, err := t.samples()
	if err != nil {
		return false
	}
	if t.cursor < len(samples) {
		t.cursor++
	}
	return t.cursor < len(samples)
}

func (t *Table) Release() error {
	t.released = true
	t.tracks = nil
	t.selected = -1
	return nil
}
