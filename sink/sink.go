// Package sink provides Render Sinks: presentation surfaces for decoded video and
// output devices for decoded audio.
package sink

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avplay-cli/avplay/clock"
	"github.com/avplay-cli/avplay/log"
	"github.com/avplay-cli/avplay/media"
)

// ErrNotStarted is returned by audio devices written to before Start.
var ErrNotStarted = errors.New("sink: device not started")

// Surface is a video target that counts presented frames.
type Surface struct {
	name   string
	frames atomic.Int64
	last   atomic.Int64
}

// NewSurface creates a named surface.
func NewSurface(name string) *Surface {
	s := &Surface{name: name}
	s.last.Store(-1)
	return s
}

func (s *Surface) Present(u *media.OutputUnit) error {
	s.frames.Add(1)
	s.last.Store(u.PTS)
	log.Tracef("sink: %s presented pts=%d", s.name, u.PTS)
	return nil
}

func (s *Surface) Name() string {
	return s.name
}

// Frames returns the number of frames presented so far.
func (s *Surface) Frames() int64 {
	return s.frames.Load()
}

// Last returns the timestamp of the latest frame, or -1.
func (s *Surface) Last() int64 {
	return s.last.Load()
}

// Presentation is one recorded delivery.
type Presentation struct {
	PTS   int64
	At    time.Time
	Bytes int
}

// Recorder records every delivery it receives, as a video target and as an audio device.
type Recorder struct {
	src clock.TimeSource

	mu      sync.Mutex
	started bool
	frames  []Presentation
	writes  []Presentation
}

// NewRecorder stamps deliveries with src; a nil source means wall time.
func NewRecorder(src clock.TimeSource) *Recorder {
	if src == nil {
		src = clock.Wall()
	}
	return &Recorder{src: src}
}

func (r *Recorder) Present(u *media.OutputUnit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, Presentation{PTS: u.PTS, At: r.src.Now(), Bytes: len(u.Payload)})
	return nil
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	return nil
}

func (r *Recorder) Write(samples []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return 0, ErrNotStarted
	}
	r.writes = append(r.writes, Presentation{At: r.src.Now(), Bytes: len(samples)})
	return len(samples), nil
}

// Started reports whether the recorder was started as an audio device.
func (r *Recorder) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Frames returns a copy of the recorded video presentations.
func (r *Recorder) Frames() []Presentation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Presentation(nil), r.frames...)
}

// PTS returns the timestamps of the recorded video presentations.
func (r *Recorder) PTS() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	pts := make([]int64, len(r.frames))
	for i, f := range r.frames {
		pts[i] = f.PTS
	}
	return pts
}

// Writes returns the number of audio writes received.
func (r *Recorder) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.writes)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = nil
	r.writes = nil
}
