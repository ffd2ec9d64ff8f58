package player

import (
	"errors"
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avplay-cli/avplay/clock"
	"github.com/avplay-cli/avplay/codec"
	"github.com/avplay-cli/avplay/media"
	"github.com/avplay-cli/avplay/sink"
	"github.com/avplay-cli/avplay/source"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	frameUs  = 33_000
	packetUs = 20_000
)

var epoch = time.Unix(1000, 0)

func video(mime string, n int, offset int64) source.TrackData {
	td := source.TrackData{Track: media.Track{
		ID:     1,
		Kind:   media.Video,
		Format: media.Format{MIME: mime, Width: 320, Height: 240},
	}}
	for i := 0; i < n; i++ {
		td.Samples = append(td.Samples, source.Sample{PTS: offset + int64(i)*frameUs, Sync: i%10 == 0, Data: []byte{byte(i)}})
	}
	return td
}

func audio(n int) source.TrackData {
	td := source.TrackData{Track: media.Track{
		ID:     2,
		Kind:   media.Audio,
		Format: media.Format{MIME: media.MIMEOpus, SampleRate: 48000, Channels: 2},
	}}
	for i := 0; i < n; i++ {
		td.Samples = append(td.Samples, source.Sample{PTS: int64(i) * packetUs, Sync: true, Data: []byte{byte(i)}})
	}
	return td
}

// oversized makes sample i of td size bytes long.
func oversized(td source.TrackData, i, size int) source.TrackData {
	td.Samples[i].Data = make([]byte, size)
	return td
}

// library serves in-memory files by name, a fresh source per open.
type library map[string][]source.TrackData

func (l library) open(path string) (media.SampleSource, error) {
	tracks, ok := l[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return source.NewTable(append([]source.TrackData(nil), tracks...)...), nil
}

var files = library{
	"a.webm":   {video(media.MIMEVP8, 30, 0), audio(50)},
	"b.webm":   {video(media.MIMEVP8, 30, 5_000_000), audio(50)},
	"c.webm":   {video(media.MIMEVP9, 30, 0), audio(50)},
	"big.webm": {oversized(video(media.MIMEVP8, 30, 5_000_000), 10, 100_000), audio(50)},
	"mute.ivf": {video(media.MIMEVP8, 30, 0)},
	"song.ogg": {audio(50)},
	"empty":    {},
}

type harness struct {
	engine *Engine
	src    *clock.Manual
	clock  *clock.Clock
	frames *sink.Recorder
	sound  *sink.Recorder
	events chan Event
}

func newHarness(file string, poster bool) (*harness, error) {
	h := &harness{
		src:    clock.NewManual(epoch),
		events: make(chan Event, 256),
	}
	h.clock = clock.New(clock.WithTimeSource(h.src))
	h.frames = sink.NewRecorder(h.src)
	h.sound = sink.NewRecorder(h.src)

	e, err := New(Options{
		File:        file,
		Target:      h.frames,
		NewSink:     func(media.Format) media.AudioSink { return h.sound },
		Decoders:    codec.Default(true, codec.WithLatency(2)),
		Open:        files.open,
		Clock:       h.clock,
		Timeout:     time.Millisecond,
		PosterFrame: poster,
	})
	if err != nil {
		return nil, err
	}

	e.Subscribe(func(ev Event) {
		select {
		case h.events <- ev:
		default:
		}
	})
	h.engine = e
	return h, nil
}

// await consumes events until one of kind for track arrives.
func (h *harness) await(kind EventKind, track media.TrackKind) bool {
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.events:
			if ev.Kind == kind && ev.Track == track {
				return true
			}
		case <-timeout:
			return false
		}
	}
}

// countedSource counts releases of the sources it wraps.
type countedSource struct {
	media.SampleSource
	released *atomic.Int32
}

func (c *countedSource) Release() error {
	c.released.Add(1)
	return c.SampleSource.Release()
}

func (h *harness) completed() bool {
	select {
	case <-h.engine.Wait():
		return true
	case <-time.After(2 * time.Second):
		return false
	}
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func TestNew(t *testing.T) {
	Convey("Opening a missing file fails", t, func() {
		_, err := newHarness("missing.webm", false)
		So(errors.Is(err, fs.ErrNotExist), ShouldBeTrue)
	})

	Convey("Opening a file without tracks fails", t, func() {
		_, err := newHarness("empty", false)
		So(errors.Is(err, source.ErrNoTrack), ShouldBeTrue)
	})

	Convey("Given a file with both tracks and a poster frame", t, func() {
		h, err := newHarness("a.webm", true)
		So(err, ShouldBeNil)
		Reset(func() { _ = h.engine.Close() })

		Convey("Exactly the first frame is rendered and nothing is heard", func() {
			So(h.await(EventSeeked, media.Video), ShouldBeTrue)
			So(h.frames.PTS(), ShouldResemble, []int64{0})
			So(h.sound.Writes(), ShouldEqual, 0)

			st := h.engine.Status()
			So(st.State, ShouldEqual, Idle)
			So(st.DurationUs, ShouldEqual, 49*packetUs)
			So(lo.Map(st.Tracks, func(ts TrackStatus, _ int) string { return ts.Decoder }), ShouldResemble, []string{"sw.vpx", "sw.opus"})
		})
	})

	Convey("Files with a single kind of track play that track alone", t, func() {
		for _, file := range []string{"mute.ivf", "song.ogg"} {
			h, err := newHarness(file, false)
			So(err, ShouldBeNil)

			h.engine.Play()
			So(h.completed(), ShouldBeTrue)
			So(h.engine.Status().State, ShouldEqual, Completed)
			So(h.engine.Status().Tracks, ShouldHaveLength, 1)
			So(h.engine.Close(), ShouldBeNil)
		}
	})
}

func TestPlayback(t *testing.T) {
	Convey("Given an engine over a file with both tracks", t, func() {
		h, err := newHarness("a.webm", false)
		So(err, ShouldBeNil)
		Reset(func() { _ = h.engine.Close() })

		Convey("Play delivers both tracks to the end, video paced by the clock", func() {
			h.engine.Play()
			So(h.completed(), ShouldBeTrue)

			frames := h.frames.Frames()
			So(frames, ShouldHaveLength, 30)
			for i := 1; i < len(frames); i++ {
				So(frames[i].At, ShouldHappenOnOrAfter, frames[i-1].At)
				So(frames[i].At.Sub(frames[0].At), ShouldEqual, media.Micros(frames[i].PTS-frames[0].PTS))
			}
			So(h.sound.Writes(), ShouldEqual, 50)

			st := h.engine.Status()
			So(st.State, ShouldEqual, Completed)
			So(st.PositionUs, ShouldEqual, 29*frameUs)
			So(st.Tracks[0].Stats.Delivered, ShouldEqual, 30)
		})

		Convey("Pause holds video only and resume shifts it by the pause length", func() {
			h.engine.Pause()
			h.engine.Play()

			So(h.await(EventFinished, media.Audio), ShouldBeTrue)
			So(h.sound.Writes(), ShouldEqual, 50)
			So(eventually(func() bool { return h.clock.PauseBegan().IsPresent() }), ShouldBeTrue)
			So(h.frames.Frames(), ShouldBeEmpty)
			So(h.engine.Status().State, ShouldEqual, Paused)

			h.src.Advance(2 * time.Second)
			h.engine.Resume()
			So(h.completed(), ShouldBeTrue)

			frames := h.frames.Frames()
			So(frames, ShouldHaveLength, 30)
			So(frames[0].At, ShouldEqual, epoch.Add(2*time.Second))
			So(frames[29].At.Sub(frames[0].At), ShouldEqual, media.Micros(29*frameUs))
		})

		Convey("An accurate seek renders one frame at or after the position and no audio", func() {
			pos := int64(12*frameUs + 1)
			h.engine.Seek(pos, media.Accurate)

			So(h.await(EventSeeked, media.Video), ShouldBeTrue)
			So(h.frames.PTS(), ShouldResemble, []int64{13 * frameUs})
			So(h.sound.Writes(), ShouldEqual, 0)
			So(h.engine.Status().State, ShouldEqual, Idle)
			So(h.clock.Origin().IsAbsent(), ShouldBeTrue)
		})

		Convey("An inaccurate seek renders the closest keyframe", func() {
			h.engine.Seek(16*frameUs, media.Inaccurate)

			So(h.await(EventSeeked, media.Video), ShouldBeTrue)
			So(h.frames.PTS(), ShouldResemble, []int64{20 * frameUs})
		})

		Convey("A one-shot seek works while paused", func() {
			h.engine.Pause()
			h.engine.Seek(0, media.Inaccurate)

			So(h.await(EventSeeked, media.Video), ShouldBeTrue)
			So(h.frames.PTS(), ShouldResemble, []int64{0})
		})

		Convey("An accurate seek-and-play never delivers a frame before the position", func() {
			pos := int64(15*frameUs + 1)
			h.engine.SeekAndPlay(pos, media.Accurate)
			So(h.completed(), ShouldBeTrue)

			pts := h.frames.PTS()
			So(pts[0], ShouldEqual, 16*frameUs)
			So(lo.EveryBy(pts, func(p int64) bool { return p >= pos }), ShouldBeTrue)
			So(pts, ShouldHaveLength, 14)
		})

		Convey("An inaccurate seek-and-play starts at the closest keyframe", func() {
			h.engine.SeekAndPlay(14*frameUs, media.Inaccurate)
			So(h.completed(), ShouldBeTrue)
			So(h.frames.PTS()[0], ShouldEqual, 10*frameUs)
		})

		Convey("A newer seek supersedes a queued one", func() {
			h.engine.Pause()
			h.engine.Play()
			So(eventually(func() bool { return h.clock.PauseBegan().IsPresent() }), ShouldBeTrue)

			h.engine.SeekAndPlay(0, media.Inaccurate)
			h.engine.Seek(20*frameUs, media.Inaccurate)
			So(h.await(EventSeeked, media.Video), ShouldBeTrue)
			So(h.frames.PTS(), ShouldResemble, []int64{20 * frameUs})
		})
	})
}

func TestSwitchSource(t *testing.T) {
	Convey("Given an engine paused mid-playback", t, func() {
		h, err := newHarness("a.webm", false)
		So(err, ShouldBeNil)
		Reset(func() { _ = h.engine.Close() })

		h.engine.Pause()
		h.engine.Play()
		So(h.await(EventFinished, media.Audio), ShouldBeTrue)
		So(eventually(func() bool { return h.clock.PauseBegan().IsPresent() }), ShouldBeTrue)

		Convey("Switching to a compatible file continues on the new source and target", func() {
			surface := sink.NewRecorder(h.src)
			So(h.engine.SwitchSource("b.webm", surface), ShouldBeNil)
			So(h.engine.File(), ShouldEqual, "b.webm")

			h.engine.Resume()
			So(h.completed(), ShouldBeTrue)

			So(h.frames.Frames(), ShouldBeEmpty)
			pts := surface.PTS()
			So(pts, ShouldHaveLength, 30)
			So(pts[0], ShouldEqual, 5_000_000)
			So(h.sound.Writes(), ShouldEqual, 100)

			st := h.engine.Status()
			So(st.State, ShouldEqual, Completed)
			So(st.Tracks[0].PlayStatus.String(), ShouldEqual, "started")
		})

		Convey("Switching to a file the decoders cannot handle changes nothing", func() {
			err := h.engine.SwitchSource("c.webm", sink.NewSurface("c"))
			So(errors.Is(err, ErrIncompatibleSource), ShouldBeTrue)
			So(h.engine.File(), ShouldEqual, "a.webm")

			h.engine.Resume()
			So(h.completed(), ShouldBeTrue)
			So(h.frames.Frames(), ShouldHaveLength, 30)
		})

		Convey("Switching to a file with samples larger than the decoder slots changes nothing", func() {
			err := h.engine.SwitchSource("big.webm", sink.NewRecorder(h.src))
			So(errors.Is(err, ErrIncompatibleSource), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "100000 bytes")
			So(h.engine.File(), ShouldEqual, "a.webm")

			h.engine.Resume()
			So(h.completed(), ShouldBeTrue)
			So(h.frames.Frames(), ShouldHaveLength, 30)
			So(h.engine.Status().State, ShouldEqual, Completed)
		})

		Convey("Switching to a file missing a track is refused", func() {
			So(errors.Is(h.engine.SwitchSource("mute.ivf", nil), ErrIncompatibleSource), ShouldBeTrue)
		})

		Convey("Switching to a missing file reports the open error", func() {
			So(errors.Is(h.engine.SwitchSource("missing.webm", nil), fs.ErrNotExist), ShouldBeTrue)
		})
	})
}

func TestClose(t *testing.T) {
	Convey("Given a playing engine", t, func() {
		h, err := newHarness("a.webm", false)
		So(err, ShouldBeNil)
		h.engine.Pause()
		h.engine.Play()

		Convey("Close stops both tracks and releases the engine", func() {
			So(h.engine.Close(), ShouldBeNil)
			So(h.completed(), ShouldBeTrue)
			So(h.engine.Status().State, ShouldEqual, Closed)

			So(h.engine.Close(), ShouldEqual, ErrClosed)
			So(h.engine.SwitchSource("b.webm", nil), ShouldEqual, ErrClosed)
		})
	})

	Convey("Given an engine whose workers are busy", t, func() {
		h, err := newHarness("a.webm", false)
		So(err, ShouldBeNil)

		var opened, released atomic.Int32
		h.engine.open = func(path string) (media.SampleSource, error) {
			src, err := files.open(path)
			if err != nil {
				return nil, err
			}
			opened.Add(1)
			return &countedSource{SampleSource: src, released: &released}, nil
		}

		release := make(chan struct{})
		for _, tr := range h.engine.tracks() {
			So(tr.pipeline.Post(func() { <-release }), ShouldBeTrue)
		}

		Convey("Closing with a switch still queued releases the sources it opened", func() {
			So(h.engine.SwitchSource("b.webm", nil), ShouldBeNil)

			go func() {
				time.Sleep(5 * time.Millisecond)
				close(release)
			}()
			So(h.engine.Close(), ShouldBeNil)

			So(opened.Load(), ShouldEqual, 2)
			So(released.Load(), ShouldEqual, 2)
		})
	})

	Convey("Given an engine with a ticker", t, func() {
		h, err := newHarness("a.webm", false)
		So(err, ShouldBeNil)

		var (
			mu   sync.Mutex
			last Status
		)
		h.engine.StartTicker(time.Millisecond, func(st Status) {
			mu.Lock()
			last = st
			mu.Unlock()
		})
		h.engine.Play()
		So(h.completed(), ShouldBeTrue)

		Convey("The final tick reports completion", func() {
			So(eventually(func() bool {
				mu.Lock()
				defer mu.Unlock()
				return last.State == Completed
			}), ShouldBeTrue)
			So(h.engine.Close(), ShouldBeNil)
		})
	})
}
