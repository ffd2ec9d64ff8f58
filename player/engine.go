package player

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avplay-cli/avplay/clock"
	"github.com/avplay-cli/avplay/log"
	"github.com/avplay-cli/avplay/media"
	"github.com/avplay-cli/avplay/pipeline"
	"github.com/avplay-cli/avplay/source"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"golang.org/x/sync/errgroup"
)

type track struct {
	kind     media.TrackKind
	format   media.Format
	decoder  media.DecoderEngine
	pipeline *pipeline.Pipeline
}

func (t *track) decoderName() string {
	if named, ok := t.decoder.(interface{ Name() string }); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", t.decoder)
}

// Engine is the Player implementation: one pipeline per track, sharing one clock.
type Engine struct {
	clock        *clock.Clock
	open         func(string) (media.SampleSource, error)
	video, audio *track
	listeners    listeners

	mu     sync.Mutex
	file   string
	closed bool

	duration atomic.Int64

	tickerMu   sync.Mutex
	tickerStop chan struct{}

	done     chan struct{}
	doneOnce sync.Once
}

var _ Player = (*Engine)(nil)

// New opens opts.File twice, once per track, picks a decoder for the first
// video and the first audio track and starts both track workers. A file
// without one of the kinds plays the other alone.
func New(opts Options) (*Engine, error) {
	opts.fill()

	e := &Engine{
		clock: opts.Clock,
		open:  opts.Open,
		file:  opts.File,
		done:  make(chan struct{}),
	}

	for _, kind := range []media.TrackKind{media.Video, media.Audio} {
		t, err := e.newTrack(kind, opts)
		if err != nil {
			for _, created := range e.tracks() {
				_ = created.pipeline.Close()
			}
			return nil, err
		}
		switch kind {
		case media.Video:
			e.video = t
		case media.Audio:
			e.audio = t
		}
	}

	if e.video == nil && e.audio == nil {
		return nil, fmt.Errorf("player: %s: %w", opts.File, source.ErrNoTrack)
	}

	log.Infof("player: opened %s (video=%t audio=%t)", opts.File, e.video != nil, e.audio != nil)

	if opts.PosterFrame && e.video != nil {
		e.Seek(0, media.Inaccurate)
	}
	return e, nil
}

// newTrack returns nil without an error when the file has no track of kind.
func (e *Engine) newTrack(kind media.TrackKind, opts Options) (*track, error) {
	src, tr, ok, err := e.openTrack(opts.File, kind)
	if err != nil || !ok {
		return nil, err
	}

	decoder, err := opts.Decoders.SelectDecoder(tr.Format.MIME, tr.Format.Width, tr.Format.Height)
	if err != nil {
		_ = src.Release()
		return nil, fmt.Errorf("player: %s track: %w", kind, err)
	}

	cfg := pipeline.Config{
		Kind:      kind,
		Decoder:   decoder,
		Clock:     e.clock,
		Timeout:   opts.Timeout,
		GateAudio: opts.GateAudio,
		LateDrop:  opts.LateDrop,
	}

	var target media.RenderTarget
	if kind == media.Video {
		target = opts.Target
	} else {
		cfg.Sink = opts.NewSink(tr.Format)
	}

	if err := decoder.Configure(tr.Format, target); err != nil {
		_ = decoder.Release()
		_ = src.Release()
		return nil, fmt.Errorf("player: configure %s decoder: %w", kind, err)
	}

	e.duration.Store(max(e.duration.Load(), tr.Duration))

	return &track{
		kind:     kind,
		format:   tr.Format,
		decoder:  decoder,
		pipeline: pipeline.New(src, cfg),
	}, nil
}

// openTrack opens path and selects its first track of kind. It reports false
// when there is none.
func (e *Engine) openTrack(path string, kind media.TrackKind) (media.SampleSource, media.Track, bool, error) {
	src, err := e.open(path)
	if err != nil {
		return nil, media.Track{}, false, fmt.Errorf("player: open %s: %w", path, err)
	}

	tr, ok := lo.Find(src.Tracks(), func(t media.Track) bool {
		return t.Kind == kind
	})
	if !ok {
		_ = src.Release()
		return nil, media.Track{}, false, nil
	}

	if err := src.SelectTrack(tr.ID); err != nil {
		_ = src.Release()
		return nil, media.Track{}, false, fmt.Errorf("player: select %s track %d: %w", kind, tr.ID, err)
	}
	return src, tr, true, nil
}

func (e *Engine) tracks() []*track {
	return lo.Compact([]*track{e.video, e.audio})
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Subscribe registers cb for every subsequent engine event.
func (e *Engine) Subscribe(cb EventCallback) {
	e.listeners.add(cb)
}

func (e *Engine) Play() {
	if e.isClosed() {
		return
	}

	for _, t := range e.tracks() {
		p := t.pipeline
		if !p.TryActivate() {
			continue
		}

		p.Post(func() {
			if err := p.Start(); err != nil {
				p.Deactivate()
				e.fail(t, err)
				return
			}
			res, err := p.Run(mo.None[int64](), pipeline.UntilEndOfStream)
			e.finished(t, res, err)
		})
	}
	log.Infof("player: play")
}

func (e *Engine) Pause() {
	e.clock.Pause()
	log.Infof("player: pause")
}

func (e *Engine) Resume() {
	e.clock.Resume()
	log.Infof("player: resume")
}

func (e *Engine) Seek(positionUs int64, mode media.SeekMode) {
	e.seek(positionUs, mode, false)
}

func (e *Engine) SeekAndPlay(positionUs int64, mode media.SeekMode) {
	e.seek(positionUs, mode, true)
}

// seek cancels whatever both tracks are doing and queues the repositioning.
// A command superseded before its turn comes is skipped.
func (e *Engine) seek(positionUs int64, mode media.SeekMode, play bool) {
	if e.isClosed() {
		return
	}
	positionUs = max(positionUs, 0)

	target := mo.None[int64]()
	if mode == media.Accurate {
		target = mo.Some(positionUs)
	}

	log.Infof("player: seek to %d (%s, play=%t)", positionUs, mode, play)

	for _, t := range e.tracks() {
		p := t.pipeline
		gen := p.SetSeeking()

		p.Post(func() {
			if !p.Claim(gen) {
				log.Debugf("player: %s: seek to %d superseded", t.kind, positionUs)
				return
			}
			if err := p.Start(); err != nil {
				e.fail(t, err)
				return
			}
			if err := p.Seek(positionUs, mode.SyncMode()); err != nil {
				e.fail(t, err)
				return
			}

			switch {
			case play:
				e.listeners.emit(Event{Kind: EventSeeked, Track: t.kind})
				res, err := p.Run(target, pipeline.UntilEndOfStream)
				e.finished(t, res, err)
			case t.kind == media.Video:
				res, err := p.Run(target, pipeline.UntilFirstDelivery)
				if err != nil {
					e.fail(t, err)
					return
				}
				e.listeners.emit(Event{Kind: EventSeeked, Track: t.kind, Result: res})
			default:
				e.listeners.emit(Event{Kind: EventSeeked, Track: t.kind})
			}
		})
	}
}

// SwitchSource opens path for every track the engine plays and checks that
// the decoders in use accept it before cancelling anything. The swap itself
// runs on each track's worker, after which playback continues on the new file.
func (e *Engine) SwitchSource(path string, target media.RenderTarget) error {
	if e.isClosed() {
		return ErrClosed
	}

	type swap struct {
		track  *track
		source media.SampleSource
		info   media.Track
	}

	var swaps []swap
	abort := func(err error) error {
		for _, s := range swaps {
			_ = s.source.Release()
		}
		return err
	}

	for _, t := range e.tracks() {
		src, tr, ok, err := e.openTrack(path, t.kind)
		if err != nil {
			return abort(err)
		}
		if !ok {
			return abort(fmt.Errorf("%w: %s has no %s track", ErrIncompatibleSource, path, t.kind))
		}

		swaps = append(swaps, swap{track: t, source: src, info: tr})
		if !strings.EqualFold(tr.Format.MIME, t.format.MIME) {
			return abort(fmt.Errorf("%w: %s track of %s is %s, decoder handles %s",
				ErrIncompatibleSource, t.kind, path, tr.Format.MIME, t.format.MIME))
		}
		if need, have := tr.Format.InputSize(), t.format.InputSize(); need > have {
			return abort(fmt.Errorf("%w: %s samples of %s need %d bytes, decoder slots hold %d",
				ErrIncompatibleSource, t.kind, path, need, have))
		}
	}

	e.mu.Lock()
	e.file = path
	e.mu.Unlock()
	e.duration.Store(lo.Max(lo.Map(swaps, func(s swap, _ int) int64 { return s.info.Duration })))

	log.Infof("player: switching to %s", path)

	for _, s := range swaps {
		p := s.track.pipeline
		gen := p.SetSeeking()

		var rebind media.RenderTarget
		if s.track.kind == media.Video {
			rebind = target
		}

		release := func() { _ = s.source.Release() }
		posted := p.PostOr(func() {
			res, err := p.FlushAndRetarget(gen, s.source, rebind)
			if err == nil && res.Reason != pipeline.ReasonCancelled {
				e.listeners.emit(Event{Kind: EventSwitched, Track: s.track.kind})
			}
			e.finished(s.track, res, err)
		}, release)
		if !posted {
			release()
		}
	}
	return nil
}

func (e *Engine) finished(t *track, res pipeline.Result, err error) {
	if err != nil {
		e.fail(t, err)
		return
	}

	log.Infof("player: %s: %s after %d units", t.kind, res.Reason, res.Delivered)
	e.listeners.emit(Event{Kind: EventFinished, Track: t.kind, Result: res})

	if res.Reason == pipeline.ReasonEndOfStream && lo.EveryBy(e.tracks(), func(t *track) bool { return t.pipeline.Ended() }) {
		e.complete()
	}
}

func (e *Engine) fail(t *track, err error) {
	log.Errorf("player: %s: %s", t.kind, err)
	e.listeners.emit(Event{Kind: EventFailed, Track: t.kind, Err: err})
}

func (e *Engine) complete() {
	e.doneOnce.Do(func() {
		close(e.done)
	})
}

// Wait returns a channel closed when every track first reaches the end of
// its stream, or when the engine is closed.
func (e *Engine) Wait() <-chan struct{} {
	return e.done
}

// File returns the path currently played.
func (e *Engine) File() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.file
}

func (e *Engine) Status() Status {
	st := Status{
		File:       e.File(),
		State:      e.state(),
		DurationUs: e.duration.Load(),
	}

	for _, t := range e.tracks() {
		p := t.pipeline
		st.Tracks = append(st.Tracks, TrackStatus{
			Kind:       t.kind,
			MIME:       t.format.MIME,
			Decoder:    t.decoderName(),
			PlayStatus: p.Status(),
			Active:     p.Active(),
			Ended:      p.Ended(),
			PositionUs: p.Position(),
			Stats:      p.Stats(),
		})
	}

	positions := lo.FilterMap(st.Tracks, func(ts TrackStatus, _ int) (int64, bool) {
		return ts.PositionUs, ts.PositionUs >= 0
	})
	if len(positions) > 0 {
		st.PositionUs = positions[0]
	}
	return st
}

func (e *Engine) state() State {
	if e.isClosed() {
		return Closed
	}

	tracks := e.tracks()
	switch {
	case e.clock.Paused():
		return Paused
	case lo.SomeBy(tracks, func(t *track) bool { return t.pipeline.Active() }):
		return Playing
	case lo.EveryBy(tracks, func(t *track) bool { return t.pipeline.Ended() }):
		return Completed
	default:
		return Idle
	}
}

// StartTicker calls callback with a fresh Status every interval until
// StopTicker, and once more when the engine completes or closes.
func (e *Engine) StartTicker(interval time.Duration, callback func(Status)) {
	e.tickerMu.Lock()
	defer e.tickerMu.Unlock()

	if e.tickerStop != nil {
		return
	}

	stop := make(chan struct{})
	e.tickerStop = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-e.done:
				callback(e.Status())
				return
			case <-ticker.C:
				callback(e.Status())
			}
		}
	}()
}

// StopTicker stops the ticker if it is running.
func (e *Engine) StopTicker() {
	e.tickerMu.Lock()
	defer e.tickerMu.Unlock()

	if e.tickerStop != nil {
		close(e.tickerStop)
		e.tickerStop = nil
	}
}

// Close cancels both tracks, stops their workers concurrently and releases
// decoders and sources. Closing twice returns ErrClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.closed = true
	e.mu.Unlock()

	e.StopTicker()

	var g errgroup.Group
	for _, t := range e.tracks() {
		g.Go(t.pipeline.Close)
	}
	err := g.Wait()

	e.complete()
	log.Infof("player: closed")
	return err
}
