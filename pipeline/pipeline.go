package pipeline

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avplay-cli/avplay/clock"
	"github.com/avplay-cli/avplay/log"
	"github.com/avplay-cli/avplay/media"
	"github.com/samber/mo"
)

// DefaultTimeout bounds every wait for an input slot or an output unit.
const DefaultTimeout = 10 * time.Millisecond

// PlayStatus tells whether the decoder (and audio sink) have been started.
type PlayStatus int32

const (
	NotStarted PlayStatus = iota
	Started
)

func (s PlayStatus) String() string {
	if s == Started {
		return "started"
	}
	return "not started"
}

// StopCondition selects when Run returns besides end of stream and cancellation.
type StopCondition int

const (
	// UntilEndOfStream runs continuous, clock-paced playback.
	UntilEndOfStream StopCondition = iota
	// UntilFirstDelivery returns after one unit was delivered, without pacing.
	UntilFirstDelivery
)

// Reason explains why Run returned.
type Reason int

const (
	ReasonEndOfStream Reason = iota
	ReasonDelivered
	ReasonCancelled
	ReasonFailed
)

func (r Reason) String() string {
	switch r {
	case ReasonEndOfStream:
		return "end of stream"
	case ReasonDelivered:
		return "delivered"
	case ReasonCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Result summarizes one Run.
type Result struct {
	Reason      Reason
	Delivered   int
	Dropped     int
	LateDropped int
}

// Stats are cumulative counters over the pipeline's lifetime.
type Stats struct {
	Runs        int64 `json:"runs"`
	Submitted   int64 `json:"submitted"`
	Delivered   int64 `json:"delivered"`
	Dropped     int64 `json:"dropped"`
	LateDropped int64 `json:"late_dropped"`
}

// Config wires a pipeline to its collaborators.
type Config struct {
	Kind    media.TrackKind
	Decoder media.DecoderEngine
	// Sink receives decoded audio; unused for video.
	Sink  media.AudioSink
	Clock *clock.Clock

	Timeout time.Duration
	// GateAudio holds audio writes while the clock is paused.
	GateAudio bool
	// LateDrop discards video units later than this; zero disables it.
	LateDrop time.Duration
}

// Pipeline is one track's decode loop. Methods documented as worker-only must
// be called from tasks posted to the pipeline; the rest are safe anywhere.
// The source and decoder are touched only from the worker.
type Pipeline struct {
	kind      media.TrackKind
	worker    *Worker
	decoder   media.DecoderEngine
	sink      media.AudioSink
	clock     *clock.Clock
	timeout   time.Duration
	gateAudio bool
	lateDrop  time.Duration

	source media.SampleSource

	status   atomic.Int32
	active   atomic.Bool
	ended    atomic.Bool
	position atomic.Int64

	seekMu     sync.Mutex
	seeking    bool
	generation uint64
	interrupt  chan struct{}

	runs, submitted, delivered, dropped, lateDropped atomic.Int64
}

// New creates a pipeline reading from src and starts its worker.
func New(src media.SampleSource, cfg Config) *Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	p := &Pipeline{
		kind:      cfg.Kind,
		worker:    NewWorker(cfg.Kind.String()),
		decoder:   cfg.Decoder,
		sink:      cfg.Sink,
		clock:     cfg.Clock,
		timeout:   cfg.Timeout,
		gateAudio: cfg.GateAudio,
		lateDrop:  cfg.LateDrop,
		source:    src,
		interrupt: make(chan struct{}),
	}
	p.position.Store(-1)
	return p
}

func (p *Pipeline) Kind() media.TrackKind {
	return p.kind
}

// Post enqueues a task on the pipeline's worker.
func (p *Pipeline) Post(fn func()) bool {
	return p.worker.Post(fn)
}

// PostOr queues a task with a hook for when Close drops it unstarted.
func (p *Pipeline) PostOr(fn, dropped func()) bool {
	return p.worker.PostOr(fn, dropped)
}

// Do runs a task on the pipeline's worker and waits for it.
func (p *Pipeline) Do(fn func()) bool {
	return p.worker.Do(fn)
}

func (p *Pipeline) Status() PlayStatus {
	return PlayStatus(p.status.Load())
}

// Deactivate withdraws a claim taken with TryActivate whose run never started.
func (p *Pipeline) Deactivate() {
	p.active.Store(false)
}

// Active reports whether a continuous run is scheduled or in progress.
func (p *Pipeline) Active() bool {
	return p.active.Load()
}

// TryActivate claims the right to schedule a continuous run.
func (p *Pipeline) TryActivate() bool {
	return p.active.CompareAndSwap(false, true)
}

// Ended reports whether the last continuous run reached end of stream.
func (p *Pipeline) Ended() bool {
	return p.ended.Load()
}

// Position returns the timestamp of the last delivered unit, or -1.
func (p *Pipeline) Position() int64 {
	return p.position.Load()
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Runs:        p.runs.Load(),
		Submitted:   p.submitted.Load(),
		Delivered:   p.delivered.Load(),
		Dropped:     p.dropped.Load(),
		LateDropped: p.lateDropped.Load(),
	}
}

// SetSeeking raises the cancellation flag, wakes any interruptible wait and
// returns the new command generation.
func (p *Pipeline) SetSeeking() uint64 {
	p.seekMu.Lock()
	defer p.seekMu.Unlock()

	p.generation++
	if !p.seeking {
		p.seeking = true
		close(p.interrupt)
	}
	return p.generation
}

// ClearSeeking lowers the cancellation flag.
func (p *Pipeline) ClearSeeking() {
	p.seekMu.Lock()
	defer p.seekMu.Unlock()
	p.clearSeeking()
}

// Claim lowers the cancellation flag on behalf of the command that raised it
// as generation gen. It reports false, leaving the flag raised, when a newer
// command has been issued since.
func (p *Pipeline) Claim(gen uint64) bool {
	p.seekMu.Lock()
	defer p.seekMu.Unlock()

	if gen != p.generation {
		return false
	}
	p.clearSeeking()
	return true
}

func (p *Pipeline) clearSeeking() {
	if p.seeking {
		p.seeking = false
		p.interrupt = make(chan struct{})
	}
}

func (p *Pipeline) Seeking() bool {
	p.seekMu.Lock()
	defer p.seekMu.Unlock()
	return p.seeking
}

func (p *Pipeline) cancelled() <-chan struct{} {
	p.seekMu.Lock()
	defer p.seekMu.Unlock()
	return p.interrupt
}

// Start starts the decoder and, for audio, the sink. Worker-only; idempotent.
func (p *Pipeline) Start() error {
	if p.Status() == Started {
		return nil
	}

	if err := p.decoder.Start(); err != nil {
		return fmt.Errorf("%s: start decoder: %w", p.kind, err)
	}
	if p.kind == media.Audio && p.sink != nil {
		if err := p.sink.Start(); err != nil {
			return fmt.Errorf("%s: start sink: %w", p.kind, err)
		}
	}

	p.status.Store(int32(Started))
	log.Debugf("%s: started", p.kind)
	return nil
}

// Seek repositions the source and discards everything the decoder still holds. Worker-only.
func (p *Pipeline) Seek(positionUs int64, mode media.SyncMode) error {
	if err := p.source.SeekTo(positionUs, mode); err != nil {
		return fmt.Errorf("%s: seek: %w", p.kind, err)
	}
	if err := p.Flush(); err != nil {
		return err
	}
	p.ended.Store(false)
	log.Infof("%s: sought to %d (%s), landed on %d", p.kind, positionUs, mode, p.source.SampleTime())
	return nil
}

// Flush discards the decoder's queued input and output. Worker-only.
func (p *Pipeline) Flush() error {
	if p.Status() != Started {
		return nil
	}
	if err := p.decoder.Flush(); err != nil {
		return fmt.Errorf("%s: flush: %w", p.kind, err)
	}
	return nil
}

// Retarget flushes the decoder, swaps in src and, for video, rebinds the
// render target when one is given. The previous source is released. Worker-only.
func (p *Pipeline) Retarget(src media.SampleSource, target media.RenderTarget) error {
	if err := p.Flush(); err != nil {
		return err
	}

	old := p.source
	p.source = src
	if old != nil && old != src {
		if err := old.Release(); err != nil {
			log.Warnf("%s: release previous source: %s", p.kind, err)
		}
	}

	if p.kind == media.Video && target != nil {
		if err := p.decoder.SetOutputTarget(target); err != nil {
			return fmt.Errorf("%s: rebind target: %w", p.kind, err)
		}
	}
	p.ended.Store(false)
	p.position.Store(-1)
	log.Infof("%s: source replaced", p.kind)
	return nil
}

// FlushAndRetarget hot-swaps the source and target without recreating the
// decoder, then resumes continuous playback on behalf of command gen. A
// superseded command swaps the source but does not run. Worker-only.
func (p *Pipeline) FlushAndRetarget(gen uint64, src media.SampleSource, target media.RenderTarget) (Result, error) {
	if err := p.Retarget(src, target); err != nil {
		return Result{Reason: ReasonFailed}, err
	}
	if !p.Claim(gen) {
		return Result{Reason: ReasonCancelled}, nil
	}

	p.active.Store(true)
	if err := p.Start(); err != nil {
		p.active.Store(false)
		return Result{Reason: ReasonFailed}, err
	}
	return p.Run(mo.None[int64](), UntilEndOfStream)
}

// Run is the decode/drain loop. It returns on end of stream, on cancellation,
// or after the first delivery when until is UntilFirstDelivery. Units before
// target are released without delivery. Worker-only.
func (p *Pipeline) Run(target mo.Option[int64], until StopCondition) (res Result, err error) {
	p.runs.Add(1)

	continuous := until == UntilEndOfStream
	if continuous {
		p.active.Store(true)
		p.ended.Store(false)
		defer p.active.Store(false)

		if p.kind == media.Video {
			p.clock.Reset()
		}
	}

	var (
		inputDone bool
		first     = mo.None[int64]()
	)

	defer func() {
		log.Debugf("%s: run finished: %s (delivered=%d dropped=%d late=%d)",
			p.kind, res.Reason, res.Delivered, res.Dropped, res.LateDropped)
	}()

	for {
		if p.Seeking() {
			return Result{Reason: ReasonCancelled, Delivered: res.Delivered, Dropped: res.Dropped, LateDropped: res.LateDropped}, nil
		}

		if !inputDone {
			if inputDone, err = p.feed(); err != nil {
				res.Reason = ReasonFailed
				return res, err
			}
			if p.Seeking() {
				continue
			}
		}

		unit, ok := p.decoder.DequeueOutputUnit(p.timeout)
		if !ok {
			continue
		}

		if unit.EndOfStream() {
			p.release(unit, false)
			if continuous {
				p.ended.Store(true)
			}
			res.Reason = ReasonEndOfStream
			return res, nil
		}

		if t, ok := target.Get(); ok && unit.PTS < t {
			p.release(unit, false)
			res.Dropped++
			p.dropped.Add(1)
			log.Tracef("%s: dropped pts=%d before target %d", p.kind, unit.PTS, t)
			continue
		}

		var out outcome
		if p.kind == media.Video {
			out, err = p.deliverVideo(unit, until, &first)
		} else {
			out, err = p.deliverAudio(unit, until)
		}
		if err != nil {
			res.Reason = ReasonFailed
			return res, err
		}

		switch out {
		case delivered:
			res.Delivered++
			if until == UntilFirstDelivery {
				res.Reason = ReasonDelivered
				return res, nil
			}
		case lateDropped:
			res.LateDropped++
		}
	}
}

// feed moves one sample from the source into the decoder. It reports whether
// the input side is exhausted.
func (p *Pipeline) feed() (bool, error) {
	slot, ok := p.decoder.DequeueInputSlot(p.timeout)
	if !ok {
		return false, nil
	}

	n, err := p.source.ReadSample(p.decoder.InputBuffer(slot))
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("%s: read sample at %d: %w", p.kind, p.source.SampleTime(), err)
		}
		if err := p.decoder.SubmitInput(slot, 0, 0, media.FlagEndOfStream); err != nil {
			return false, fmt.Errorf("%s: submit end of stream: %w", p.kind, err)
		}
		return true, nil
	}

	if err := p.decoder.SubmitInput(slot, n, p.source.SampleTime(), p.source.SampleFlags()); err != nil {
		return false, fmt.Errorf("%s: submit sample: %w", p.kind, err)
	}
	p.source.Advance()
	p.submitted.Add(1)
	return false, nil
}

type outcome int

const (
	delivered outcome = iota
	lateDropped
	interrupted
)

func (p *Pipeline) deliverVideo(unit *media.OutputUnit, until StopCondition, first *mo.Option[int64]) (outcome, error) {
	if until == UntilFirstDelivery {
		return delivered, p.present(unit)
	}

	start, ok := first.Get()
	if !ok {
		start = unit.PTS
		*first = mo.Some(start)
		p.clock.Start()
	}

	delta := media.Micros(unit.PTS - start)
	if p.lateDrop > 0 && delta > 0 && p.clock.Lateness(delta) > p.lateDrop {
		p.release(unit, false)
		p.lateDropped.Add(1)
		log.Debugf("%s: late drop pts=%d", p.kind, unit.PTS)
		return lateDropped, nil
	}

	if err := p.clock.Pace(delta, p.cancelled()); err != nil {
		p.release(unit, false)
		return interrupted, nil
	}
	return delivered, p.present(unit)
}

func (p *Pipeline) deliverAudio(unit *media.OutputUnit, until StopCondition) (outcome, error) {
	if p.gateAudio && until == UntilEndOfStream {
		if err := p.clock.BlockWhilePaused(p.cancelled()); err != nil {
			p.release(unit, false)
			return interrupted, nil
		}
	}

	if p.sink != nil {
		if _, err := p.sink.Write(unit.Payload); err != nil {
			log.Warnf("%s: sink write: %s", p.kind, err)
		}
	}

	p.release(unit, false)
	p.position.Store(unit.PTS)
	p.delivered.Add(1)
	return delivered, nil
}

func (p *Pipeline) present(unit *media.OutputUnit) error {
	if err := p.decoder.ReleaseOutputUnit(unit.ID, true); err != nil {
		return fmt.Errorf("%s: present pts=%d: %w", p.kind, unit.PTS, err)
	}
	p.position.Store(unit.PTS)
	p.delivered.Add(1)
	return nil
}

func (p *Pipeline) release(unit *media.OutputUnit, deliver bool) {
	if err := p.decoder.ReleaseOutputUnit(unit.ID, deliver); err != nil {
		log.Warnf("%s: release unit %d: %s", p.kind, unit.ID, err)
	}
}

// Close cancels any running loop, stops the worker and releases the decoder
// and source.
func (p *Pipeline) Close() error {
	p.SetSeeking()
	p.worker.Close()

	return errors.Join(p.decoder.Release(), p.source.Release())
}
