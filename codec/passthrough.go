// Package codec provides software Decoder Engines and the factory that selects them.
package codec

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avplay-cli/avplay/log"
	"github.com/avplay-cli/avplay/media"
)

var (
	ErrNoDecoder   = errors.New("codec: no decoder for stream")
	ErrNotStarted  = errors.New("codec: engine not started")
	ErrUnknownUnit = errors.New("codec: unknown output unit")
	ErrReleased    = errors.New("codec: engine released")
	ErrBadSlot     = errors.New("codec: input slot not dequeued")
)

type engineState int

const (
	stateUninitialized engineState = iota
	stateConfigured
	stateRunning
	stateReleased
)

const (
	defaultSlots       = 4
	defaultLatency     = 2
	defaultSampleRate  = 48000
	defaultChannels    = 2
	defaultAudioFrame  = 20 * time.Millisecond
	maxSynthesizedSpan = time.Second
)

// Passthrough is a software Decoder Engine. Video units carry the compressed
// sample as payload; audio units carry silent PCM16 spanning the gap to the
// next sample, so audio sinks can pace on byte count.
type Passthrough struct {
	name        string
	inputSlots  int
	outputSlots int
	latency     int

	mu          sync.Mutex
	state       engineState
	format      media.Format
	target      media.RenderTarget
	pcm         bool
	buffers     [][]byte
	owned       []bool
	free        chan int
	held        []*media.OutputUnit
	ready       []*media.OutputUnit
	outstanding map[int]*media.OutputUnit
	nextID      int
	lastSpan    int64
	signal      chan struct{}
}

// Option configures a Passthrough engine.
type Option func(*Passthrough)

// WithSlots sets the number of input slots and outstanding output units.
func WithSlots(input, output int) Option {
	return func(p *Passthrough) {
		if input > 0 {
			p.inputSlots = input
		}
		if output > 0 {
			p.outputSlots = output
		}
	}
}

// WithLatency sets how many submitted samples are held back before the first output appears.
func WithLatency(n int) Option {
	return func(p *Passthrough) {
		if n >= 0 {
			p.latency = n
		}
	}
}

// NewPassthrough creates an unconfigured engine.
func NewPassthrough(name string, opts ...Option) *Passthrough {
	p := &Passthrough{
		name:        name,
		inputSlots:  defaultSlots,
		outputSlots: defaultSlots,
		latency:     defaultLatency,
		outstanding: make(map[int]*media.OutputUnit),
		signal:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the engine identifier chosen at registration.
func (p *Passthrough) Name() string {
	return p.name
}

func (p *Passthrough) Configure(format media.Format, target media.RenderTarget) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateReleased {
		return ErrReleased
	}
	if p.state == stateRunning {
		return fmt.Errorf("codec: %s: configure while running", p.name)
	}

	p.format = format
	p.target = target
	p.pcm = strings.HasPrefix(strings.ToLower(format.MIME), "audio/")
	if p.pcm {
		if p.format.SampleRate <= 0 {
			p.format.SampleRate = defaultSampleRate
		}
		if p.format.Channels <= 0 {
			p.format.Channels = defaultChannels
		}
	}

	size := format.InputSize()
	p.buffers = make([][]byte, p.inputSlots)
	for i := range p.buffers {
		p.buffers[i] = make([]byte, size)
	}
	p.owned = make([]bool, p.inputSlots)
	p.free = make(chan int, p.inputSlots)
	p.refill()
	p.state = stateConfigured

	log.Debugf("codec: %s configured for %s (%d slots of %d bytes)", p.name, format.MIME, p.inputSlots, size)
	return nil
}

func (p *Passthrough) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateConfigured:
		p.state = stateRunning
		return nil
	case stateRunning:
		return nil
	case stateReleased:
		return ErrReleased
	default:
		return fmt.Errorf("codec: %s: start before configure", p.name)
	}
}

func (p *Passthrough) Flush() error {
	p.mu.Lock()
	if p.state != stateRunning {
		p.mu.Unlock()
		return ErrNotStarted
	}

	p.held = nil
	p.ready = nil
	p.outstanding = make(map[int]*media.OutputUnit)
	p.lastSpan = 0
	for i := range p.owned {
		p.owned[i] = false
	}
	p.refill()
	p.mu.Unlock()

	p.notify()
	return nil
}

// refill returns every slot to the free queue. Callers hold mu.
func (p *Passthrough) refill() {
	for len(p.free) > 0 {
		<-p.free
	}
	for i := 0; i < p.inputSlots; i++ {
		p.free <- i
	}
}

func (p *Passthrough) SetOutputTarget(target media.RenderTarget) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateReleased {
		return ErrReleased
	}
	p.target = target
	return nil
}

func (p *Passthrough) DequeueInputSlot(timeout time.Duration) (int, bool) {
	p.mu.Lock()
	if p.state != stateRunning {
		p.mu.Unlock()
		return -1, false
	}
	free := p.free
	p.mu.Unlock()

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case slot := <-free:
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.state != stateRunning || free != p.free {
			return -1, false
		}
		p.owned[slot] = true
		return slot, true
	case <-t.C:
		return -1, false
	}
}

func (p *Passthrough) InputBuffer(slot int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	if slot < 0 || slot >= len(p.buffers) {
		return nil
	}
	return p.buffers[slot]
}

func (p *Passthrough) SubmitInput(slot, size int, timestampUs int64, flags media.Flags) error {
	p.mu.Lock()

	if p.state != stateRunning {
		p.mu.Unlock()
		return ErrNotStarted
	}
	if slot < 0 || slot >= len(p.owned) || !p.owned[slot] {
		p.mu.Unlock()
		return ErrBadSlot
	}
	if size < 0 || size > len(p.buffers[slot]) {
		p.mu.Unlock()
		return fmt.Errorf("codec: %s: sample of %d bytes exceeds slot", p.name, size)
	}

	if flags&media.FlagEndOfStream != 0 {
		p.finalizeHeld(timestampUs)
		p.ready = append(p.ready, p.held...)
		p.held = nil
		p.ready = append(p.ready, &media.OutputUnit{PTS: timestampUs, Flags: media.FlagEndOfStream})
	} else {
		unit := &media.OutputUnit{PTS: timestampUs, Flags: flags & media.FlagSync}
		if p.pcm {
			p.finalizeHeld(timestampUs)
		} else {
			unit.Payload = append([]byte(nil), p.buffers[slot][:size]...)
		}
		p.held = append(p.held, unit)

		latency := p.latency
		if p.pcm {
			latency = max(latency, 1)
		}
		for len(p.held) > latency {
			p.ready = append(p.ready, p.held[0])
			p.held = p.held[1:]
		}
	}

	p.owned[slot] = false
	p.free <- slot
	p.mu.Unlock()

	p.notify()
	return nil
}

// finalizeHeld gives the newest held audio unit the PCM span up to next. Callers hold mu.
func (p *Passthrough) finalizeHeld(next int64) {
	if !p.pcm || len(p.held) == 0 {
		return
	}

	last := p.held[len(p.held)-1]
	if last.Payload != nil {
		return
	}

	span := next - last.PTS
	if span <= 0 || next <= 0 {
		span = p.lastSpan
	}
	if span <= 0 {
		span = defaultAudioFrame.Microseconds()
	}
	span = min(span, maxSynthesizedSpan.Microseconds())
	p.lastSpan = span

	frames := int64(p.format.SampleRate) * span / 1_000_000
	last.Payload = make([]byte, frames*int64(p.format.Channels)*2)
}

func (p *Passthrough) DequeueOutputUnit(timeout time.Duration) (*media.OutputUnit, bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	for {
		p.mu.Lock()
		if p.state == stateRunning && len(p.ready) > 0 && len(p.outstanding) < p.outputSlots {
			unit := p.ready[0]
			p.ready = p.ready[1:]
			unit.ID = p.nextID
			p.nextID++
			p.outstanding[unit.ID] = unit
			p.mu.Unlock()
			return unit, true
		}
		p.mu.Unlock()

		select {
		case <-p.signal:
		case <-t.C:
			return nil, false
		}
	}
}

func (p *Passthrough) ReleaseOutputUnit(id int, deliver bool) error {
	p.mu.Lock()
	unit, ok := p.outstanding[id]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownUnit, id)
	}
	delete(p.outstanding, id)
	target := p.target
	p.mu.Unlock()

	p.notify()

	if deliver && target != nil && !unit.EndOfStream() {
		return target.Present(unit)
	}
	return nil
}

func (p *Passthrough) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = stateReleased
	p.buffers = nil
	p.held = nil
	p.ready = nil
	p.outstanding = make(map[int]*media.OutputUnit)
	p.target = nil
	return nil
}

func (p *Passthrough) notify() {
	select {
	case p.signal <- struct{}{}:
	default:
	}
}
