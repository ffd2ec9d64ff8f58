package clock

import (
	"errors"
	"sync"
	"time"

	"github.com/samber/mo"
)

// ErrInterrupted is returned when a pacing or pause wait is cancelled.
var ErrInterrupted = errors.New("clock: wait interrupted")

// Pacer decides how long a pacing wait sleeps before re-checking the clock.
type Pacer interface {
	Step(remaining time.Duration) time.Duration
}

type poll time.Duration

// Poll sleeps in fixed increments, re-checking the pause flag on every wake.
func Poll(step time.Duration) Pacer {
	if step <= 0 {
		step = 10 * time.Millisecond
	}
	return poll(step)
}

func (p poll) Step(remaining time.Duration) time.Duration {
	return min(remaining, time.Duration(p))
}

type timer struct{}

// Timer sleeps the whole remaining time in one go.
func Timer() Pacer {
	return timer{}
}

func (timer) Step(remaining time.Duration) time.Duration {
	return remaining
}

// Clock is the shared playback clock.
type Clock struct {
	src   TimeSource
	pacer Pacer
	speed float64

	mu         sync.Mutex
	origin     mo.Option[time.Time]
	paused     bool
	pauseBegan mo.Option[time.Time]
	resumed    chan struct{}
}

// Option configures a Clock.
type Option func(*Clock)

// WithTimeSource replaces the wall-clock source.
func WithTimeSource(src TimeSource) Option {
	return func(c *Clock) {
		c.src = src
	}
}

// WithPacer replaces the default 10ms polling pacer.
func WithPacer(p Pacer) Option {
	return func(c *Clock) {
		c.pacer = p
	}
}

// WithSpeed sets the playback rate; timestamp deltas are divided by it.
func WithSpeed(speed float64) Option {
	return func(c *Clock) {
		if speed > 0 {
			c.speed = speed
		}
	}
}

// New creates a running, unanchored clock.
func New(opts ...Option) *Clock {
	c := &Clock{
		src:     Wall(),
		pacer:   Poll(10 * time.Millisecond),
		speed:   1,
		resumed: make(chan struct{}),
	}
	close(c.resumed)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the current wall time of the clock's source.
func (c *Clock) Now() time.Time {
	return c.src.Now()
}

// Source returns the time source backing the clock.
func (c *Clock) Source() TimeSource {
	return c.src
}

// Start anchors the playback segment at the current wall time.
func (c *Clock) Start() time.Time {
	now := c.src.Now()

	c.mu.Lock()
	c.origin = mo.Some(now)
	c.mu.Unlock()

	return now
}

// Reset forgets the segment origin. A pause in progress stays in effect but
// its start is re-recorded by the next waiter.
func (c *Clock) Reset() {
	c.mu.Lock()
	c.origin = mo.None[time.Time]()
	c.pauseBegan = mo.None[time.Time]()
	c.mu.Unlock()
}

// Origin returns the wall time the current segment is anchored at.
func (c *Clock) Origin() mo.Option[time.Time] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.origin
}

// Due returns the wall time at which a unit delta after the segment start is released.
func (c *Clock) Due(delta time.Duration) time.Time {
	c.mu.Lock()
	origin, ok := c.origin.Get()
	c.mu.Unlock()

	if !ok {
		origin = c.src.Now()
	}
	return origin.Add(c.scale(delta))
}

// Lateness reports how far past its due time a unit delta after the segment start is.
func (c *Clock) Lateness(delta time.Duration) time.Duration {
	return c.src.Now().Sub(c.Due(delta))
}

func (c *Clock) scale(delta time.Duration) time.Duration {
	if c.speed == 1 {
		return delta
	}
	return time.Duration(float64(delta) / c.speed)
}

// Pause closes the release gate. It is idempotent.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.paused {
		return
	}
	c.paused = true
	c.resumed = make(chan struct{})
}

// Resume shifts the origin by the observed pause duration and wakes every waiter.
func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.paused {
		return
	}

	if began, ok := c.pauseBegan.Get(); ok {
		if origin, ok := c.origin.Get(); ok {
			c.origin = mo.Some(origin.Add(c.src.Now().Sub(began)))
		}
		c.pauseBegan = mo.None[time.Time]()
	}

	c.paused = false
	close(c.resumed)
}

// Paused reports whether the gate is closed.
func (c *Clock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// PauseBegan returns the moment a waiter first observed the current pause.
func (c *Clock) PauseBegan() mo.Option[time.Time] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pauseBegan
}

// WaitWhilePaused blocks until resumed, recording the pause start on first observation.
func (c *Clock) WaitWhilePaused(interrupt <-chan struct{}) error {
	return c.waitPaused(interrupt, true)
}

// BlockWhilePaused blocks until resumed without taking part in pause accounting.
func (c *Clock) BlockWhilePaused(interrupt <-chan struct{}) error {
	return c.waitPaused(interrupt, false)
}

func (c *Clock) waitPaused(interrupt <-chan struct{}, record bool) error {
	c.mu.Lock()
	if !c.paused {
		c.mu.Unlock()
		return nil
	}
	if record && c.pauseBegan.IsAbsent() {
		c.pauseBegan = mo.Some(c.src.Now())
	}
	resumed := c.resumed
	c.mu.Unlock()

	select {
	case <-resumed:
		return nil
	case <-interrupt:
		return ErrInterrupted
	}
}

// Pace blocks until the unit delta after the segment start is due, holding
// while paused. The due time is recomputed after every wake so a resume is
// reflected immediately.
func (c *Clock) Pace(delta time.Duration, interrupt <-chan struct{}) error {
	for {
		if err := c.WaitWhilePaused(interrupt); err != nil {
			return err
		}

		remaining := c.Due(delta).Sub(c.src.Now())
		if remaining <= 0 {
			return nil
		}

		if !c.src.Sleep(c.pacer.Step(remaining), interrupt) {
			return ErrInterrupted
		}
	}
}
