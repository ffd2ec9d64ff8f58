package sink

import (
	"sync"
	"time"

	"github.com/avplay-cli/avplay/clock"
	"github.com/avplay-cli/avplay/media"
)

// Device emulates a streaming PCM16 output: writes are accepted while the
// buffered audio fits in the device buffer and block otherwise, draining at
// the format's byte rate.
type Device struct {
	src      clock.TimeSource
	rate     float64
	capacity time.Duration

	mu      sync.Mutex
	started bool
	queued  time.Duration
	drained time.Time
	written int64
}

// NewDevice creates a device for the given audio format.
func NewDevice(format media.Format, buffer time.Duration, src clock.TimeSource) *Device {
	if src == nil {
		src = clock.Wall()
	}
	rate, channels := format.SampleRate, format.Channels
	if rate <= 0 {
		rate = 48000
	}
	if channels <= 0 {
		channels = 2
	}
	if buffer <= 0 {
		buffer = 250 * time.Millisecond
	}

	return &Device{
		src:      src,
		rate:     float64(rate * channels * 2),
		capacity: buffer,
	}
}

func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		d.started = true
		d.drained = d.src.Now()
	}
	return nil
}

func (d *Device) Write(samples []byte) (int, error) {
	span := time.Duration(float64(len(samples)) / d.rate * float64(time.Second))

	for {
		d.mu.Lock()
		if !d.started {
			d.mu.Unlock()
			return 0, ErrNotStarted
		}

		d.drain()
		if d.queued == 0 || d.queued+span <= d.capacity {
			d.queued += span
			d.written += int64(len(samples))
			d.mu.Unlock()
			return len(samples), nil
		}
		wait := d.queued + span - d.capacity
		d.mu.Unlock()

		d.src.Sleep(wait, nil)
	}
}

// drain retires the audio played since the last call. Callers hold mu.
func (d *Device) drain() {
	now := d.src.Now()
	d.queued = max(d.queued-now.Sub(d.drained), 0)
	d.drained = now
}

// Buffered returns how much written audio has not been played yet.
func (d *Device) Buffered() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drain()
	return d.queued
}

// Written returns the total number of bytes accepted.
func (d *Device) Written() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written
}
