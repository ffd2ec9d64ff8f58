// Package clock maps stream timestamps onto wall-clock release times and accounts for
// paused intervals so that resuming never causes a timestamp jump.
package clock

import (
	"sync"
	"time"
)

// TimeSource supplies wall time and interruptible sleeps.
type TimeSource interface {
	Now() time.Time

	// Sleep blocks for d or until interrupt is closed.
	// It reports false when the sleep was interrupted.
	Sleep(d time.Duration, interrupt <-chan struct{}) bool
}

type wall struct{}

// Wall returns the real-time source.
func Wall() TimeSource {
	return wall{}
}

func (wall) Now() time.Time {
	return time.Now()
}

func (wall) Sleep(d time.Duration, interrupt <-chan struct{}) bool {
	if d <= 0 {
		select {
		case <-interrupt:
			return false
		default:
			return true
		}
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-interrupt:
		return false
	}
}

// Manual is a time source that only moves when slept on or advanced.
// Sleeping advances it instantly, which makes pacing deterministic in tests.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a manual source starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the source forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func (m *Manual) Sleep(d time.Duration, interrupt <-chan struct{}) bool {
	select {
	case <-interrupt:
		return false
	default:
	}

	if d > 0 {
		m.Advance(d)
	}
	return true
}
