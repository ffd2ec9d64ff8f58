package player

import (
	"sync"

	"github.com/avplay-cli/avplay/media"
	"github.com/avplay-cli/avplay/pipeline"
)

// EventKind identifies what happened on a track worker.
type EventKind int

const (
	// EventFinished is emitted when a continuous run returns.
	EventFinished EventKind = iota
	// EventSeeked is emitted once a seek has been applied to a track.
	EventSeeked
	// EventSwitched is emitted once a track runs on a new source.
	EventSwitched
	// EventFailed is emitted when a track command fails.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventFinished:
		return "finished"
	case EventSeeked:
		return "seeked"
	case EventSwitched:
		return "switched"
	default:
		return "failed"
	}
}

// Event is delivered to subscribers from the worker of the track it concerns.
type Event struct {
	Kind   EventKind
	Track  media.TrackKind
	Result pipeline.Result
	Err    error
}

// EventCallback receives engine events. It runs on a track worker and must not block.
type EventCallback func(Event)

type listeners struct {
	mu        sync.Mutex
	callbacks []EventCallback
}

func (l *listeners) add(cb EventCallback) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.callbacks = append(l.callbacks, cb)
}

func (l *listeners) emit(e Event) {
	l.mu.Lock()
	callbacks := append([]EventCallback(nil), l.callbacks...)
	l.mu.Unlock()

	for _, cb := range callbacks {
		cb(e)
	}
}
