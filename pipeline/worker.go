// Package pipeline drives one track's decode loop on a dedicated sequential worker.
package pipeline

import "sync"

// Worker runs queued tasks one at a time on its own goroutine.
type Worker struct {
	name string

	mu     sync.Mutex
	queue  []task
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

type task struct {
	run, dropped func()
}

// NewWorker starts a worker.
func NewWorker(name string) *Worker {
	w := &Worker{
		name: name,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

// Post enqueues fn without blocking. It reports false once the worker is closed.
func (w *Worker) Post(fn func()) bool {
	return w.PostOr(fn, nil)
}

// PostOr is Post with a hook run in place of fn when Close drops it unstarted.
// The hook is not run when PostOr itself refuses fn.
func (w *Worker) PostOr(fn, dropped func()) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	w.queue = append(w.queue, task{run: fn, dropped: dropped})
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

// Do enqueues fn and waits for it to finish.
func (w *Worker) Do(fn func()) bool {
	finished := make(chan struct{})
	if !w.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}

	select {
	case <-finished:
		return true
	case <-w.done:
		return false
	}
}

// Pending returns the number of queued tasks not yet started.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// Close stops accepting tasks, drops the queued ones and waits for the running
// one. Drop hooks run after that, in submission order.
func (w *Worker) Close() {
	var dropped []task
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		dropped, w.queue = w.queue, nil
	}
	w.mu.Unlock()

	defer func() {
		for _, t := range dropped {
			if t.dropped != nil {
				t.dropped()
			}
		}
	}()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	<-w.done
}

// Done is closed once the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) loop() {
	defer close(w.done)

	for {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		if len(w.queue) == 0 {
			w.mu.Unlock()
			<-w.wake
			continue
		}
		next := w.queue[0]
		w.queue[0] = task{}
		w.queue = w.queue[1:]
		w.mu.Unlock()

		next.run()
	}
}
