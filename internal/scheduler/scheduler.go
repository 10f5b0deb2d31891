// Package scheduler provides the cooperative task scheduling used by the rail
// overlay. Every callback handed to a Scheduler runs on a single event loop;
// timers and frames only decide when a callback is queued, never where it runs.
package scheduler

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultFrameInterval approximates one animation frame.
const DefaultFrameInterval = 16 * time.Millisecond

// Cancel stops a pending task. Calling it after the task ran, or twice, is a no-op.
type Cancel func()

// Scheduler queues work onto a single event loop.
type Scheduler interface {
	// Now returns the scheduler's notion of the current time.
	Now() time.Time
	// After runs fn on the loop once d has elapsed.
	After(d time.Duration, fn func()) Cancel
	// Frame runs fn on the loop at the next frame boundary.
	Frame(fn func()) Cancel
	// Post runs fn on the loop as soon as possible. Safe to call from any goroutine.
	Post(fn func())
}

// Loop is the production Scheduler. Timers fire on runtime goroutines but only
// enqueue their callback; the owner drains Tasks() on its own goroutine.
type Loop struct {
	tasks chan func()
	frame time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithFrameInterval overrides the frame interval.
func WithFrameInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.frame = d
		}
	}
}

// NewLoop creates a Loop.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		tasks:  make(chan func(), 256),
		frame:  DefaultFrameInterval,
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now implements Scheduler.
func (l *Loop) Now() time.Time { return time.Now() }

// After implements Scheduler.
func (l *Loop) After(d time.Duration, fn func()) Cancel {
	var cancelled atomic.Bool
	t := time.AfterFunc(d, func() {
		l.enqueue(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

// Frame implements Scheduler.
func (l *Loop) Frame(fn func()) Cancel {
	return l.After(l.frame, fn)
}

// Post implements Scheduler.
func (l *Loop) Post(fn func()) {
	select {
	case l.tasks <- fn:
	default:
		go l.enqueue(fn)
	}
}

func (l *Loop) enqueue(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.closed:
	}
}

// Tasks exposes queued callbacks. The consumer must run them in order on one goroutine.
func (l *Loop) Tasks() <-chan func() { return l.tasks }

// Close releases goroutines blocked on a full queue.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.closed) })
}
