package scheduler

import "time"

// FrameCoalescer runs fn at most once per frame no matter how often Trigger
// is called. The callback sees the state as of the frame, not of the first trigger.
type FrameCoalescer struct {
	sched   Scheduler
	fn      func()
	pending Cancel
}

// NewFrameCoalescer creates a coalescer for fn.
func NewFrameCoalescer(s Scheduler, fn func()) *FrameCoalescer {
	return &FrameCoalescer{sched: s, fn: fn}
}

// Trigger requests a run at the next frame.
func (c *FrameCoalescer) Trigger() {
	if c.pending != nil {
		return
	}
	c.pending = c.sched.Frame(func() {
		c.pending = nil
		c.fn()
	})
}

// Pending reports whether a frame callback is outstanding.
func (c *FrameCoalescer) Pending() bool { return c.pending != nil }

// Stop drops any outstanding frame.
func (c *FrameCoalescer) Stop() {
	if c.pending != nil {
		c.pending()
		c.pending = nil
	}
}

// Debouncer delays fn until Trigger has been quiet for the configured delay.
type Debouncer struct {
	sched   Scheduler
	delay   time.Duration
	fn      func()
	pending Cancel
}

// NewDebouncer creates a trailing-edge debouncer.
func NewDebouncer(s Scheduler, delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{sched: s, delay: delay, fn: fn}
}

// Trigger restarts the quiet period.
func (d *Debouncer) Trigger() {
	d.Stop()
	d.pending = d.sched.After(d.delay, func() {
		d.pending = nil
		d.fn()
	})
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool { return d.pending != nil }

// Stop cancels a scheduled run.
func (d *Debouncer) Stop() {
	if d.pending != nil {
		d.pending()
		d.pending = nil
	}
}

// Poller retries check once per frame (or per interval) until it reports
// true or the timeout elapses.
type Poller struct {
	sched    Scheduler
	interval time.Duration
	timeout  time.Duration
	pending  Cancel
}

// NewPoller creates a bounded-retry poller. A zero interval polls every frame.
func NewPoller(s Scheduler, interval, timeout time.Duration) *Poller {
	return &Poller{sched: s, interval: interval, timeout: timeout}
}

// Start runs check immediately and then repeatedly. done receives true when
// check succeeded and false on timeout. Starting again abandons the previous run.
func (p *Poller) Start(check func() bool, done func(ok bool)) {
	p.Stop()
	deadline := p.sched.Now().Add(p.timeout)
	var tick func()
	tick = func() {
		p.pending = nil
		if check() {
			done(true)
			return
		}
		if p.sched.Now().After(deadline) {
			done(false)
			return
		}
		if p.interval > 0 {
			p.pending = p.sched.After(p.interval, tick)
		} else {
			p.pending = p.sched.Frame(tick)
		}
	}
	tick()
}

// Active reports whether a retry is outstanding.
func (p *Poller) Active() bool { return p.pending != nil }

// Stop abandons the current run without calling done.
func (p *Poller) Stop() {
	if p.pending != nil {
		p.pending()
		p.pending = nil
	}
}
