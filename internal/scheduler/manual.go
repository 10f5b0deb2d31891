package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Scheduler driven by an explicit clock. Tests call
// Advance or Flush; nothing runs on its own.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	frame   time.Duration
	seq     int
	pending []*manualTask
}

type manualTask struct {
	due       time.Time
	seq       int
	fn        func()
	cancelled bool
}

// NewManual creates a Manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	if start.IsZero() {
		start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &Manual{now: start, frame: DefaultFrameInterval}
}

// Now implements Scheduler.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After implements Scheduler.
func (m *Manual) After(d time.Duration, fn func()) Cancel {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{due: m.now.Add(d), seq: m.seq, fn: fn}
	m.pending = append(m.pending, t)
	return func() {
		m.mu.Lock()
		t.cancelled = true
		m.mu.Unlock()
	}
}

// Frame implements Scheduler.
func (m *Manual) Frame(fn func()) Cancel {
	return m.After(m.frame, fn)
}

// Post implements Scheduler.
func (m *Manual) Post(fn func()) {
	m.After(0, fn)
}

// Pending reports how many live tasks are queued.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.pending {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Flush runs every task already due, including tasks they schedule with zero delay.
func (m *Manual) Flush() {
	m.Advance(0)
}

// NextFrame advances the clock by one frame interval.
func (m *Manual) NextFrame() {
	m.Advance(m.frame)
}

// Advance moves the clock forward by d, running due tasks in (due, seq) order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.popDue(target)
		if t == nil {
			break
		}
		t.fn()
	}

	m.mu.Lock()
	if m.now.Before(target) {
		m.now = target
	}
	m.mu.Unlock()
}

func (m *Manual) popDue(target time.Time) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.pending[:0]
	for _, t := range m.pending {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	m.pending = live
	if len(m.pending) == 0 {
		return nil
	}
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].due.Equal(m.pending[j].due) {
			return m.pending[i].seq < m.pending[j].seq
		}
		return m.pending[i].due.Before(m.pending[j].due)
	})
	first := m.pending[0]
	if first.due.After(target) {
		return nil
	}
	m.pending = m.pending[1:]
	if first.due.After(m.now) {
		m.now = first.due
	}
	return first
}
