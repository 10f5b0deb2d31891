package timeline

import (
	"time"

	"github.com/Dicklesworthstone/chatrail/internal/scheduler"
)

// GestureOptions tunes press classification.
type GestureOptions struct {
	LongPress     time.Duration
	MoveTolerance float64
	ClickSuppress time.Duration
	WheelStep     int
}

// DefaultGestures returns the stock gesture timings.
func DefaultGestures() GestureOptions {
	return GestureOptions{
		LongPress:     550 * time.Millisecond,
		MoveTolerance: 6,
		ClickSuppress: 350 * time.Millisecond,
		WheelStep:     3,
	}
}

// GestureHandler receives classified gestures. Handles are rail item handles.
type GestureHandler interface {
	Navigate(handle string)
	ToggleBookmark(handle string)
	Scrub(delta int)
}

// Gestures classifies pointer input on rail items as tap, long press or wheel scrub.
// Only one press is tracked at a time.
type Gestures struct {
	sched   scheduler.Scheduler
	opts    GestureOptions
	handler GestureHandler

	handle  string
	x, y    float64
	timer   scheduler.Cancel
	holding bool

	suppressHandle string
	suppressUntil  time.Time
}

// NewGestures creates a disambiguator reporting to h.
func NewGestures(s scheduler.Scheduler, opts GestureOptions, h GestureHandler) *Gestures {
	return &Gestures{sched: s, opts: opts, handler: h}
}

// Holding reports whether a press is waiting for its long-press timer.
func (g *Gestures) Holding() bool { return g.holding }

// HoldingHandle returns the pressed item while Holding.
func (g *Gestures) HoldingHandle() string {
	if !g.holding {
		return ""
	}
	return g.handle
}

// PointerDown starts a press on the item identified by handle.
// Non-primary buttons are ignored.
func (g *Gestures) PointerDown(handle string, x, y float64, primary bool) {
	if handle == "" || !primary {
		return
	}
	g.Cancel()
	g.handle = handle
	g.x, g.y = x, y
	g.holding = true
	g.timer = g.sched.After(g.opts.LongPress, g.longPress)
}

func (g *Gestures) longPress() {
	g.timer = nil
	if !g.holding {
		return
	}
	h := g.handle
	g.holding = false
	g.suppressHandle = h
	g.suppressUntil = g.sched.Now().Add(g.opts.ClickSuppress)
	g.handler.ToggleBookmark(h)
}

// PointerMove cancels the press once the pointer leaves the tolerance radius.
func (g *Gestures) PointerMove(x, y float64) {
	if !g.holding {
		return
	}
	dx, dy := x-g.x, y-g.y
	tol := g.opts.MoveTolerance
	if dx*dx+dy*dy > tol*tol {
		g.Cancel()
	}
}

// PointerUp ends the press. A release before the timer makes it a tap; the
// tap navigates on the following Click.
func (g *Gestures) PointerUp() {
	g.Cancel()
}

// Cancel drops the current press and its timer.
func (g *Gestures) Cancel() {
	if g.timer != nil {
		g.timer()
		g.timer = nil
	}
	g.holding = false
	g.handle = ""
}

// Click navigates to the item unless a long press on it just fired.
func (g *Gestures) Click(handle string) {
	if handle == "" {
		return
	}
	if handle == g.suppressHandle && g.sched.Now().Before(g.suppressUntil) {
		return
	}
	g.handler.Navigate(handle)
}

// Wheel moves the scrub position by one step per tick in the direction of ticks.
func (g *Gestures) Wheel(ticks int) {
	if ticks == 0 {
		return
	}
	step := g.opts.WheelStep
	if step <= 0 {
		step = 1
	}
	g.handler.Scrub(ticks * step)
}
