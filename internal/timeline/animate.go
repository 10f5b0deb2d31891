package timeline

import (
	"time"

	"github.com/Dicklesworthstone/chatrail/internal/scheduler"
)

// EaseInOutQuad maps progress t in [0,1] to eased progress in [0,1].
func EaseInOutQuad(t float64) float64 {
	t = clamp(t, 0, 1)
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}

// scroller animates a scroll position towards a target, one step per frame.
type scroller struct {
	sched    scheduler.Scheduler
	duration time.Duration
	pending  scheduler.Cancel
}

func (s *scroller) start(from, to float64, apply func(top float64)) {
	s.stop()
	if s.duration <= 0 || from == to {
		apply(to)
		return
	}
	begin := s.sched.Now()
	var step func()
	step = func() {
		s.pending = nil
		elapsed := s.sched.Now().Sub(begin)
		if elapsed >= s.duration {
			apply(to)
			return
		}
		p := EaseInOutQuad(float64(elapsed) / float64(s.duration))
		apply(from + (to-from)*p)
		s.pending = s.sched.Frame(step)
	}
	s.pending = s.sched.Frame(step)
}

func (s *scroller) stop() {
	if s.pending != nil {
		s.pending()
		s.pending = nil
	}
}
