package timeline

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Dicklesworthstone/chatrail/internal/route"
	"github.com/Dicklesworthstone/chatrail/internal/scheduler"
)

// DefaultEnsureRetry is how often the supervisor re-checks a conversation
// route that has no turns yet.
const DefaultEnsureRetry = 400 * time.Millisecond

// Flags are the feature switches that gate the rail.
type Flags struct {
	Enabled  bool
	Provider bool
}

// On reports whether both switches allow the rail.
func (f Flags) On() bool { return f.Enabled && f.Provider }

// OverlayFactory builds an overlay for a conversation.
type OverlayFactory func(conversationID string) *Overlay

// Supervisor keeps at most one overlay alive, matching the current location
// and feature flags.
type Supervisor struct {
	sched   scheduler.Scheduler
	host    Host
	factory OverlayFactory
	retry   time.Duration
	logger  zerolog.Logger

	location string
	flags    Flags
	current  *Overlay
	pending  scheduler.Cancel
	closed   bool
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithEnsureRetry overrides the retry interval.
func WithEnsureRetry(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if d > 0 {
			s.retry = d
		}
	}
}

// WithSupervisorLogger sets the logger.
func WithSupervisorLogger(l zerolog.Logger) SupervisorOption {
	return func(s *Supervisor) { s.logger = l }
}

// NewSupervisor creates a supervisor. Flags start enabled.
func NewSupervisor(sched scheduler.Scheduler, h Host, factory OverlayFactory, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		sched:   sched,
		host:    h,
		factory: factory,
		retry:   DefaultEnsureRetry,
		logger:  zerolog.Nop(),
		flags:   Flags{Enabled: true, Provider: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the live overlay, or nil.
func (s *Supervisor) Current() *Overlay { return s.current }

// Location returns the last location passed to Navigate.
func (s *Supervisor) Location() string { return s.location }

// Flags returns the current flags.
func (s *Supervisor) Flags() Flags { return s.flags }

// Navigate reports a location change. The old overlay is destroyed before a
// new one is considered.
func (s *Supervisor) Navigate(path string) {
	if s.closed || path == s.location {
		return
	}
	s.location = path
	s.teardown()
	s.ensure()
}

// SetFlags applies new feature flags.
func (s *Supervisor) SetFlags(f Flags) {
	if s.closed {
		return
	}
	s.flags = f
	if !f.On() {
		s.teardown()
		return
	}
	s.ensure()
}

// Refresh re-checks whether an overlay should exist, e.g. after the host
// loaded new content for the same location.
func (s *Supervisor) Refresh() {
	if s.closed {
		return
	}
	s.ensure()
}

func (s *Supervisor) ensure() {
	s.cancelRetry()
	if !s.flags.On() || !route.IsConversationRoute(s.location) || s.current != nil {
		return
	}
	cid, ok := route.ConversationID(s.location)
	if !ok {
		return
	}
	if len(s.host.Turns()) == 0 {
		s.pending = s.sched.After(s.retry, func() {
			s.pending = nil
			if !s.closed {
				s.ensure()
			}
		})
		return
	}
	s.current = s.factory(cid)
	s.current.Start()
	s.logger.Debug().Str("conversation", cid).Str("overlay", s.current.ID()).Msg("rail created")
}

func (s *Supervisor) cancelRetry() {
	if s.pending != nil {
		s.pending()
		s.pending = nil
	}
}

func (s *Supervisor) teardown() {
	s.cancelRetry()
	if s.current == nil {
		return
	}
	if err := s.current.Destroy(); err != nil {
		s.logger.Debug().Err(err).Msg("rail teardown reported errors")
	}
	s.current = nil
}

// Close destroys the overlay and stops reacting to further events.
func (s *Supervisor) Close() {
	s.teardown()
	s.closed = true
}
