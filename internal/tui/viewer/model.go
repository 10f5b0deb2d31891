// Package viewer is the interactive transcript viewer: a scrolling
// conversation with the turn rail on its right edge.
package viewer

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/rs/zerolog"

	"github.com/Dicklesworthstone/chatrail/internal/bookmarks"
	"github.com/Dicklesworthstone/chatrail/internal/config"
	"github.com/Dicklesworthstone/chatrail/internal/host"
	"github.com/Dicklesworthstone/chatrail/internal/scheduler"
	"github.com/Dicklesworthstone/chatrail/internal/timeline"
	"github.com/Dicklesworthstone/chatrail/internal/transcript"
	"github.com/Dicklesworthstone/chatrail/internal/tui/layout"
	"github.com/Dicklesworthstone/chatrail/internal/tui/panels"
	"github.com/Dicklesworthstone/chatrail/internal/tui/theme"
)

// ErrNoConversations is returned when there is nothing to show.
var ErrNoConversations = errors.New("no conversations to show")

// taskMsg carries one scheduler callback onto the bubbletea goroutine.
type taskMsg struct{ fn func() }

// Options configures a Model.
type Options struct {
	Config *config.Config
	// Entries is the ring of conversations; Start indexes the first one shown.
	Entries []transcript.Entry
	Start   int
	Store   bookmarks.Store
	// Flags decide whether the rail is shown; use config.DefaultFlags for on.
	Flags config.Flags
	// FlagsPath is where R persists the global switch. Empty disables saving.
	FlagsPath string
	Dark      bool
	Logger    zerolog.Logger

	// Scheduler defaults to a scheduler.Loop drained by the program.
	Scheduler scheduler.Scheduler
	// Watch follows the open file for appended messages until Context ends.
	Watch   bool
	Context context.Context
	// Width and Height are the size assumed until the first resize.
	Width, Height int
}

// Model is the viewer's bubbletea model.
type Model struct {
	cfg    *config.Config
	keys   KeyMap
	help   help.Model
	logger zerolog.Logger

	sched scheduler.Scheduler
	tasks <-chan func()
	ctx   context.Context

	doc   *host.Document
	sup   *timeline.Supervisor
	rail  *panels.RailPanel
	body  *panels.TranscriptPanel
	zones *zone.Manager

	theme  theme.Theme
	styles theme.Styles

	store     bookmarks.Store
	flags     config.Flags
	flagsPath string

	entries  []transcript.Entry
	current  int
	follower *transcript.Follower
	provider transcript.Format
	gen      int
	watch    bool

	width, height int
	regions       layout.Regions
	showHelp      bool
	pressed       string
	err           error
}

// New builds the model and opens the starting conversation.
func New(opts Options) (*Model, error) {
	if len(opts.Entries) == 0 {
		return nil, ErrNoConversations
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Width <= 0 {
		opts.Width = 80
	}
	if opts.Height <= 0 {
		opts.Height = 24
	}

	m := &Model{
		cfg:       cfg,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		logger:    opts.Logger,
		sched:     opts.Scheduler,
		zones:     zone.New(),
		store:     opts.Store,
		flags:     opts.Flags,
		flagsPath: opts.FlagsPath,
		entries:   opts.Entries,
		current:   max(0, min(opts.Start, len(opts.Entries)-1)),
		watch:     opts.Watch,
		ctx:       opts.Context,
	}
	if m.ctx == nil {
		m.ctx = context.Background()
	}
	if m.sched == nil {
		loop := scheduler.NewLoop(scheduler.WithFrameInterval(cfg.FrameInterval()))
		m.sched = loop
		m.tasks = loop.Tasks()
	}

	m.theme = theme.For(opts.Dark)
	m.styles = m.theme.Styles()
	m.help.Styles.ShortKey = m.styles.Active
	m.help.Styles.ShortDesc = m.styles.Status
	m.rail = panels.NewRailPanel(m.styles, m.zones)
	m.body = panels.NewTranscriptPanel(m.styles)

	m.regions = layout.Split(opts.Width, opts.Height, cfg.Rail.Width)
	m.width, m.height = opts.Width, opts.Height
	m.doc = host.New(
		host.WithSize(m.regions.TranscriptWidth, m.regions.BodyHeight),
		host.WithMargin(2),
		host.WithDark(opts.Dark),
		host.WithPost(m.sched.Post),
		host.WithLogger(m.logger),
	)
	m.layoutPanels()

	m.sup = timeline.NewSupervisor(m.sched, m.doc, m.newOverlay,
		timeline.WithEnsureRetry(cfg.EnsureRetry()),
		timeline.WithSupervisorLogger(m.logger),
	)
	m.open(m.current)
	return m, nil
}

func (m *Model) newOverlay(cid string) *timeline.Overlay {
	return timeline.NewOverlay(cid, m.doc, m.rail, m.sched,
		timeline.WithOptions(m.cfg.Overlay()),
		timeline.WithStore(m.store),
		timeline.WithLogger(m.logger),
	)
}

// Document exposes the host document.
func (m *Model) Document() *host.Document { return m.doc }

// Rail exposes the rail panel.
func (m *Model) Rail() *panels.RailPanel { return m.rail }

// Overlay returns the live overlay, or nil.
func (m *Model) Overlay() *timeline.Overlay { return m.sup.Current() }

// Entry returns the conversation being shown.
func (m *Model) Entry() transcript.Entry { return m.entries[m.current] }

// Flags returns the current feature flags.
func (m *Model) Flags() config.Flags { return m.flags }

// Err returns the last error shown in the status bar.
func (m *Model) Err() error { return m.err }

// open loads conversation i and points the supervisor at its route.
func (m *Model) open(i int) {
	m.stopFollower()
	m.gen++
	m.current = i
	e := m.entries[i]

	gen := m.gen
	f := transcript.NewFollower(e.Path, m.cfg.TranscriptFormat(), func(u transcript.Update) {
		m.sched.Post(func() { m.apply(gen, u) })
	}, transcript.WithFollowLogger(m.logger), transcript.WithWatchOptions(m.cfg.WatcherValues().Options()...))
	msgs, err := f.Load()
	if err != nil {
		m.err = fmt.Errorf("loading %s: %w", e.Token, err)
		m.logger.Warn().Err(err).Str("path", e.Path).Msg("load conversation")
	} else {
		m.err = nil
	}
	m.follower = f
	m.provider = f.Format()
	m.doc.Reset(msgs)
	m.doc.ScrollToRow(0)

	m.sup.SetFlags(m.flags.For(string(m.provider)))
	m.sup.Navigate(e.Route())

	if m.watch {
		if err := f.Start(m.ctx); err != nil {
			m.logger.Warn().Err(err).Str("path", e.Path).Msg("follow conversation")
		}
	}
	m.logger.Debug().Str("conversation", e.Token).Int("messages", len(msgs)).Msg("opened")
}

func (m *Model) stopFollower() {
	if m.follower == nil {
		return
	}
	if err := m.follower.Stop(); err != nil {
		m.logger.Debug().Err(err).Msg("stop follower")
	}
	m.follower = nil
}

// apply runs on the UI goroutine for follower updates of generation gen.
func (m *Model) apply(gen int, u transcript.Update) {
	if gen != m.gen {
		return
	}
	m.doc.Apply(u)
	if p := m.follower.Format(); p != m.provider {
		m.provider = p
		m.sup.SetFlags(m.flags.For(string(p)))
	}
	m.sup.Refresh()
}

// ApplyFlags switches the rail on or off from new flags.
func (m *Model) ApplyFlags(f config.Flags) {
	m.flags = f
	m.sup.SetFlags(f.For(string(m.provider)))
	if !m.sup.Flags().On() {
		m.rail.Blur()
	}
}

func (m *Model) toggleRail() {
	f := m.flags
	f.Enabled = !f.Enabled
	if m.flagsPath != "" {
		if err := config.SaveFlags(m.flagsPath, f); err != nil {
			m.err = fmt.Errorf("saving flags: %w", err)
		}
	}
	m.ApplyFlags(f)
}

func (m *Model) layoutPanels() {
	m.body.SetSize(m.regions.TranscriptWidth, m.regions.BodyHeight)
	m.rail.SetSize(m.regions.RailWidth, m.regions.BodyHeight)
	m.help.Width = m.width
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.regions = layout.Split(width, height, m.cfg.Rail.Width)
	m.layoutPanels()
	m.doc.Resize(m.regions.TranscriptWidth, m.regions.BodyHeight)
}

func (m *Model) toggleTheme() {
	dark := !m.theme.Dark
	m.theme = theme.For(dark)
	m.styles = m.theme.Styles()
	m.rail.SetStyles(m.styles)
	m.body.SetStyles(m.styles)
	m.doc.SetDark(dark)
}

func (m *Model) waitForTask() tea.Cmd {
	if m.tasks == nil {
		return nil
	}
	tasks := m.tasks
	return func() tea.Msg {
		return taskMsg{fn: <-tasks}
	}
}

// drain runs queued scheduler callbacks that are already waiting.
func (m *Model) drain() {
	if m.tasks == nil {
		return
	}
	for i := 0; i < 64; i++ {
		select {
		case fn := <-m.tasks:
			fn()
		default:
			return
		}
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForTask()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case taskMsg:
		if msg.fn != nil {
			msg.fn()
		}
		m.drain()
		cmd = m.waitForTask()

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.KeyMsg:
		cmd = m.handleKey(msg)
	}
	m.body.Sync(m.doc)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	ov := m.sup.Current()
	railFocused := m.rail.IsFocused() && ov != nil

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp

	case key.Matches(msg, m.keys.RailFocus):
		if m.rail.IsFocused() {
			m.rail.Blur()
		} else if ov != nil {
			m.rail.Focus()
		}

	case railFocused && key.Matches(msg, m.keys.Up):
		m.rail.MoveCursor(-1)
	case railFocused && key.Matches(msg, m.keys.Down):
		m.rail.MoveCursor(1)
	case railFocused && key.Matches(msg, m.keys.Jump):
		if it, ok := m.rail.Cursor(); ok {
			ov.Navigate(it.Handle)
		}

	case key.Matches(msg, m.keys.Up):
		m.doc.ScrollBy(-1)
	case key.Matches(msg, m.keys.Down):
		m.doc.ScrollBy(1)
	case key.Matches(msg, m.keys.PageUp):
		m.doc.ScrollBy(-max(1, m.regions.BodyHeight-1))
	case key.Matches(msg, m.keys.PageDown):
		m.doc.ScrollBy(max(1, m.regions.BodyHeight-1))
	case key.Matches(msg, m.keys.Top):
		m.doc.ScrollToRow(0)
	case key.Matches(msg, m.keys.Bottom):
		m.doc.ScrollToRow(len(m.doc.Lines()))

	case key.Matches(msg, m.keys.NextTurn):
		if ov != nil {
			ov.Step(1)
		}
	case key.Matches(msg, m.keys.PrevTurn):
		if ov != nil {
			ov.Step(-1)
		}
	case key.Matches(msg, m.keys.Star):
		if ov == nil {
			break
		}
		if it, ok := m.rail.Cursor(); ok {
			ov.ToggleBookmark(it.Handle)
		} else if id := ov.ActiveID(); id != "" {
			ov.ToggleBookmark(id)
		}
	case key.Matches(msg, m.keys.ScrubBack):
		if ov != nil {
			ov.Scrub(-1)
		}
	case key.Matches(msg, m.keys.ScrubAhead):
		if ov != nil {
			ov.Scrub(1)
		}

	case key.Matches(msg, m.keys.Theme):
		m.toggleTheme()
	case key.Matches(msg, m.keys.ToggleRail):
		m.toggleRail()
	case key.Matches(msg, m.keys.NextConv):
		m.rail.Blur()
		m.open((m.current + 1) % len(m.entries))
	case key.Matches(msg, m.keys.PrevConv):
		m.rail.Blur()
		m.open((m.current + len(m.entries) - 1) % len(m.entries))
	}
	return nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	ov := m.sup.Current()
	overRail := m.rail.InBounds(msg)
	x, y := float64(msg.X)*host.CellWidth, float64(msg.Y)*host.RowHeight

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.wheel(ov, overRail, -1)
		case tea.MouseButtonWheelDown:
			m.wheel(ov, overRail, 1)
		default:
			if ov == nil {
				return
			}
			h := m.rail.HandleAt(msg)
			ov.Gestures().PointerDown(h, x, y, msg.Button == tea.MouseButtonLeft)
			if held := ov.Gestures().HoldingHandle(); held != "" {
				m.pressed = held
				m.rail.SetHover(held)
			}
		}

	case tea.MouseActionMotion:
		m.rail.SetHover(m.rail.HandleAt(msg))
		if ov != nil && ov.Gestures().Holding() {
			ov.Gestures().PointerMove(x, y)
		}

	case tea.MouseActionRelease:
		pressed := m.pressed
		m.pressed = ""
		if ov == nil || pressed == "" {
			return
		}
		ov.Gestures().PointerUp()
		if m.rail.HandleAt(msg) == pressed {
			ov.Gestures().Click(pressed)
		}
	}
}

func (m *Model) wheel(ov *timeline.Overlay, overRail bool, dir int) {
	if overRail && ov != nil {
		ov.Gestures().Wheel(dir)
		return
	}
	m.doc.ScrollBy(3 * dir)
}

func (m *Model) shutdown() {
	m.stopFollower()
	m.sup.Close()
	if l, ok := m.sched.(*scheduler.Loop); ok {
		l.Close()
	}
}
