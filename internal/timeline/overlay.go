package timeline

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Dicklesworthstone/chatrail/internal/bookmarks"
	"github.com/Dicklesworthstone/chatrail/internal/scheduler"
)

// Options collects the tunables of an Overlay.
type Options struct {
	Namespace        string
	Layout           LayoutOptions
	Gestures         GestureOptions
	Visibility       VisibilityOptions
	ReadingLine      float64
	Debounce         time.Duration
	DiscoveryTimeout time.Duration
	Retry            time.Duration
	ScrollDuration   time.Duration
}

// DefaultOptions returns the stock overlay configuration.
func DefaultOptions() Options {
	return Options{
		Namespace:        bookmarks.DefaultNamespace,
		Layout:           DefaultLayout(),
		Gestures:         DefaultGestures(),
		Visibility:       DefaultVisibility(),
		ReadingLine:      DefaultReadingLine,
		Debounce:         250 * time.Millisecond,
		DiscoveryTimeout: 10 * time.Second,
		Retry:            DefaultEnsureRetry,
		ScrollDuration:   500 * time.Millisecond,
	}
}

// RailView is everything a Renderer needs for one frame.
type RailView struct {
	ConversationID string
	Items          []RailItem
	Focus          FocusWindow
	ActiveID       string
	ActiveIndex    int
	Total          int
}

// Fisheye reports whether the view is compressed.
func (v RailView) Fisheye() bool { return v.Focus.Active() }

// OverlayOption configures an Overlay.
type OverlayOption func(*Overlay)

// WithOptions replaces the overlay tunables.
func WithOptions(opts Options) OverlayOption {
	return func(o *Overlay) { o.opts = opts }
}

// WithStore sets the bookmark store.
func WithStore(s bookmarks.Store) OverlayOption {
	return func(o *Overlay) { o.store = s }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) OverlayOption {
	return func(o *Overlay) { o.logger = l }
}

// Overlay is one live rail attached to one conversation. It owns all rail
// state; every callback it registers runs on the scheduler's loop.
type Overlay struct {
	id     string
	cid    string
	host   Host
	render Renderer
	sched  scheduler.Scheduler
	store  bookmarks.Store
	opts   Options
	logger zerolog.Logger

	anchors   Anchors
	attached  bool
	destroyed bool

	markers []Marker
	byID    map[string]int
	items   []RailItem
	focus   FocusWindow

	tracker   *Tracker
	gestures  *Gestures
	stars     *Bookmarks
	scroller  scroller
	discovery *scheduler.Poller
	retry     scheduler.Cancel
	debounced *scheduler.Debouncer
	immediate *scheduler.FrameCoalescer
	tracking  *scheduler.FrameCoalescer

	detachScroll     Detach
	detachMutations  Detach
	detachVisibility Detach
	detachResize     Detach
	detachTheme      Detach
	detachStorage    Detach
}

// NewOverlay creates an overlay for conversation cid. Call Start to attach it.
func NewOverlay(cid string, h Host, r Renderer, s scheduler.Scheduler, opts ...OverlayOption) *Overlay {
	o := &Overlay{
		id:     uuid.NewString(),
		cid:    cid,
		host:   h,
		render: r,
		sched:  s,
		opts:   DefaultOptions(),
		logger: zerolog.Nop(),
		focus:  NoFocus,
		byID:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With().Str("overlay", o.id).Str("conversation", cid).Logger()

	o.tracker = NewTracker(o.opts.ReadingLine)
	o.gestures = NewGestures(s, o.opts.Gestures, o)
	o.stars = NewBookmarks(o.store, o.opts.Namespace, cid, s, o.logger)
	o.scroller = scroller{sched: s, duration: o.opts.ScrollDuration}
	o.discovery = scheduler.NewPoller(s, 0, o.opts.DiscoveryTimeout)
	o.debounced = scheduler.NewDebouncer(s, o.opts.Debounce, o.recompute)
	o.immediate = scheduler.NewFrameCoalescer(s, o.recompute)
	o.tracking = scheduler.NewFrameCoalescer(s, o.track)
	return o
}

// ID is a random identifier for this instance.
func (o *Overlay) ID() string { return o.id }

// ConversationID returns the conversation this overlay belongs to.
func (o *Overlay) ConversationID() string { return o.cid }

// Attached reports whether anchors were found and listeners are bound.
func (o *Overlay) Attached() bool { return o.attached && !o.destroyed }

// Destroyed reports whether Destroy was called.
func (o *Overlay) Destroyed() bool { return o.destroyed }

// Gestures exposes the gesture disambiguator for pointer input.
func (o *Overlay) Gestures() *Gestures { return o.gestures }

// Bookmarks exposes the starred set.
func (o *Overlay) Bookmarks() *Bookmarks { return o.stars }

// Markers returns a copy of the current markers.
func (o *Overlay) Markers() []Marker { return append([]Marker(nil), o.markers...) }

// Focus returns the current focus window.
func (o *Overlay) Focus() FocusWindow { return o.focus }

// ActiveID returns the active marker id.
func (o *Overlay) ActiveID() string { return o.tracker.ActiveID() }

// View returns the current rail view.
func (o *Overlay) View() RailView {
	active := o.activeIndex()
	return RailView{
		ConversationID: o.cid,
		Items:          append([]RailItem(nil), o.items...),
		Focus:          o.focus,
		ActiveID:       o.tracker.ActiveID(),
		ActiveIndex:    active,
		Total:          len(o.markers),
	}
}

// Start waits (by polling each frame) for turns to appear, then attaches.
// After the discovery timeout it keeps checking every Options.Retry until
// turns show up or the overlay is destroyed.
func (o *Overlay) Start() {
	if o.destroyed || o.attached {
		return
	}
	o.discover()
}

func (o *Overlay) discover() {
	o.discovery.Start(o.tryAttach, func(ok bool) {
		if ok || o.destroyed {
			return
		}
		o.logger.Debug().Dur("timeout", o.opts.DiscoveryTimeout).Msg("no turns found, retrying")
		o.retryLater()
	})
}

func (o *Overlay) retryLater() {
	o.stopRetry()
	o.retry = o.sched.After(o.opts.Retry, func() {
		o.retry = nil
		if !o.tryAttach() {
			o.retryLater()
		}
	})
}

func (o *Overlay) stopRetry() {
	if o.retry != nil {
		o.retry()
		o.retry = nil
	}
}

func (o *Overlay) tryAttach() bool {
	if o.destroyed {
		return true
	}
	a, ok := ResolveAnchors(o.host)
	if !ok {
		return false
	}
	o.attach(a)
	return true
}

// attach binds listeners for a. Storage, resize and theme listeners outlive
// a lost root, so they are only bound the first time.
func (o *Overlay) attach(a Anchors) {
	o.attached = true
	o.stopRetry()
	if o.detachStorage == nil {
		o.stars.Load()
		if d, err := o.stars.Watch(o.onStorage); err != nil {
			o.logger.Warn().Err(err).Msg("bookmark change notifications unavailable")
		} else {
			o.detachStorage = d
		}
	}
	o.bindAnchors(a)
	if o.detachResize == nil {
		o.bind(&o.detachResize, "resize", func() (Detach, error) { return o.host.WatchResize(o.debounced.Trigger) })
	}
	if o.detachTheme == nil {
		o.bind(&o.detachTheme, "theme", func() (Detach, error) { return o.host.WatchTheme(o.debounced.Trigger) })
	}
	o.logger.Debug().Msg("rail attached")
	o.recompute()
}

// bindAnchors moves the scroll and mutation listeners to a. The old scroll
// listener is removed before the new one is added.
func (o *Overlay) bindAnchors(a Anchors) {
	o.release(&o.detachScroll, "scroll")
	o.release(&o.detachMutations, "mutations")
	o.anchors = a
	o.bind(&o.detachScroll, "scroll", func() (Detach, error) { return o.host.WatchScroll(a.Scroll, o.onScroll) })
	o.bind(&o.detachMutations, "mutations", func() (Detach, error) { return o.host.WatchMutations(a.Root, o.onMutation) })
}

func (o *Overlay) bind(slot *Detach, what string, fn func() (Detach, error)) {
	d, err := fn()
	if err != nil {
		o.logger.Warn().Err(err).Str("listener", what).Msg("bind listener")
		return
	}
	*slot = d
}

func (o *Overlay) release(slot *Detach, what string) error {
	d := *slot
	*slot = nil
	if d == nil {
		return nil
	}
	if err := d(); err != nil {
		o.logger.Debug().Err(err).Str("listener", what).Msg("detach listener")
		return err
	}
	return nil
}

func (o *Overlay) onScroll() {
	if o.destroyed {
		return
	}
	o.tracking.Trigger()
}

func (o *Overlay) onVisibility(entries []VisibilityEntry) {
	if o.destroyed {
		return
	}
	o.tracker.Observe(entries)
	o.tracking.Trigger()
}

func (o *Overlay) onMutation(m Mutation) {
	if o.destroyed {
		return
	}
	if o.anchors.Root != nil && !o.anchors.Root.Attached() {
		o.reresolve()
		return
	}
	for _, el := range m.Added {
		if o.host.IsTurn(el) {
			o.immediate.Trigger()
			return
		}
	}
	o.debounced.Trigger()
}

func (o *Overlay) onStorage() {
	if o.destroyed {
		return
	}
	RefreshStarred(o.markers, o.items, o.stars.Has)
	o.paint()
}

// reresolve re-runs anchor resolution after the observed root left the document.
func (o *Overlay) reresolve() {
	a, ok := ResolveAnchors(o.host)
	if !ok {
		o.release(&o.detachScroll, "scroll")
		o.release(&o.detachMutations, "mutations")
		o.release(&o.detachVisibility, "visibility")
		o.anchors = Anchors{}
		o.attached = false
		o.clearState()
		o.paint()
		o.logger.Debug().Msg("observation root lost, searching for turns")
		o.discover()
		return
	}
	o.logger.Debug().Msg("observation root replaced, rebinding")
	o.bindAnchors(a)
	o.recompute()
}

func (o *Overlay) clearState() {
	o.markers = nil
	o.items = nil
	o.focus = NoFocus
	clear(o.byID)
	o.tracker.Reset()
}

// Recompute rebuilds the marker index and layout right away.
func (o *Overlay) Recompute() { o.recompute() }

func (o *Overlay) recompute() {
	if o.destroyed || !o.attached {
		return
	}
	o.debounced.Stop()
	o.immediate.Stop()
	if o.anchors.Root != nil && !o.anchors.Root.Attached() {
		o.reresolve()
		return
	}

	turns := o.host.Turns()
	offsets := o.host.Offsets(o.anchors.Scroll, turns)
	o.markers = BuildIndex(turns, offsets, o.stars.Has)
	clear(o.byID)
	for i := range o.markers {
		o.byID[o.markers[i].ID] = i
	}
	o.tracker.Retain(o.markers)
	o.release(&o.detachVisibility, "visibility")
	if len(turns) > 0 {
		o.bind(&o.detachVisibility, "visibility", func() (Detach, error) {
			return o.host.WatchVisibility(o.anchors.Scroll, turns, o.opts.Visibility, o.onVisibility)
		})
	}

	if len(o.markers) == 0 {
		o.clearState()
		o.paint()
		return
	}
	o.tracker.Update(o.markers, o.host.ScrollTop(o.anchors.Scroll), o.host.ViewportHeight(o.anchors.Scroll), o.focus)
	o.relayout()
}

func (o *Overlay) relayout() {
	focus := FocusState{Scrub: o.tracker.Scrub(), Active: o.activeIndex()}
	o.items, o.focus = Layout(o.markers, o.render.BarHeight(), focus, o.opts.Layout)
	MarkActive(o.items, focus.Active)
	o.paint()
}

func (o *Overlay) track() {
	if o.destroyed || !o.attached || len(o.markers) == 0 {
		return
	}
	if o.anchors.Root != nil && !o.anchors.Root.Attached() {
		o.reresolve()
		return
	}
	changed, relayout := o.tracker.Update(o.markers, o.host.ScrollTop(o.anchors.Scroll), o.host.ViewportHeight(o.anchors.Scroll), o.focus)
	if !changed {
		return
	}
	if relayout {
		o.relayout()
		return
	}
	MarkActive(o.items, o.activeIndex())
	o.paint()
}

func (o *Overlay) activeIndex() int {
	if i, ok := o.byID[o.tracker.ActiveID()]; ok {
		return i
	}
	return -1
}

func (o *Overlay) paint() {
	o.render.Render(o.View())
}

// Resolve maps a rail handle to a marker index. An aggregate resolves to its
// member closest to the reading line. It returns -1 for unknown handles.
func (o *Overlay) Resolve(handle string) int {
	if i, ok := o.byID[handle]; ok {
		return i
	}
	for _, it := range o.items {
		if it.Handle != handle || len(it.Members) == 0 {
			continue
		}
		reading := o.host.ScrollTop(o.anchors.Scroll) + o.tracker.readingLine*o.host.ViewportHeight(o.anchors.Scroll)
		best, bestDist := it.Members[0], math.Inf(1)
		for _, m := range it.Members {
			if d := math.Abs(o.markers[m].Offset - reading); d < bestDist {
				best, bestDist = m, d
			}
		}
		return best
	}
	return -1
}

// Navigate smooth-scrolls to the marker behind handle.
func (o *Overlay) Navigate(handle string) {
	if o.destroyed {
		return
	}
	i := o.Resolve(handle)
	if i < 0 {
		return
	}
	o.scrollToMarker(i)
}

func (o *Overlay) scrollToMarker(i int) {
	m := o.markers[i]
	target := m.Offset
	if m.Anchor != nil && m.Anchor.Attached() {
		if offs := o.host.Offsets(o.anchors.Scroll, []Element{m.Anchor}); len(offs) == 1 {
			target = offs[0]
		}
	}
	scroll := o.anchors.Scroll
	o.scroller.start(o.host.ScrollTop(scroll), target, func(top float64) {
		if !o.destroyed {
			o.host.ScrollTo(scroll, top)
		}
	})
}

// Step navigates delta turns away from the active one.
func (o *Overlay) Step(delta int) {
	if o.destroyed || len(o.markers) == 0 {
		return
	}
	cur := o.activeIndex()
	if cur < 0 {
		cur = 0
	}
	o.scrollToMarker(clampInt(cur+delta, 0, len(o.markers)-1))
}

// ToggleBookmark flips the starred state of the marker behind handle.
// Geometry is left alone.
func (o *Overlay) ToggleBookmark(handle string) {
	if o.destroyed {
		return
	}
	i := o.Resolve(handle)
	if i < 0 {
		return
	}
	o.stars.Toggle(o.markers[i].ID)
	RefreshStarred(o.markers, o.items, o.stars.Has)
	o.paint()
}

// Scrub pans the focus window by delta markers without changing the active turn.
// It does nothing outside fisheye mode.
func (o *Overlay) Scrub(delta int) {
	if o.destroyed || !o.focus.Active() || len(o.markers) == 0 {
		return
	}
	base := o.tracker.Scrub()
	if base < 0 {
		base = max(0, o.activeIndex())
	}
	o.tracker.SetScrub(clampInt(base+delta, 0, len(o.markers)-1))
	o.relayout()
}

// Destroy detaches every listener and cancels every pending task. Each
// resource is released independently; the joined errors are returned after
// everything was attempted. Calling Destroy again is a no-op.
func (o *Overlay) Destroy() error {
	if o.destroyed {
		return nil
	}
	o.destroyed = true

	o.discovery.Stop()
	o.stopRetry()
	o.debounced.Stop()
	o.immediate.Stop()
	o.tracking.Stop()
	o.scroller.stop()
	o.gestures.Cancel()

	errs := []error{
		o.release(&o.detachScroll, "scroll"),
		o.release(&o.detachMutations, "mutations"),
		o.release(&o.detachVisibility, "visibility"),
		o.release(&o.detachResize, "resize"),
		o.release(&o.detachTheme, "theme"),
		o.release(&o.detachStorage, "storage"),
	}
	o.clearState()
	o.render.Clear()
	o.logger.Debug().Msg("rail destroyed")
	return errors.Join(errs...)
}
