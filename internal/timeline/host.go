// Package timeline implements the conversation rail: it indexes user turns in
// a host document, lays them out on a fixed-height rail (compressing into a
// focus window when they do not fit), tracks the turn being read and turns
// pointer gestures into navigation, bookmarking or focus scrubbing.
//
// The package never owns the document. Everything it knows about the host
// comes through the Host interface, and everything it draws goes through a
// Renderer. All methods of Overlay and Supervisor must be called from the
// goroutine that drains the configured scheduler.
package timeline

// Element is an opaque node of the host document. Implementations must be
// comparable (pointer types) so elements can be used as map keys.
type Element interface {
	// Parent returns nil (an untyped nil interface) at the top of the tree.
	Parent() Element
	Attached() bool
	// Scrollable reports whether the element scrolls vertically.
	Scrollable() bool
	// Bounds returns the element's width and height in logical pixels.
	Bounds() (w, h float64)
	Text() string
}

// Detach removes a registration made with one of the Host watch methods.
type Detach func() error

// Mutation describes a structural change below an observed root.
type Mutation struct {
	Added   []Element
	Removed []Element
}

// VisibilityOptions shapes the band in which a turn counts as visible.
// Margins are fractions of the viewport height trimmed from the top and bottom.
type VisibilityOptions struct {
	Threshold    float64
	TopMargin    float64
	BottomMargin float64
}

// DefaultVisibility keeps a thin band just below the upper third of the viewport.
func DefaultVisibility() VisibilityOptions {
	return VisibilityOptions{Threshold: 0.10, TopMargin: 0.40, BottomMargin: 0.59}
}

// VisibilityEntry reports a visibility transition for one target.
type VisibilityEntry struct {
	Target  Element
	Visible bool
}

// Host is the document the rail is attached to.
type Host interface {
	// Turns returns the elements that currently represent user turns, in document order.
	Turns() []Element
	IsTurn(el Element) bool
	ScrollingRoot() Element
	Body() Element

	// Offsets reads the scroll-space top of every element in one batch.
	Offsets(scroll Element, els []Element) []float64
	ScrollTop(scroll Element) float64
	ViewportHeight(scroll Element) float64
	ScrollTo(scroll Element, top float64)

	WatchScroll(scroll Element, fn func()) (Detach, error)
	WatchMutations(root Element, fn func(Mutation)) (Detach, error)
	WatchVisibility(scroll Element, targets []Element, opts VisibilityOptions, fn func([]VisibilityEntry)) (Detach, error)
	WatchResize(fn func()) (Detach, error)
	WatchTheme(fn func()) (Detach, error)
}

// Renderer paints rail views. It only receives geometry and flags.
type Renderer interface {
	BarHeight() float64
	Render(view RailView)
	Clear()
}

// Intersects reports whether an element spanning [top, top+height) counts as
// visible inside the viewport [viewTop, viewTop+viewHeight) shrunk by the
// option margins.
func Intersects(top, height, viewTop, viewHeight float64, opts VisibilityOptions) bool {
	bandTop := viewTop + viewHeight*opts.TopMargin
	bandBottom := viewTop + viewHeight*(1-opts.BottomMargin)
	if bandBottom < bandTop {
		return false
	}
	lo := max(top, bandTop)
	hi := min(top+height, bandBottom)
	if hi < lo {
		return false
	}
	if height <= 0 {
		return top >= bandTop && top <= bandBottom
	}
	overlap := hi - lo
	if lo == bandTop && hi == bandBottom {
		return true
	}
	return overlap >= opts.Threshold*height
}

func containsElement(els []Element, el Element) bool {
	for _, e := range els {
		if e == el {
			return true
		}
	}
	return false
}
