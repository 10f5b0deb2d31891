package timeline

import (
	"math"
	"strconv"
)

// ItemKind distinguishes individual markers from collapsed groups.
type ItemKind int

const (
	Individual ItemKind = iota
	Aggregate
)

func (k ItemKind) String() string {
	if k == Aggregate {
		return "aggregate"
	}
	return "individual"
}

// AnchorEnd says which end of the rail an aggregate is pinned to.
type AnchorEnd int

const (
	AnchorNone AnchorEnd = iota
	AnchorTop
	AnchorBottom
)

func (a AnchorEnd) String() string {
	switch a {
	case AnchorTop:
		return "top"
	case AnchorBottom:
		return "bottom"
	default:
		return ""
	}
}

// Handles used for the two aggregate items. Individual items use the marker id.
const (
	HandleBefore = "agg-before"
	HandleAfter  = "agg-after"
)

// RailItem is one drawable element of the rail.
type RailItem struct {
	Kind ItemKind
	// Handle identifies the item for hit testing; it resolves back to markers.
	Handle string
	// Members are marker indices in order; an individual item has exactly one.
	Members []int
	IDs     []string
	Desired float64
	Offset  float64
	End     AnchorEnd
	Starred bool
	Active  bool
	Summary string
}

// Contains reports whether marker index i is covered by the item.
func (it RailItem) Contains(i int) bool {
	if len(it.Members) == 0 {
		return false
	}
	return i >= it.Members[0] && i <= it.Members[len(it.Members)-1]
}

// Label is the tooltip text for the item.
func (it RailItem) Label() string {
	s := it.Summary
	if it.Starred {
		s = "★ " + s
	}
	if it.Kind == Aggregate && len(it.Members) > 1 {
		s += " (+" + strconv.Itoa(len(it.Members)-1) + " more)"
	}
	return s
}

// FocusWindow is the inclusive index range expanded in fisheye mode.
type FocusWindow struct {
	Start, End int
}

// NoFocus is the window reported in simple mode.
var NoFocus = FocusWindow{Start: -1, End: -1}

// Active reports whether the window is set.
func (w FocusWindow) Active() bool { return w.Start >= 0 && w.End >= w.Start }

// Contains reports whether i lies inside the window.
func (w FocusWindow) Contains(i int) bool { return w.Active() && i >= w.Start && i <= w.End }

// FocusState carries the indices that can center the focus window. -1 means unset.
type FocusState struct {
	Scrub  int
	Active int
}

// LayoutOptions holds rail geometry in logical pixels.
type LayoutOptions struct {
	Pad    float64
	MinGap float64
	// Epsilon floors the normalized span of a focus window before remapping.
	Epsilon float64
}

// DefaultLayout returns the stock rail geometry.
func DefaultLayout() LayoutOptions {
	return LayoutOptions{Pad: 14, MinGap: 14, Epsilon: 1e-6}
}

// Usable is the vertical room between the two pads, never below 1.
func (o LayoutOptions) Usable(barHeight float64) float64 {
	return math.Max(1, barHeight-2*o.Pad)
}

// Capacity is the number of markers that fit on a rail of barHeight at MinGap spacing.
func (o LayoutOptions) Capacity(barHeight float64) int {
	if o.MinGap <= 0 {
		return math.MaxInt32
	}
	return int(math.Floor(o.Usable(barHeight)/o.MinGap)) + 1
}

// Layout computes rail items for markers on a bar of barHeight. In fisheye
// mode it also sets each marker's RailHandle to the item covering it.
func Layout(markers []Marker, barHeight float64, focus FocusState, opts LayoutOptions) ([]RailItem, FocusWindow) {
	if len(markers) == 0 {
		return nil, NoFocus
	}
	usable := opts.Usable(barHeight)
	maxFit := opts.Capacity(barHeight)

	if len(markers) <= maxFit {
		items := make([]RailItem, len(markers))
		desired := make([]float64, len(markers))
		for i := range markers {
			desired[i] = opts.Pad + markers[i].N*usable
			items[i] = individual(markers, i, desired[i])
		}
		place(items, desired, opts, usable)
		return items, NoFocus
	}

	win := focusWindow(len(markers), maxFit, focus)
	items := make([]RailItem, 0, win.End-win.Start+3)
	if win.Start > 0 {
		items = append(items, aggregate(markers, 0, win.Start-1, HandleBefore, AnchorTop, opts.Pad))
	}
	eps := opts.Epsilon
	if eps <= 0 {
		eps = 1e-6
	}
	base := markers[win.Start].N
	span := math.Max(eps, markers[win.End].N-base)
	for i := win.Start; i <= win.End; i++ {
		remapped := clamp((markers[i].N-base)/span, 0, 1)
		items = append(items, individual(markers, i, opts.Pad+remapped*usable))
	}
	if win.End < len(markers)-1 {
		items = append(items, aggregate(markers, win.End+1, len(markers)-1, HandleAfter, AnchorBottom, opts.Pad+usable))
	}

	desired := make([]float64, len(items))
	for i := range items {
		desired[i] = items[i].Desired
	}
	place(items, desired, opts, usable)
	return items, win
}

// focusWindow sizes the window to the full focus budget around the center index,
// growing backwards first when the centered half-widths fall short.
func focusWindow(count, maxFit int, focus FocusState) FocusWindow {
	last := count - 1
	center := 0
	switch {
	case focus.Scrub >= 0 && focus.Scrub <= last:
		center = focus.Scrub
	case focus.Active >= 0 && focus.Active <= last:
		center = focus.Active
	}

	slots := max(1, maxFit-2)
	half := (slots - 1) / 2
	start := max(0, center-half)
	end := min(last, center+half)

	need := slots - (end - start + 1)
	if need > 0 {
		grow := min(need, start)
		start -= grow
		need -= grow
	}
	if need > 0 {
		end = min(last, end+need)
	}
	return FocusWindow{Start: start, End: end}
}

func individual(markers []Marker, i int, desired float64) RailItem {
	m := &markers[i]
	m.RailHandle = m.ID
	return RailItem{
		Kind:    Individual,
		Handle:  m.ID,
		Members: []int{i},
		IDs:     []string{m.ID},
		Desired: desired,
		Starred: m.Starred,
		Summary: m.Summary,
	}
}

func aggregate(markers []Marker, from, to int, handle string, end AnchorEnd, desired float64) RailItem {
	it := RailItem{
		Kind:    Aggregate,
		Handle:  handle,
		Members: make([]int, 0, to-from+1),
		IDs:     make([]string, 0, to-from+1),
		Desired: desired,
		End:     end,
		Summary: markers[from].Summary,
	}
	for i := from; i <= to; i++ {
		markers[i].RailHandle = handle
		it.Members = append(it.Members, i)
		it.IDs = append(it.IDs, markers[i].ID)
		if markers[i].Starred {
			it.Starred = true
		}
	}
	return it
}

func place(items []RailItem, desired []float64, opts LayoutOptions, usable float64) {
	offsets := ApplyMinGap(desired, opts.Pad, opts.Pad+usable, opts.MinGap)
	for i := range items {
		items[i].Offset = offsets[i]
	}
}

// RefreshStarred recomputes the starred flags of markers and items without
// touching geometry.
func RefreshStarred(markers []Marker, items []RailItem, starred func(id string) bool) {
	for i := range markers {
		markers[i].Starred = starred(markers[i].ID)
	}
	for i := range items {
		items[i].Starred = false
		for _, m := range items[i].Members {
			if m < len(markers) && markers[m].Starred {
				items[i].Starred = true
				break
			}
		}
	}
}

// MarkActive flags the item covering marker index active.
func MarkActive(items []RailItem, active int) {
	for i := range items {
		items[i].Active = active >= 0 && items[i].Contains(active)
	}
}
