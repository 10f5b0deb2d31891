package timeline

// DefaultReadingLine is the fraction of the viewport height used as the
// reading point by the scroll fallback.
const DefaultReadingLine = 0.35

// Tracker decides which marker is being read. It prefers visibility reports
// and falls back to the scroll position when nothing usable is visible.
type Tracker struct {
	readingLine float64
	active      string
	scrub       int
	visible     map[Element]bool
}

// NewTracker creates a tracker. readingLine outside (0,1] uses DefaultReadingLine.
func NewTracker(readingLine float64) *Tracker {
	if readingLine <= 0 || readingLine > 1 {
		readingLine = DefaultReadingLine
	}
	return &Tracker{readingLine: readingLine, scrub: -1, visible: make(map[Element]bool)}
}

// ActiveID returns the current active marker id, or "".
func (t *Tracker) ActiveID() string { return t.active }

// Scrub returns the transient scrub index, or -1.
func (t *Tracker) Scrub() int { return t.scrub }

// SetScrub overrides the focus center until the active marker changes.
func (t *Tracker) SetScrub(i int) { t.scrub = i }

// Observe applies visibility transitions.
func (t *Tracker) Observe(entries []VisibilityEntry) {
	for _, e := range entries {
		if e.Visible {
			t.visible[e.Target] = true
		} else {
			delete(t.visible, e.Target)
		}
	}
}

// Retain drops visibility state for elements no longer anchoring a marker.
func (t *Tracker) Retain(markers []Marker) {
	keep := make(map[Element]bool, len(markers))
	for i := range markers {
		keep[markers[i].Anchor] = true
	}
	for el := range t.visible {
		if !keep[el] {
			delete(t.visible, el)
		}
	}
}

// Reset forgets everything.
func (t *Tracker) Reset() {
	t.active = ""
	t.scrub = -1
	clear(t.visible)
}

// Pick returns the id of the marker being read without changing state.
func (t *Tracker) Pick(markers []Marker, scrollTop, viewportHeight float64) string {
	if len(markers) == 0 {
		return ""
	}
	// markers are in offset order so the first visible one has the smallest offset
	for i := range markers {
		if t.visible[markers[i].Anchor] {
			return markers[i].ID
		}
	}
	reading := scrollTop + t.readingLine*viewportHeight
	idx := 0
	for i := range markers {
		if markers[i].Offset <= reading {
			idx = i
		} else {
			break
		}
	}
	return markers[idx].ID
}

// Update recomputes the active marker. changed reports a new active id; relayout
// reports that the new active index left the focus window.
func (t *Tracker) Update(markers []Marker, scrollTop, viewportHeight float64, win FocusWindow) (changed, relayout bool) {
	id := t.Pick(markers, scrollTop, viewportHeight)
	if id == t.active {
		return false, false
	}
	t.scrub = -1
	t.active = id
	if !win.Active() || id == "" {
		return true, false
	}
	return true, !win.Contains(IndexOf(markers, id))
}
