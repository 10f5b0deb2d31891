package host

import (
	"github.com/Dicklesworthstone/chatrail/internal/timeline"
)

// registry keeps listeners in registration order.
type registry[T any] struct {
	next    int
	entries []entry[T]
}

type entry[T any] struct {
	id int
	v  T
}

func (r *registry[T]) add(v T) int {
	r.next++
	r.entries = append(r.entries, entry[T]{id: r.next, v: v})
	return r.next
}

func (r *registry[T]) remove(id int) {
	for i, e := range r.entries {
		if e.id == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// each iterates over a snapshot so listeners may detach while being called.
func (r *registry[T]) each(fn func(T)) {
	for _, e := range append([]entry[T](nil), r.entries...) {
		fn(e.v)
	}
}

func (r *registry[T]) len() int { return len(r.entries) }

func detachFrom[T any](r *registry[T], id int) timeline.Detach {
	return func() error {
		r.remove(id)
		return nil
	}
}

// Listeners reports how many registrations are live.
func (d *Document) Listeners() int {
	return d.scrolls.len() + d.mutations.len() + d.visibility.len() + d.resizes.len() + d.themes.len()
}

func asNode(el timeline.Element) *node {
	n, _ := el.(*node)
	return n
}

// Turns implements timeline.Host.
func (d *Document) Turns() []timeline.Element {
	var out []timeline.Element
	for _, b := range d.list.children {
		if b.msg.IsUser() {
			out = append(out, b)
		}
	}
	return out
}

// IsTurn implements timeline.Host.
func (d *Document) IsTurn(el timeline.Element) bool {
	n := asNode(el)
	return n != nil && n.kind == kindBlock && n.msg.IsUser()
}

// ScrollingRoot implements timeline.Host.
func (d *Document) ScrollingRoot() timeline.Element { return d.root }

// Body implements timeline.Host.
func (d *Document) Body() timeline.Element { return d.body }

// Offsets implements timeline.Host. The document has a single scroll
// position, so every scroll element maps to the same scroll space.
func (d *Document) Offsets(_ timeline.Element, els []timeline.Element) []float64 {
	out := make([]float64, len(els))
	for i, el := range els {
		if n := asNode(el); n != nil {
			out[i] = float64(n.row) * RowHeight
		}
	}
	return out
}

// ScrollTop implements timeline.Host.
func (d *Document) ScrollTop(timeline.Element) float64 { return d.scrollTop }

// ViewportHeight implements timeline.Host.
func (d *Document) ViewportHeight(timeline.Element) float64 {
	return float64(d.height) * RowHeight
}

// ScrollTo implements timeline.Host.
func (d *Document) ScrollTo(_ timeline.Element, top float64) { d.setScroll(top) }

// WatchScroll implements timeline.Host.
func (d *Document) WatchScroll(_ timeline.Element, fn func()) (timeline.Detach, error) {
	return detachFrom(&d.scrolls, d.scrolls.add(fn)), nil
}

// WatchMutations implements timeline.Host. A watcher whose root was removed
// still hears about the removal.
func (d *Document) WatchMutations(root timeline.Element, fn func(timeline.Mutation)) (timeline.Detach, error) {
	return detachFrom(&d.mutations, d.mutations.add(mutationWatch{root: asNode(root), fn: fn})), nil
}

func (d *Document) notifyMutation(target *node, m timeline.Mutation) {
	d.mutations.each(func(w mutationWatch) {
		if w.root == nil {
			return
		}
		hit := w.root.contains(target)
		for _, el := range m.Removed {
			if n := asNode(el); n != nil && n.contains(w.root) {
				hit = true
			}
		}
		if hit {
			w.fn(m)
		}
	})
}

type visWatch struct {
	targets []timeline.Element
	opts    timeline.VisibilityOptions
	fn      func([]timeline.VisibilityEntry)
	state   map[timeline.Element]bool
	primed  bool
	dead    bool
}

// WatchVisibility implements timeline.Host. The first delivery reports every
// target; later ones only transitions.
func (d *Document) WatchVisibility(_ timeline.Element, targets []timeline.Element, opts timeline.VisibilityOptions, fn func([]timeline.VisibilityEntry)) (timeline.Detach, error) {
	w := &visWatch{
		targets: append([]timeline.Element(nil), targets...),
		opts:    opts,
		fn:      fn,
		state:   make(map[timeline.Element]bool),
	}
	id := d.visibility.add(w)
	d.post(func() { d.evaluate(w) })
	return func() error {
		w.dead = true
		d.visibility.remove(id)
		return nil
	}, nil
}

func (d *Document) evaluateVisibility() {
	d.visibility.each(func(w *visWatch) {
		d.post(func() { d.evaluate(w) })
	})
}

func (d *Document) evaluate(w *visWatch) {
	if w.dead {
		return
	}
	viewH := d.ViewportHeight(nil)
	var out []timeline.VisibilityEntry
	for _, el := range w.targets {
		n := asNode(el)
		vis := false
		if n != nil && n.Attached() {
			_, h := n.Bounds()
			vis = timeline.Intersects(float64(n.row)*RowHeight, h, d.scrollTop, viewH, w.opts)
		}
		if prev, seen := w.state[el]; w.primed && seen && prev == vis {
			continue
		}
		w.state[el] = vis
		out = append(out, timeline.VisibilityEntry{Target: el, Visible: vis})
	}
	w.primed = true
	if len(out) > 0 {
		w.fn(out)
	}
}

// WatchResize implements timeline.Host.
func (d *Document) WatchResize(fn func()) (timeline.Detach, error) {
	return detachFrom(&d.resizes, d.resizes.add(fn)), nil
}

// WatchTheme implements timeline.Host.
func (d *Document) WatchTheme(fn func()) (timeline.Detach, error) {
	return detachFrom(&d.themes, d.themes.add(fn)), nil
}

var _ timeline.Host = (*Document)(nil)
