package timeline

import (
	"errors"
	"strings"
)

// fakeEl is a node of an in-memory document.
type fakeEl struct {
	name       string
	parent     *fakeEl
	children   []*fakeEl
	text       string
	turn       bool
	scrollable bool
	w, h       float64
	top        float64
	isDoc      bool
}

func (e *fakeEl) Parent() Element {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

func (e *fakeEl) Attached() bool {
	cur := e
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur.isDoc
}

func (e *fakeEl) Scrollable() bool           { return e.scrollable }
func (e *fakeEl) Bounds() (float64, float64) { return e.w, e.h }
func (e *fakeEl) Text() string               { return e.text }

func (e *fakeEl) append(c *fakeEl) *fakeEl {
	c.parent = e
	e.children = append(e.children, c)
	return c
}

func (e *fakeEl) remove(c *fakeEl) {
	for i, x := range e.children {
		if x == c {
			e.children = append(e.children[:i], e.children[i+1:]...)
			c.parent = nil
			return
		}
	}
}

type watch[T any] struct {
	next int
	fns  map[int]T
}

func (w *watch[T]) add(fn T) int {
	if w.fns == nil {
		w.fns = make(map[int]T)
	}
	w.next++
	w.fns[w.next] = fn
	return w.next
}

type visWatch struct {
	scroll  Element
	targets []Element
	fn      func([]VisibilityEntry)
}

// fakeHost is a document with body > app > pane(scrollable) > list > turns.
type fakeHost struct {
	doc, body, app, pane, list *fakeEl

	scrollTop float64
	viewport  float64

	scrolls   watch[func()]
	mutations watch[func(Mutation)]
	vis       watch[visWatch]
	resizes   watch[func()]
	themes    watch[func()]

	scrolledTo []float64
	failDetach string
}

func newFakeHost() *fakeHost {
	h := &fakeHost{viewport: 600}
	h.doc = &fakeEl{name: "doc", isDoc: true, scrollable: true, w: 1200, h: 800}
	h.body = h.doc.append(&fakeEl{name: "body", w: 1200, h: 800})
	h.app = h.body.append(&fakeEl{name: "app", w: 1200, h: 800})
	h.pane = h.app.append(&fakeEl{name: "pane", scrollable: true, w: 900, h: 600})
	h.list = h.pane.append(&fakeEl{name: "list", w: 900, h: 5000})
	return h
}

// addTurn appends a user turn and an assistant reply, notifying mutation watchers.
func (h *fakeHost) addTurn(text string, top float64) *fakeEl {
	t := h.list.append(&fakeEl{name: "turn", text: text, turn: true, top: top, w: 900, h: 40})
	r := h.list.append(&fakeEl{name: "reply", text: "reply", top: top + 40, w: 900, h: 40})
	h.mutate(Mutation{Added: []Element{t, r}})
	return t
}

func (h *fakeHost) addTurns(n int, gap float64) []*fakeEl {
	var out []*fakeEl
	for i := 0; i < n; i++ {
		out = append(out, h.list.append(&fakeEl{name: "turn", text: "turn " + strings.Repeat("x", i%5) + string(rune('a'+i%26)), turn: true, top: float64(i) * gap, w: 900, h: 40}))
	}
	return out
}

func (h *fakeHost) mutate(m Mutation) {
	for _, fn := range h.mutations.fns {
		fn(m)
	}
}

// replaceList swaps the list container for a fresh one holding the same turns.
func (h *fakeHost) replaceList() {
	old := h.list
	h.pane.remove(old)
	h.list = h.pane.append(&fakeEl{name: "list", w: 900, h: 5000})
	for _, c := range old.children {
		cp := *c
		cp.parent, cp.children = nil, nil
		h.list.append(&cp)
	}
	h.mutate(Mutation{Added: []Element{h.list}, Removed: []Element{old}})
}

// clearList swaps the list container for an empty one.
func (h *fakeHost) clearList() {
	old := h.list
	h.pane.remove(old)
	h.list = h.pane.append(&fakeEl{name: "list", w: 900, h: 5000})
	h.mutate(Mutation{Added: []Element{h.list}, Removed: []Element{old}})
}

func (h *fakeHost) scroll(top float64) {
	h.scrollTop = top
	for _, fn := range h.scrolls.fns {
		fn()
	}
}

func (h *fakeHost) setVisible(el Element, visible bool) {
	for _, w := range h.vis.fns {
		if containsElement(w.targets, el) {
			w.fn([]VisibilityEntry{{Target: el, Visible: visible}})
		}
	}
}

func (h *fakeHost) live() int {
	return len(h.scrolls.fns) + len(h.mutations.fns) + len(h.vis.fns) + len(h.resizes.fns) + len(h.themes.fns)
}

func (h *fakeHost) Turns() []Element {
	var out []Element
	for _, c := range h.list.children {
		if c.turn {
			out = append(out, c)
		}
	}
	return out
}

func (h *fakeHost) IsTurn(el Element) bool {
	e, ok := el.(*fakeEl)
	return ok && e.turn
}

func (h *fakeHost) ScrollingRoot() Element { return h.doc }
func (h *fakeHost) Body() Element          { return h.body }

func (h *fakeHost) Offsets(_ Element, els []Element) []float64 {
	out := make([]float64, len(els))
	for i, el := range els {
		out[i] = el.(*fakeEl).top
	}
	return out
}

func (h *fakeHost) ScrollTop(Element) float64      { return h.scrollTop }
func (h *fakeHost) ViewportHeight(Element) float64 { return h.viewport }
func (h *fakeHost) ScrollTo(_ Element, top float64) {
	h.scrolledTo = append(h.scrolledTo, top)
	h.scroll(top)
}

func detacher[T any](h *fakeHost, w *watch[T], id int, name string) Detach {
	return func() error {
		delete(w.fns, id)
		if h.failDetach == name {
			return errors.New(name + " detach failed")
		}
		return nil
	}
}

func (h *fakeHost) WatchScroll(_ Element, fn func()) (Detach, error) {
	return detacher(h, &h.scrolls, h.scrolls.add(fn), "scroll"), nil
}

func (h *fakeHost) WatchMutations(_ Element, fn func(Mutation)) (Detach, error) {
	return detacher(h, &h.mutations, h.mutations.add(fn), "mutations"), nil
}

func (h *fakeHost) WatchVisibility(scroll Element, targets []Element, _ VisibilityOptions, fn func([]VisibilityEntry)) (Detach, error) {
	return detacher(h, &h.vis, h.vis.add(visWatch{scroll: scroll, targets: targets, fn: fn}), "visibility"), nil
}

func (h *fakeHost) WatchResize(fn func()) (Detach, error) {
	return detacher(h, &h.resizes, h.resizes.add(fn), "resize"), nil
}

func (h *fakeHost) WatchTheme(fn func()) (Detach, error) {
	return detacher(h, &h.themes, h.themes.add(fn), "theme"), nil
}

type fakeRenderer struct {
	bar     float64
	views   []RailView
	cleared int
}

func (r *fakeRenderer) BarHeight() float64 { return r.bar }
func (r *fakeRenderer) Render(v RailView)  { r.views = append(r.views, v) }
func (r *fakeRenderer) Clear()             { r.cleared++ }
func (r *fakeRenderer) last() RailView {
	if len(r.views) == 0 {
		return RailView{}
	}
	return r.views[len(r.views)-1]
}

// barFor returns a bar height whose capacity is exactly k markers with stock geometry.
func barFor(k int) float64 {
	o := DefaultLayout()
	return 2*o.Pad + o.MinGap*float64(k-1)
}
