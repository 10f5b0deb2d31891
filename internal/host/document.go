// Package host lays a transcript out as a scrollable terminal document and
// exposes it to the rail through timeline.Host.
//
// The element tree mirrors a chat page: document > body > app > pane (the
// scroll container) > list > one block per message. Geometry is reported in
// logical pixels so the rail's layout constants keep their meaning; one
// terminal cell is CellWidth by RowHeight.
package host

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
	"github.com/rs/zerolog"

	"github.com/Dicklesworthstone/chatrail/internal/timeline"
	"github.com/Dicklesworthstone/chatrail/internal/transcript"
)

// Cell geometry in logical pixels.
const (
	CellWidth = 8.0
	RowHeight = 14.0
)

// Line is one rendered row of the document.
type Line struct {
	Text   string
	Role   string
	Header bool
	Block  int
}

// Option configures a Document.
type Option func(*Document)

// WithSize sets the pane size in cells.
func WithSize(width, height int) Option {
	return func(d *Document) { d.width, d.height = max(1, width), max(1, height) }
}

// WithMargin reserves columns on the right of the pane (where the rail sits).
func WithMargin(cols int) Option {
	return func(d *Document) { d.margin = max(0, cols) }
}

// WithDark sets the initial theme.
func WithDark(dark bool) Option {
	return func(d *Document) { d.dark = dark }
}

// WithPost sets how visibility notifications are delivered. They run
// immediately by default.
func WithPost(post func(func())) Option {
	return func(d *Document) {
		if post != nil {
			d.post = post
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Document) { d.logger = l }
}

// Document is the terminal host. It is not safe for concurrent use; callers
// drive it from the UI goroutine.
type Document struct {
	root, body, app, pane, list *node

	width, height int
	margin        int
	scrollTop     float64
	dark          bool
	lines         []Line
	version       int

	post   func(func())
	logger zerolog.Logger

	scrolls    registry[func()]
	mutations  registry[mutationWatch]
	visibility registry[*visWatch]
	resizes    registry[func()]
	themes     registry[func()]
}

type mutationWatch struct {
	root *node
	fn   func(timeline.Mutation)
}

// New creates an empty document.
func New(opts ...Option) *Document {
	d := &Document{
		width:  80,
		height: 24,
		post:   func(fn func()) { fn() },
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.root = &node{doc: d, kind: kindDocument}
	d.body = d.root.append(&node{doc: d, kind: kindBody})
	d.app = d.body.append(&node{doc: d, kind: kindApp})
	d.pane = d.app.append(&node{doc: d, kind: kindPane})
	d.list = d.pane.append(&node{doc: d, kind: kindList})
	return d
}

// Size returns the pane size in cells.
func (d *Document) Size() (width, height int) { return d.width, d.height }

// Dark reports the current theme.
func (d *Document) Dark() bool { return d.dark }

// Lines returns every rendered row.
func (d *Document) Lines() []Line { return d.lines }

// Version changes whenever the rendered rows change.
func (d *Document) Version() int { return d.version }

// Messages returns the messages currently shown.
func (d *Document) Messages() []transcript.Message {
	out := make([]transcript.Message, len(d.list.children))
	for i, b := range d.list.children {
		out[i] = b.msg
	}
	return out
}

// ScrollRow returns the first visible row.
func (d *Document) ScrollRow() int {
	return int(d.scrollTop/RowHeight + 0.5)
}

// Reset replaces the whole transcript. The message list container is
// swapped for a new one, as a page does when it re-renders a conversation.
func (d *Document) Reset(msgs []transcript.Message) {
	old := d.list
	old.parent = nil
	d.list = &node{doc: d, kind: kindList}
	d.pane.children = nil
	d.pane.append(d.list)
	for _, m := range msgs {
		d.list.append(d.newBlock(m))
	}
	d.relayout()
	d.scrollTop = min(d.scrollTop, d.maxScroll())
	d.logger.Debug().Int("messages", len(msgs)).Msg("document reset")

	d.notifyMutation(d.pane, timeline.Mutation{
		Added:   []timeline.Element{d.list},
		Removed: []timeline.Element{old},
	})
	d.evaluateVisibility()
}

// Apply folds a follower update into the document. Changed blocks are
// replaced, new ones appended. A reader sitting at the bottom stays there.
func (d *Document) Apply(u transcript.Update) {
	if u.Reset {
		d.Reset(u.Messages)
		return
	}
	atBottom := d.scrollTop >= d.maxScroll()-0.5
	var m timeline.Mutation
	for i := max(0, u.From); i < len(u.Messages); i++ {
		msg := u.Messages[i]
		if i < len(d.list.children) {
			old := d.list.children[i]
			if sameMessage(old.msg, msg) {
				continue
			}
			nb := d.newBlock(msg)
			nb.parent = d.list
			d.list.children[i] = nb
			old.parent = nil
			m.Added = append(m.Added, nb)
			m.Removed = append(m.Removed, old)
			continue
		}
		m.Added = append(m.Added, d.list.append(d.newBlock(msg)))
	}
	if len(m.Added) == 0 && len(m.Removed) == 0 {
		return
	}
	d.relayout()
	d.notifyMutation(d.list, m)
	if atBottom && d.maxScroll() > d.scrollTop {
		d.setScroll(d.maxScroll())
		return
	}
	d.evaluateVisibility()
}

// Resize changes the pane size in cells and re-wraps every block.
func (d *Document) Resize(width, height int) {
	width, height = max(1, width), max(1, height)
	if width == d.width && height == d.height {
		return
	}
	wrapChanged := width != d.width
	d.width, d.height = width, height
	if wrapChanged {
		for _, b := range d.list.children {
			b.lines = nil
		}
	}
	d.relayout()
	d.scrollTop = min(d.scrollTop, d.maxScroll())
	d.resizes.each(func(fn func()) { fn() })
	d.evaluateVisibility()
}

// SetDark switches the theme and notifies theme watchers on change.
func (d *Document) SetDark(dark bool) {
	if dark == d.dark {
		return
	}
	d.dark = dark
	d.version++
	d.themes.each(func(fn func()) { fn() })
}

// ScrollBy scrolls by whole rows.
func (d *Document) ScrollBy(rows int) {
	d.setScroll(d.scrollTop + float64(rows)*RowHeight)
}

// ScrollToRow scrolls so that row is the first visible one.
func (d *Document) ScrollToRow(row int) {
	d.setScroll(float64(row) * RowHeight)
}

func (d *Document) setScroll(top float64) {
	top = max(0, min(top, d.maxScroll()))
	if top == d.scrollTop {
		return
	}
	d.scrollTop = top
	d.scrolls.each(func(fn func()) { fn() })
	d.evaluateVisibility()
}

func (d *Document) rows() int { return len(d.lines) }

func (d *Document) maxScroll() float64 {
	return float64(max(0, d.rows()-d.height)) * RowHeight
}

func (d *Document) wrapWidth() int {
	return max(8, d.width-d.margin)
}

func (d *Document) newBlock(m transcript.Message) *node {
	return &node{doc: d, kind: kindBlock, msg: m}
}

func (d *Document) relayout() {
	w := d.wrapWidth()
	d.lines = d.lines[:0]
	row := 0
	for i, b := range d.list.children {
		if b.lines == nil {
			b.lines = renderBlock(b.msg, w)
		}
		b.row = row
		for j, text := range b.lines {
			d.lines = append(d.lines, Line{Text: text, Role: b.msg.Role, Header: j == 0, Block: i})
		}
		row += len(b.lines)
	}
	d.version++
}

func renderBlock(m transcript.Message, width int) []string {
	label := "Assistant"
	if m.IsUser() {
		label = "You"
	}
	lines := []string{label}
	body := wrap.String(wordwrap.String(m.Body(), width), width)
	for _, l := range strings.Split(body, "\n") {
		lines = append(lines, strings.TrimRight(l, " "))
	}
	return append(lines, "")
}

func sameMessage(a, b transcript.Message) bool {
	return a.Role == b.Role && a.Text == b.Text && strings.Join(a.ToolCalls, "\x00") == strings.Join(b.ToolCalls, "\x00")
}
