package host

import (
	"github.com/Dicklesworthstone/chatrail/internal/timeline"
	"github.com/Dicklesworthstone/chatrail/internal/transcript"
)

type kind int

const (
	kindDocument kind = iota
	kindBody
	kindApp
	kindPane
	kindList
	kindBlock
)

// node is one element of the terminal document.
type node struct {
	doc      *Document
	kind     kind
	parent   *node
	children []*node

	// blocks only
	msg   transcript.Message
	lines []string
	row   int // first row inside the list
}

func (n *node) Parent() timeline.Element {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) Attached() bool {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur == n.doc.root
}

func (n *node) Scrollable() bool {
	return n.kind == kindPane || n.kind == kindDocument
}

func (n *node) Bounds() (float64, float64) {
	d := n.doc
	w := float64(d.width) * CellWidth
	switch n.kind {
	case kindList:
		return w, float64(d.rows()) * RowHeight
	case kindBlock:
		return w, float64(len(n.lines)) * RowHeight
	case kindPane:
		return w, float64(d.height) * RowHeight
	default:
		return w, float64(max(d.height, d.rows())) * RowHeight
	}
}

func (n *node) Text() string {
	if n.kind == kindBlock {
		return n.msg.Text
	}
	return ""
}

func (n *node) append(c *node) *node {
	c.parent = n
	n.children = append(n.children, c)
	return c
}

func (n *node) contains(el *node) bool {
	for cur := el; cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
	}
	return false
}
