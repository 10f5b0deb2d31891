package timeline

// Minimum size of a scroll container candidate, in logical pixels.
const (
	minScrollWidth  = 400
	minScrollHeight = 200
)

// Anchors is the result of resolving the host document.
type Anchors struct {
	// Scroll is the element whose scroll position moves the turns.
	Scroll Element
	// Root is the subtree watched for structural changes.
	Root Element
}

// ResolveAnchors locates the scroll container and observation root for the
// current turns. ok is false when the host has no turns yet.
func ResolveAnchors(h Host) (a Anchors, ok bool) {
	turns := h.Turns()
	if len(turns) == 0 {
		return Anchors{}, false
	}
	body := h.Body()

	scroll := pickScrollContainer(turns, body)
	if scroll == nil {
		scroll = h.ScrollingRoot()
	}

	common := CommonAncestor(turns, body)
	root := common
	if scroll != nil && scroll != h.ScrollingRoot() && scroll != body && common != nil && isAncestorOrSelf(scroll, common) {
		root = scroll
	}
	if root == nil {
		root = body
	}
	return Anchors{Scroll: scroll, Root: root}, true
}

// pickScrollContainer scores scrollable ancestors by how many turns they
// contain times their width.
func pickScrollContainer(turns []Element, body Element) Element {
	counts := make(map[Element]int)
	var order []Element
	for _, el := range turns {
		for cur := el.Parent(); cur != nil && cur != body; cur = cur.Parent() {
			if !qualifies(cur) {
				continue
			}
			if counts[cur] == 0 {
				order = append(order, cur)
			}
			counts[cur]++
		}
	}

	var best Element
	bestScore := -1.0
	for _, el := range order {
		w, _ := el.Bounds()
		if score := float64(counts[el]) * w; score > bestScore {
			best, bestScore = el, score
		}
	}
	return best
}

func qualifies(el Element) bool {
	if !el.Scrollable() {
		return false
	}
	w, h := el.Bounds()
	return w > minScrollWidth && h > minScrollHeight
}

// CommonAncestor returns the deepest element containing every el, stopping at
// body. It returns nil for no elements.
func CommonAncestor(els []Element, body Element) Element {
	if len(els) == 0 {
		return nil
	}
	chain := func(el Element) []Element {
		var c []Element
		for cur := el; cur != nil && cur != body; cur = cur.Parent() {
			c = append(c, cur)
		}
		if body != nil {
			c = append(c, body)
		}
		return c
	}
	first := chain(els[0])
	rest := make([]map[Element]bool, len(els)-1)
	for i, el := range els[1:] {
		set := make(map[Element]bool)
		for _, a := range chain(el) {
			set[a] = true
		}
		rest[i] = set
	}
	for _, cand := range first {
		shared := true
		for _, set := range rest {
			if !set[cand] {
				shared = false
				break
			}
		}
		if shared {
			return cand
		}
	}
	return nil
}

func isAncestorOrSelf(anc, el Element) bool {
	for cur := el; cur != nil; cur = cur.Parent() {
		if cur == anc {
			return true
		}
	}
	return false
}
