package timeline

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Marker is the rail's record for one user turn. Markers are rebuilt on every
// recomputation; only ID is meant to persist across rebuilds.
type Marker struct {
	ID      string
	Summary string
	// Offset is the anchor's top in scroll space.
	Offset float64
	// N is Offset rescaled into [0,1] across the first..last span.
	N       float64
	Starred bool
	// RailHandle names the rail item currently drawing this marker.
	RailHandle string
	Anchor     Element
}

var (
	whitespaceRun = regexp.MustCompile(`[\s\x{0B}\p{Z}\x{FEFF}]+`)
	youSaidPrefix = regexp.MustCompile(`(?i)^ ?you ?said ?[:：]? ?`)
	cjkSaidPrefix = regexp.MustCompile(`^ ?(你说|您说|你說|您說) ?[:：]? ?`)
)

// Normalize collapses whitespace and strips the "you said:" style prefixes
// chat frontends put in front of user messages.
func Normalize(text string) string {
	s := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	s = youSaidPrefix.ReplaceAllString(s, "")
	s = cjkSaidPrefix.ReplaceAllString(s, "")
	return s
}

// Hash is a DJB2 hash over the UTF-16 code units of s, in base 36.
// UTF-16 keeps ids identical to those produced by browser builds of the rail.
func Hash(s string) string {
	var h uint32 = 5381
	for _, c := range utf16.Encode([]rune(s)) {
		h = h<<5 + h + uint32(c)
	}
	return strconv.FormatUint(uint64(h), 36)
}

// BuildIndex turns anchors and their offsets into markers in one pass.
// offsets[i] belongs to anchors[i]; a shorter offsets slice is padded with the
// last known offset. starred may be nil.
func BuildIndex(anchors []Element, offsets []float64, starred func(id string) bool) []Marker {
	if len(anchors) == 0 {
		return nil
	}
	markers := make([]Marker, len(anchors))
	seen := make(map[string]int, len(anchors))

	prev := 0.0
	for i, el := range anchors {
		off := prev
		if i < len(offsets) {
			off = offsets[i]
		}
		// document order wins over a host that reports a smaller offset
		if i > 0 && off < prev {
			off = prev
		}
		prev = off

		text := Normalize(el.Text())
		h := Hash(text)
		seen[h]++
		id := "u-" + h + "-" + strconv.Itoa(seen[h])

		markers[i] = Marker{
			ID:      id,
			Summary: text,
			Offset:  off,
			Anchor:  el,
		}
		if starred != nil {
			markers[i].Starred = starred(id)
		}
	}

	first := markers[0].Offset
	span := markers[len(markers)-1].Offset - first
	if span <= 0 {
		span = 1
	}
	for i := range markers {
		markers[i].N = clamp((markers[i].Offset-first)/span, 0, 1)
	}
	return markers
}

// IndexOf returns the position of id in markers, or -1.
func IndexOf(markers []Marker, id string) int {
	if id == "" {
		return -1
	}
	for i := range markers {
		if markers[i].ID == id {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
