// Package layout sizes the viewer regions and truncates text by display width.
package layout

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Tier buckets terminal widths.
type Tier int

const (
	TierNarrow Tier = iota // rail only, no tooltip
	TierNormal
	TierWide
)

// Tier thresholds in columns.
const (
	NormalMin = 60
	WideMin   = 120
)

func (t Tier) String() string {
	switch t {
	case TierNormal:
		return "normal"
	case TierWide:
		return "wide"
	default:
		return "narrow"
	}
}

// TierForWidth returns the tier for a terminal width.
func TierForWidth(width int) Tier {
	switch {
	case width >= WideMin:
		return TierWide
	case width >= NormalMin:
		return TierNormal
	default:
		return TierNarrow
	}
}

// Tooltip width bounds in columns.
const (
	TooltipMin = 16
	TooltipMax = 28
)

// TooltipWidth clamps the natural width of text into [TooltipMin, TooltipMax].
func TooltipWidth(text string) int {
	return max(TooltipMin, min(TooltipMax, runewidth.StringWidth(text)+2))
}

// Regions splits the terminal into transcript, rail and status rows.
type Regions struct {
	TranscriptWidth int
	RailWidth       int
	BodyHeight      int
	Tier            Tier
}

// Split computes the regions for a terminal of width x height with a rail
// of railWidth columns and one status row.
func Split(width, height, railWidth int) Regions {
	railWidth = max(1, min(railWidth, width/4))
	return Regions{
		TranscriptWidth: max(1, width-railWidth),
		RailWidth:       railWidth,
		BodyHeight:      max(1, height-1),
		Tier:            TierForWidth(width),
	}
}

// TruncateWidth shortens s to at most maxWidth display cells, ending in
// suffix when something was cut.
func TruncateWidth(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	sw := runewidth.StringWidth(suffix)
	if sw >= maxWidth {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, suffix)
}

// TruncateWidthDefault truncates with "…".
func TruncateWidthDefault(s string, maxWidth int) string {
	return TruncateWidth(s, maxWidth, "…")
}

// TruncateMiddle keeps both ends of s and elides the middle.
func TruncateMiddle(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 2 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	keep := maxWidth - 1
	head := runewidth.Truncate(s, (keep+1)/2, "")
	tail := lastWidth(s, keep/2)
	return head + "…" + tail
}

func lastWidth(s string, w int) string {
	r := []rune(s)
	width := 0
	i := len(r)
	for i > 0 {
		cw := runewidth.RuneWidth(r[i-1])
		if width+cw > w {
			break
		}
		width += cw
		i--
	}
	return string(r[i:])
}

// PadRight pads s with spaces to width display cells.
func PadRight(s string, width int) string {
	if w := runewidth.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
