package panels

import (
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/Dicklesworthstone/chatrail/internal/host"
	"github.com/Dicklesworthstone/chatrail/internal/timeline"
	"github.com/Dicklesworthstone/chatrail/internal/tui/layout"
	"github.com/Dicklesworthstone/chatrail/internal/tui/theme"
)

func railConfig() PanelConfig {
	return PanelConfig{
		ID:        "rail",
		Title:     "Turns",
		MinWidth:  1,
		MinHeight: 1,
	}
}

// RailPanel draws the conversation rail. It is the timeline.Renderer of the
// terminal viewer.
type RailPanel struct {
	PanelBase
	styles theme.Styles
	zones  *zone.Manager

	view    timeline.RailView
	visible bool
	cursor  int // keyboard-focused item, -1 for none
	hover   string
}

// NewRailPanel creates a rail. zones may be nil, which disables mouse hit zones.
func NewRailPanel(styles theme.Styles, zones *zone.Manager) *RailPanel {
	return &RailPanel{
		PanelBase: NewPanelBase(railConfig()),
		styles:    styles,
		zones:     zones,
		cursor:    -1,
	}
}

// SetStyles switches palettes.
func (r *RailPanel) SetStyles(s theme.Styles) { r.styles = s }

// BarHeight implements timeline.Renderer.
func (r *RailPanel) BarHeight() float64 {
	return float64(r.Height()) * host.RowHeight
}

// Render implements timeline.Renderer.
func (r *RailPanel) Render(v timeline.RailView) {
	r.view = v
	r.visible = true
	if r.cursor >= len(v.Items) {
		r.cursor = len(v.Items) - 1
	}
}

// Clear implements timeline.Renderer.
func (r *RailPanel) Clear() {
	r.view = timeline.RailView{}
	r.visible = false
	r.cursor = -1
	r.hover = ""
}

// Visible reports whether an overlay is painting into the rail.
func (r *RailPanel) Visible() bool { return r.visible }

// RailView returns the last rendered view.
func (r *RailPanel) RailView() timeline.RailView { return r.view }

// Row converts an item offset into a rail row.
func (r *RailPanel) Row(offset float64) int {
	row := int(math.Round(offset / host.RowHeight))
	return max(0, min(row, r.Height()-1))
}

// ItemAt returns the item drawn on row.
func (r *RailPanel) ItemAt(row int) (timeline.RailItem, bool) {
	for _, it := range r.view.Items {
		if r.Row(it.Offset) == row {
			return it, true
		}
	}
	return timeline.RailItem{}, false
}

// ZoneID is the hit zone id for an item handle.
func (r *RailPanel) ZoneID(handle string) string {
	return r.config.ID + ":" + handle
}

// HandleAt returns the handle of the item under the mouse, or "".
func (r *RailPanel) HandleAt(msg tea.MouseMsg) string {
	if r.zones == nil {
		return ""
	}
	for _, it := range r.view.Items {
		if z := r.zones.Get(r.ZoneID(it.Handle)); z != nil && z.InBounds(msg) {
			return it.Handle
		}
	}
	return ""
}

// InBounds reports whether the mouse is anywhere over the rail.
func (r *RailPanel) InBounds(msg tea.MouseMsg) bool {
	if r.zones == nil {
		return false
	}
	z := r.zones.Get(r.config.ID)
	return z != nil && z.InBounds(msg)
}

// SetHover records the hovered handle ("" for none).
func (r *RailPanel) SetHover(handle string) { r.hover = handle }

// MoveCursor moves keyboard focus by delta items, starting at the active item.
func (r *RailPanel) MoveCursor(delta int) {
	n := len(r.view.Items)
	if n == 0 {
		r.cursor = -1
		return
	}
	if r.cursor < 0 {
		r.cursor = r.activeItem()
		if r.cursor < 0 {
			r.cursor = 0
		}
		return
	}
	r.cursor = max(0, min(n-1, r.cursor+delta))
}

func (r *RailPanel) activeItem() int {
	for i, it := range r.view.Items {
		if it.Active {
			return i
		}
	}
	return -1
}

// Cursor returns the keyboard-focused item.
func (r *RailPanel) Cursor() (timeline.RailItem, bool) {
	if !r.IsFocused() || r.cursor < 0 || r.cursor >= len(r.view.Items) {
		return timeline.RailItem{}, false
	}
	return r.view.Items[r.cursor], true
}

// Blur drops keyboard focus.
func (r *RailPanel) Blur() {
	r.PanelBase.Blur()
	r.cursor = -1
}

// Focus gives the rail keyboard focus with the cursor on the active item.
func (r *RailPanel) Focus() {
	r.PanelBase.Focus()
	r.cursor = -1
	r.MoveCursor(0)
}

// Tooltip returns the text and row of the tooltip to show, if any. A focused
// item wins over a hovered one.
func (r *RailPanel) Tooltip() (string, int, bool) {
	if it, ok := r.Cursor(); ok {
		return it.Label(), r.Row(it.Offset), true
	}
	if r.hover == "" {
		return "", 0, false
	}
	for _, it := range r.view.Items {
		if it.Handle == r.hover {
			return it.Label(), r.Row(it.Offset), true
		}
	}
	return "", 0, false
}

// RenderTooltip styles label to the clamped tooltip width.
func (r *RailPanel) RenderTooltip(label string) string {
	w := layout.TooltipWidth(label)
	return r.styles.Tooltip.Width(w).Render(layout.TruncateWidthDefault(label, w-2))
}

// Keybindings implements Panel.
func (r *RailPanel) Keybindings() []Keybinding {
	return []Keybinding{
		{Key: key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous")), Description: "Previous item", Action: "rail_up"},
		{Key: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next")), Description: "Next item", Action: "rail_down"},
		{Key: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "jump")), Description: "Jump to turn", Action: "rail_jump"},
		{Key: key.NewBinding(key.WithKeys("s", " "), key.WithHelp("s", "star")), Description: "Toggle bookmark", Action: "rail_star"},
	}
}

func (r *RailPanel) glyph(it timeline.RailItem) string {
	switch {
	case it.Kind == timeline.Aggregate && it.Starred && it.End == timeline.AnchorTop:
		return r.styles.Starred.Render("↟")
	case it.Kind == timeline.Aggregate && it.Starred:
		return r.styles.Starred.Render("↡")
	case it.Kind == timeline.Aggregate && it.End == timeline.AnchorTop:
		return r.styles.Aggregate.Render("▲")
	case it.Kind == timeline.Aggregate:
		return r.styles.Aggregate.Render("▼")
	case it.Active && it.Starred:
		return r.styles.Active.Render("★")
	case it.Active:
		return r.styles.Active.Render("●")
	case it.Starred:
		return r.styles.Starred.Render("★")
	default:
		return r.styles.Marker.Render("•")
	}
}

// View implements Panel.
func (r *RailPanel) View() string {
	w, h := r.Width(), r.Height()
	left := (w - 1) / 2
	right := w - 1 - left

	cells := make([]string, h)
	for i := range cells {
		cells[i] = r.styles.Track.Render("│")
	}
	if r.visible {
		for i, it := range r.view.Items {
			g := r.glyph(it)
			if i == r.cursor && r.IsFocused() {
				g = r.styles.Focused.Render(g)
			}
			if r.zones != nil {
				g = r.zones.Mark(r.ZoneID(it.Handle), g)
			}
			cells[r.Row(it.Offset)] = g
		}
	}

	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Repeat(" ", left))
		b.WriteString(c)
		b.WriteString(strings.Repeat(" ", right))
	}
	out := b.String()
	if r.zones != nil {
		out = r.zones.Mark(r.config.ID, out)
	}
	return out
}
