package viewer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/Dicklesworthstone/chatrail/internal/tui/layout"
)

// View implements tea.Model.
func (m *Model) View() string {
	body := strings.Split(m.body.View(), "\n")
	rail := strings.Split(m.rail.View(), "\n")
	tw := m.regions.TranscriptWidth

	if label, row, ok := m.rail.Tooltip(); ok && row < len(body) {
		tip := m.rail.RenderTooltip(label)
		keep := max(0, tw-lipgloss.Width(tip))
		line := truncate.String(body[row], uint(keep))
		body[row] = line + strings.Repeat(" ", max(0, keep-lipgloss.Width(line))) + tip
	}

	var b strings.Builder
	for i := 0; i < m.regions.BodyHeight; i++ {
		var l, r string
		if i < len(body) {
			l = body[i]
		}
		if i < len(rail) {
			r = rail[i]
		}
		b.WriteString(l)
		b.WriteString(strings.Repeat(" ", max(0, tw-lipgloss.Width(l))))
		b.WriteString(r)
		b.WriteByte('\n')
	}
	b.WriteString(m.statusLine())
	return m.zones.Scan(b.String())
}

func (m *Model) statusLine() string {
	if m.showHelp {
		return m.help.View(m.keys)
	}
	e := m.Entry()
	parts := []string{e.Token}
	if m.provider != "" {
		parts = append(parts, string(m.provider))
	}
	if ov := m.sup.Current(); ov != nil {
		v := ov.View()
		if v.Total > 0 && v.ActiveIndex >= 0 {
			parts = append(parts, fmt.Sprintf("turn %d/%d", v.ActiveIndex+1, v.Total))
		}
		if n := len(ov.Bookmarks().IDs()); n > 0 {
			parts = append(parts, fmt.Sprintf("★ %d", n))
		}
		if m.rail.IsFocused() {
			parts = append(parts, "rail")
		}
		if ov.Gestures().Holding() {
			parts = append(parts, "hold to star")
		}
	} else if !m.sup.Flags().On() {
		parts = append(parts, "rail off")
	}
	if len(m.entries) > 1 {
		parts = append(parts, fmt.Sprintf("%d/%d", m.current+1, len(m.entries)))
	}
	if m.err != nil {
		parts = append(parts, m.err.Error())
	}
	text := layout.TruncateWidthDefault(strings.Join(parts, " · "), max(1, m.width))
	return m.styles.Status.Render(text)
}
