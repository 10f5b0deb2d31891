package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/chatrail/internal/tui/theme"
)

// TableStyle defines the visual style of a table
type TableStyle int

const (
	// TableStyleRounded uses rounded box-drawing corners
	TableStyleRounded TableStyle = iota
	// TableStyleMinimal draws only the header rule
	TableStyleMinimal
)

// StyledTable renders terminal tables with box-drawing
type StyledTable struct {
	theme   theme.Theme
	headers []string
	rows    [][]string
	widths  []int
	style   TableStyle
	footer  string
}

// NewStyledTable creates a table with headers
func NewStyledTable(t theme.Theme, headers ...string) *StyledTable {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	return &StyledTable{theme: t, headers: headers, widths: widths}
}

// WithStyle sets the table style
func (t *StyledTable) WithStyle(style TableStyle) *StyledTable {
	t.style = style
	return t
}

// WithFooter adds a footer line below the table
func (t *StyledTable) WithFooter(footer string) *StyledTable {
	t.footer = footer
	return t
}

// AddRow adds a row to the table
func (t *StyledTable) AddRow(cols ...string) {
	for i, c := range cols {
		if i < len(t.widths) {
			t.widths[i] = max(t.widths[i], lipgloss.Width(c))
		}
	}
	t.rows = append(t.rows, cols)
}

// RowCount returns the number of rows
func (t *StyledTable) RowCount() int { return len(t.rows) }

// Render returns the table as a styled string
func (t *StyledTable) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	border := lipgloss.NewStyle().Foreground(t.theme.Track)
	header := lipgloss.NewStyle().Foreground(t.theme.Accent).Bold(true)
	text := lipgloss.NewStyle().Foreground(t.theme.Text)
	muted := lipgloss.NewStyle().Foreground(t.theme.Muted)

	vertical := "│"
	if t.style == TableStyleMinimal {
		vertical = " "
	}

	hline := func(left, mid, right string) string {
		var b strings.Builder
		b.WriteString(left)
		for i, w := range t.widths {
			b.WriteString(strings.Repeat("─", w+2))
			if i < len(t.widths)-1 {
				b.WriteString(mid)
			}
		}
		b.WriteString(right)
		return border.Render(b.String())
	}
	row := func(cells []string, style lipgloss.Style) string {
		var b strings.Builder
		b.WriteString(border.Render(vertical))
		for i := range t.headers {
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(" ")
			b.WriteString(style.Render(padCell(cell, t.widths[i])))
			b.WriteString(" ")
			b.WriteString(border.Render(vertical))
		}
		return b.String()
	}

	var sb strings.Builder
	if t.style == TableStyleRounded {
		sb.WriteString(hline("╭", "┬", "╮") + "\n")
	}
	sb.WriteString(row(t.headers, header) + "\n")
	if t.style == TableStyleRounded {
		sb.WriteString(hline("├", "┼", "┤") + "\n")
	} else {
		sb.WriteString(hline(" ", "─", " ") + "\n")
	}
	for _, r := range t.rows {
		sb.WriteString(row(r, text) + "\n")
	}
	if t.style == TableStyleRounded {
		sb.WriteString(hline("╰", "┴", "╯") + "\n")
	}
	if t.footer != "" {
		sb.WriteString(muted.Render(t.footer) + "\n")
	}
	return sb.String()
}

// String implements fmt.Stringer
func (t *StyledTable) String() string { return t.Render() }

func padCell(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// SuccessMessage renders a success message with icon
func SuccessMessage(t theme.Theme, msg string) string {
	return lipgloss.NewStyle().Foreground(t.Accent).Render("✓ " + msg)
}

// SubtleText renders muted text
func SubtleText(t theme.Theme, text string) string {
	return lipgloss.NewStyle().Foreground(t.Muted).Render(text)
}
