// Package theme holds the viewer palettes and the styles derived from them.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme is a named palette.
type Theme struct {
	Name string
	Dark bool

	Text      lipgloss.Color
	Muted     lipgloss.Color
	User      lipgloss.Color
	Assistant lipgloss.Color
	Accent    lipgloss.Color
	Star      lipgloss.Color
	Track     lipgloss.Color
	Surface   lipgloss.Color
}

// Mocha is the dark palette.
func Mocha() Theme {
	return Theme{
		Name:      "mocha",
		Dark:      true,
		Text:      lipgloss.Color("#cdd6f4"),
		Muted:     lipgloss.Color("#6c7086"),
		User:      lipgloss.Color("#89b4fa"),
		Assistant: lipgloss.Color("#a6e3a1"),
		Accent:    lipgloss.Color("#f5c2e7"),
		Star:      lipgloss.Color("#f9e2af"),
		Track:     lipgloss.Color("#45475a"),
		Surface:   lipgloss.Color("#313244"),
	}
}

// Latte is the light palette.
func Latte() Theme {
	return Theme{
		Name:      "latte",
		Dark:      false,
		Text:      lipgloss.Color("#4c4f69"),
		Muted:     lipgloss.Color("#9ca0b0"),
		User:      lipgloss.Color("#1e66f5"),
		Assistant: lipgloss.Color("#40a02b"),
		Accent:    lipgloss.Color("#ea76cb"),
		Star:      lipgloss.Color("#df8e1d"),
		Track:     lipgloss.Color("#ccd0da"),
		Surface:   lipgloss.Color("#e6e9ef"),
	}
}

// For returns the palette for a background.
func For(dark bool) Theme {
	if dark {
		return Mocha()
	}
	return Latte()
}

// DetectDark resolves a configured theme mode ("auto", "dark", "light").
// Auto asks the terminal for its background color.
func DetectDark(mode string) bool {
	switch strings.ToLower(mode) {
	case "dark":
		return true
	case "light":
		return false
	}
	return termenv.HasDarkBackground()
}

// Styles are the lipgloss styles used by the panels.
type Styles struct {
	UserHeader      lipgloss.Style
	AssistantHeader lipgloss.Style
	Body            lipgloss.Style
	Track           lipgloss.Style
	Marker          lipgloss.Style
	Active          lipgloss.Style
	Starred         lipgloss.Style
	Aggregate       lipgloss.Style
	Focused         lipgloss.Style
	Tooltip         lipgloss.Style
	Status          lipgloss.Style
}

// Styles builds the styles for t.
func (t Theme) Styles() Styles {
	return Styles{
		UserHeader:      lipgloss.NewStyle().Foreground(t.User).Bold(true),
		AssistantHeader: lipgloss.NewStyle().Foreground(t.Assistant).Bold(true),
		Body:            lipgloss.NewStyle().Foreground(t.Text),
		Track:           lipgloss.NewStyle().Foreground(t.Track),
		Marker:          lipgloss.NewStyle().Foreground(t.Muted),
		Active:          lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		Starred:         lipgloss.NewStyle().Foreground(t.Star),
		Aggregate:       lipgloss.NewStyle().Foreground(t.Muted).Faint(true),
		Focused:         lipgloss.NewStyle().Reverse(true),
		Tooltip: lipgloss.NewStyle().
			Foreground(t.Text).
			Background(t.Surface).
			Padding(0, 1),
		Status: lipgloss.NewStyle().Foreground(t.Muted),
	}
}
