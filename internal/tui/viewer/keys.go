package viewer

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the viewer keybindings.
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Top        key.Binding
	Bottom     key.Binding
	NextTurn   key.Binding
	PrevTurn   key.Binding
	RailFocus  key.Binding
	Jump       key.Binding
	Star       key.Binding
	ScrubBack  key.Binding
	ScrubAhead key.Binding
	Theme      key.Binding
	NextConv   key.Binding
	PrevConv   key.Binding
	ToggleRail key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:     key.NewBinding(key.WithKeys("pgup", "b"), key.WithHelp("pgup", "page up")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown", "f", " "), key.WithHelp("pgdn", "page down")),
		Top:        key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:     key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		NextTurn:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next turn")),
		PrevTurn:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev turn")),
		RailFocus:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "rail")),
		Jump:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "jump")),
		Star:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "star")),
		ScrubBack:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "scrub up")),
		ScrubAhead: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "scrub down")),
		Theme:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		NextConv:   key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("^n", "next chat")),
		PrevConv:   key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("^p", "prev chat")),
		ToggleRail: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "rail on/off")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTurn, k.PrevTurn, k.RailFocus, k.Star, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.NextTurn, k.PrevTurn, k.RailFocus, k.Jump, k.Star, k.ScrubBack, k.ScrubAhead},
		{k.Theme, k.NextConv, k.PrevConv, k.ToggleRail, k.Help, k.Quit},
	}
}
