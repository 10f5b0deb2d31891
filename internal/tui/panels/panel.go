// Package panels contains the viewer's screen regions.
package panels

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// Keybinding is a panel-specific shortcut shown in the help bar.
type Keybinding struct {
	Key         key.Binding
	Description string
	Action      string
}

// PanelConfig holds static panel properties.
type PanelConfig struct {
	// ID is a unique identifier, also used as the bubblezone prefix.
	ID    string
	Title string

	// MinWidth and MinHeight are the smallest sizes the panel renders at.
	MinWidth  int
	MinHeight int
}

// Panel is a sized, focusable screen region.
type Panel interface {
	SetSize(width, height int)
	Focus()
	Blur()
	Config() PanelConfig
	Keybindings() []Keybinding
	View() string
}

// PanelBase provides the common Panel bookkeeping. Embed it in concrete panels.
type PanelBase struct {
	config  PanelConfig
	width   int
	height  int
	focused bool
}

// NewPanelBase creates a PanelBase.
func NewPanelBase(cfg PanelConfig) PanelBase {
	return PanelBase{config: cfg}
}

// SetSize implements Panel.
func (b *PanelBase) SetSize(width, height int) {
	b.width = max(width, b.config.MinWidth)
	b.height = max(height, b.config.MinHeight)
}

func (b *PanelBase) Focus()              { b.focused = true }
func (b *PanelBase) Blur()               { b.focused = false }
func (b *PanelBase) Config() PanelConfig { return b.config }
func (b *PanelBase) IsFocused() bool     { return b.focused }
func (b *PanelBase) Width() int          { return b.width }
func (b *PanelBase) Height() int         { return b.height }

// Keybindings returns nothing by default.
func (b *PanelBase) Keybindings() []Keybinding { return nil }

// FitToHeight makes content exactly targetHeight lines, truncating or padding.
func FitToHeight(content string, targetHeight int) string {
	if targetHeight <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) > targetHeight {
		lines = lines[:targetHeight]
	}
	for len(lines) < targetHeight {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
