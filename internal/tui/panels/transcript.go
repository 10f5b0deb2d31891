package panels

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/Dicklesworthstone/chatrail/internal/host"
	"github.com/Dicklesworthstone/chatrail/internal/transcript"
	"github.com/Dicklesworthstone/chatrail/internal/tui/theme"
)

func transcriptConfig() PanelConfig {
	return PanelConfig{
		ID:        "transcript",
		Title:     "Conversation",
		MinWidth:  8,
		MinHeight: 1,
	}
}

// TranscriptPanel shows the document rows through a viewport. The document
// owns the scroll position; the viewport only mirrors it.
type TranscriptPanel struct {
	PanelBase
	styles  theme.Styles
	vp      viewport.Model
	version int
}

// NewTranscriptPanel creates the panel.
func NewTranscriptPanel(styles theme.Styles) *TranscriptPanel {
	return &TranscriptPanel{
		PanelBase: NewPanelBase(transcriptConfig()),
		styles:    styles,
		vp:        viewport.New(0, 0),
		version:   -1,
	}
}

// SetSize implements Panel.
func (p *TranscriptPanel) SetSize(width, height int) {
	p.PanelBase.SetSize(width, height)
	p.vp.Width = p.Width()
	p.vp.Height = p.Height()
}

// SetStyles switches palettes; the content is restyled on the next Sync.
func (p *TranscriptPanel) SetStyles(s theme.Styles) {
	p.styles = s
	p.version = -1
}

// Sync copies the document's rows and scroll position into the viewport.
func (p *TranscriptPanel) Sync(doc *host.Document) {
	if v := doc.Version(); v != p.version {
		p.vp.SetContent(p.render(doc.Lines()))
		p.version = v
	}
	p.vp.SetYOffset(doc.ScrollRow())
}

// YOffset returns the first row shown.
func (p *TranscriptPanel) YOffset() int { return p.vp.YOffset }

func (p *TranscriptPanel) render(lines []host.Line) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch {
		case l.Header && l.Role == transcript.RoleUser:
			b.WriteString(p.styles.UserHeader.Render("▌ " + l.Text))
		case l.Header:
			b.WriteString(p.styles.AssistantHeader.Render("▌ " + l.Text))
		case l.Text == "":
		default:
			b.WriteString(p.styles.Body.Render("  " + l.Text))
		}
	}
	return b.String()
}

// View implements Panel.
func (p *TranscriptPanel) View() string {
	return FitToHeight(p.vp.View(), p.Height())
}
