package panels

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/chatrail/internal/host"
	"github.com/Dicklesworthstone/chatrail/internal/timeline"
	"github.com/Dicklesworthstone/chatrail/internal/transcript"
	"github.com/Dicklesworthstone/chatrail/internal/tui/theme"
)

func sampleView() timeline.RailView {
	return timeline.RailView{
		ConversationID: "abc",
		Items: []timeline.RailItem{
			{Kind: timeline.Individual, Handle: "m0", Members: []int{0}, Offset: 14, Summary: "first question"},
			{Kind: timeline.Individual, Handle: "m1", Members: []int{1}, Offset: 140, Summary: "second question", Active: true},
			{Kind: timeline.Individual, Handle: "m2", Members: []int{2}, Offset: 266, Summary: "third question", Starred: true},
		},
		ActiveID:    "m1",
		ActiveIndex: 1,
		Total:       3,
	}
}

func TestPanelBase_SetSizeClamps(t *testing.T) {
	b := NewPanelBase(PanelConfig{ID: "x", MinWidth: 4, MinHeight: 2})
	b.SetSize(1, 1)
	if b.Width() != 4 || b.Height() != 2 {
		t.Errorf("size = %dx%d, want 4x2", b.Width(), b.Height())
	}
	b.SetSize(10, 5)
	if b.Width() != 10 || b.Height() != 5 {
		t.Errorf("size = %dx%d, want 10x5", b.Width(), b.Height())
	}
}

func TestFitToHeight(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		height int
		want   int
	}{
		{"pad", "a\nb", 4, 4},
		{"truncate", "a\nb\nc\nd", 2, 2},
		{"exact", "a", 1, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FitToHeight(tc.in, tc.height)
			if n := len(strings.Split(got, "\n")); n != tc.want {
				t.Errorf("lines = %d, want %d", n, tc.want)
			}
		})
	}
	if FitToHeight("a", 0) != "" {
		t.Error("zero height should render nothing")
	}
}

func TestRailPanel_RendersItemsOnRows(t *testing.T) {
	r := NewRailPanel(theme.Mocha().Styles(), nil)
	r.SetSize(3, 20)
	if got := r.BarHeight(); got != 20*host.RowHeight {
		t.Fatalf("BarHeight = %v, want %v", got, 20*host.RowHeight)
	}

	r.Render(sampleView())
	if !r.Visible() {
		t.Fatal("rail should be visible after Render")
	}
	t.Logf("RAIL_TEST: rows=%d items=%d", r.Height(), len(r.RailView().Items))

	lines := strings.Split(r.View(), "\n")
	if len(lines) != 20 {
		t.Fatalf("lines = %d, want 20", len(lines))
	}
	for i, l := range lines {
		if w := lipgloss.Width(l); w != 3 {
			t.Errorf("line %d width = %d, want 3", i, w)
		}
	}
	if !strings.Contains(lines[1], "•") {
		t.Errorf("row 1 = %q, want plain marker", lines[1])
	}
	if !strings.Contains(lines[10], "●") {
		t.Errorf("row 10 = %q, want active marker", lines[10])
	}
	if !strings.Contains(lines[19], "★") {
		t.Errorf("row 19 = %q, want starred marker", lines[19])
	}
	if !strings.Contains(lines[5], "│") {
		t.Errorf("row 5 = %q, want track", lines[5])
	}

	it, ok := r.ItemAt(10)
	if !ok || it.Handle != "m1" {
		t.Errorf("ItemAt(10) = %q, %v", it.Handle, ok)
	}
	if _, ok := r.ItemAt(4); ok {
		t.Error("ItemAt(4) should be empty")
	}

	r.Clear()
	if r.Visible() || len(r.RailView().Items) != 0 {
		t.Error("Clear should drop the view")
	}
	if strings.ContainsAny(r.View(), "•●★") {
		t.Error("cleared rail should draw only the track")
	}
}

func TestRailPanel_RowClamps(t *testing.T) {
	r := NewRailPanel(theme.Latte().Styles(), nil)
	r.SetSize(1, 10)
	tests := []struct {
		offset float64
		want   int
	}{
		{-20, 0},
		{0, 0},
		{6, 0},
		{8, 1},
		{28, 2},
		{1000, 9},
	}
	for _, tc := range tests {
		if got := r.Row(tc.offset); got != tc.want {
			t.Errorf("Row(%v) = %d, want %d", tc.offset, got, tc.want)
		}
	}
}

func TestRailPanel_CursorAndTooltip(t *testing.T) {
	r := NewRailPanel(theme.Mocha().Styles(), nil)
	r.SetSize(3, 20)
	r.Render(sampleView())

	if _, _, ok := r.Tooltip(); ok {
		t.Error("no tooltip without hover or focus")
	}

	r.SetHover("m2")
	label, row, ok := r.Tooltip()
	if !ok || row != 19 || label != "★ third question" {
		t.Errorf("hover tooltip = %q row %d ok %v", label, row, ok)
	}

	r.Focus()
	it, ok := r.Cursor()
	if !ok || it.Handle != "m1" {
		t.Fatalf("focus should start on the active item, got %q %v", it.Handle, ok)
	}
	label, _, _ = r.Tooltip()
	if label != "second question" {
		t.Errorf("focused item wins over hover, got %q", label)
	}

	r.MoveCursor(-1)
	r.MoveCursor(-1)
	if it, _ := r.Cursor(); it.Handle != "m0" {
		t.Errorf("cursor clamps at the first item, got %q", it.Handle)
	}
	r.MoveCursor(5)
	if it, _ := r.Cursor(); it.Handle != "m2" {
		t.Errorf("cursor clamps at the last item, got %q", it.Handle)
	}

	r.Blur()
	if _, ok := r.Cursor(); ok {
		t.Error("blurred rail has no cursor")
	}
}

func TestRailPanel_RenderTooltipWidth(t *testing.T) {
	r := NewRailPanel(theme.Mocha().Styles(), nil)
	tests := []struct {
		label string
		want  int
	}{
		{"hi", 16},
		{strings.Repeat("x", 20), 22},
		{strings.Repeat("y", 80), 28},
	}
	for _, tc := range tests {
		if got := lipgloss.Width(r.RenderTooltip(tc.label)); got != tc.want {
			t.Errorf("tooltip width for %d chars = %d, want %d", len(tc.label), got, tc.want)
		}
	}
}

func TestRailPanel_Aggregates(t *testing.T) {
	r := NewRailPanel(theme.Mocha().Styles(), nil)
	r.SetSize(1, 10)
	r.Render(timeline.RailView{Items: []timeline.RailItem{
		{Kind: timeline.Aggregate, Handle: timeline.HandleBefore, Members: []int{0, 1, 2}, Offset: 0, End: timeline.AnchorTop},
		{Kind: timeline.Aggregate, Handle: timeline.HandleAfter, Members: []int{7, 8}, Offset: 126, End: timeline.AnchorBottom},
	}})
	lines := strings.Split(r.View(), "\n")
	if !strings.Contains(lines[0], "▲") || !strings.Contains(lines[9], "▼") {
		t.Errorf("aggregate glyphs missing: first %q last %q", lines[0], lines[9])
	}

	r.Render(timeline.RailView{Items: []timeline.RailItem{
		{Kind: timeline.Aggregate, Handle: timeline.HandleBefore, Members: []int{0, 1, 2}, Offset: 0, End: timeline.AnchorTop, Starred: true},
		{Kind: timeline.Aggregate, Handle: timeline.HandleAfter, Members: []int{7, 8}, Offset: 126, End: timeline.AnchorBottom},
	}})
	lines = strings.Split(r.View(), "\n")
	if !strings.Contains(lines[0], "↟") || strings.Contains(lines[0], "▲") {
		t.Errorf("starred aggregate should use the starred glyph, got %q", lines[0])
	}
	if !strings.Contains(lines[9], "▼") {
		t.Errorf("unstarred aggregate glyph changed: %q", lines[9])
	}
}

func TestTranscriptPanel_SyncFollowsDocument(t *testing.T) {
	doc := host.New(host.WithSize(60, 8))
	var msgs []transcript.Message
	for i := 0; i < 6; i++ {
		msgs = append(msgs,
			transcript.Message{Role: transcript.RoleUser, Text: "question", Index: 2 * i},
			transcript.Message{Role: transcript.RoleAssistant, Text: "answer", Index: 2*i + 1},
		)
	}
	doc.Reset(msgs)

	p := NewTranscriptPanel(theme.Mocha().Styles())
	p.SetSize(60, 8)
	p.Sync(doc)

	view := p.View()
	if !strings.Contains(view, "You") || !strings.Contains(view, "question") {
		t.Errorf("view missing first turn:\n%s", view)
	}
	if n := len(strings.Split(view, "\n")); n != 8 {
		t.Errorf("view lines = %d, want 8", n)
	}

	doc.ScrollToRow(4)
	p.Sync(doc)
	if p.YOffset() != doc.ScrollRow() {
		t.Errorf("YOffset = %d, want %d", p.YOffset(), doc.ScrollRow())
	}
	t.Logf("TRANSCRIPT_TEST: rows=%d offset=%d", len(doc.Lines()), p.YOffset())
}
