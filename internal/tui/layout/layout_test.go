package layout

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTierForWidth(t *testing.T) {
	t.Parallel()
	tests := []struct {
		width int
		want  Tier
	}{
		{0, TierNarrow},
		{59, TierNarrow},
		{60, TierNormal},
		{119, TierNormal},
		{120, TierWide},
		{400, TierWide},
	}

	for _, tt := range tests {
		if got := TierForWidth(tt.width); got != tt.want {
			t.Errorf("TierForWidth(%d) = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestTooltipWidth(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		want int
	}{
		{"", TooltipMin},
		{"short", TooltipMin},
		{"exactly twenty chars", 22},
		{"a very long summary that will not fit", TooltipMax},
		{"你好你好你好你好你好", 22},
	}
	for _, tt := range tests {
		if got := TooltipWidth(tt.text); got != tt.want {
			t.Errorf("TooltipWidth(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()
	r := Split(100, 30, 3)
	if r.TranscriptWidth != 97 || r.RailWidth != 3 || r.BodyHeight != 29 || r.Tier != TierNormal {
		t.Errorf("Split(100,30,3) = %+v", r)
	}
	r = Split(4, 1, 3)
	if r.RailWidth != 1 || r.TranscriptWidth != 3 || r.BodyHeight != 1 {
		t.Errorf("tiny terminal = %+v", r)
	}
}

func TestTruncateWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		s        string
		maxWidth int
		suffix   string
	}{
		{"fits unchanged", "hello", 10, "..."},
		{"empty string", "", 10, "..."},
		{"zero maxWidth", "hello", 0, "..."},
		{"negative maxWidth", "hello", -1, "..."},
		{"exact fit", "hi", 2, "..."},
		{"wide runes", "你好世界你好世界", 7, "…"},
		{"suffix too wide", "hello world", 2, "..."},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TruncateWidth(tt.s, tt.maxWidth, tt.suffix)
			if tt.maxWidth <= 0 {
				if got != "" {
					t.Errorf("TruncateWidth(%q, %d, %q) = %q, want empty", tt.s, tt.maxWidth, tt.suffix, got)
				}
				return
			}
			if w := lipgloss.Width(got); w > tt.maxWidth {
				t.Errorf("TruncateWidth(%q, %d, %q) = %q (width=%d), exceeds max", tt.s, tt.maxWidth, tt.suffix, got, w)
			}
		})
	}
}

func TestTruncateWidthDefault(t *testing.T) {
	t.Parallel()
	if got := TruncateWidthDefault("hello world this is long", 10); got != "hello wor…" {
		t.Errorf("got %q", got)
	}
	if got := TruncateWidthDefault("hi", 10); got != "hi" {
		t.Errorf("short input changed: %q", got)
	}
}

func TestTruncateMiddle(t *testing.T) {
	t.Parallel()
	tests := []struct {
		s    string
		max  int
		want string
	}{
		{"abcdefghij", 7, "abc…hij"},
		{"abcdefghij", 10, "abcdefghij"},
		{"abcdefghij", 2, "ab"},
		{"abcdefghij", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateMiddle(tt.s, tt.max); got != tt.want {
			t.Errorf("TruncateMiddle(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
		}
	}
}

func TestPadRight(t *testing.T) {
	t.Parallel()
	if got := PadRight("ab", 4); got != "ab  " {
		t.Errorf("PadRight = %q", got)
	}
	if got := PadRight("你好", 4); got != "你好" {
		t.Errorf("wide runes already fill the width: %q", got)
	}
}
