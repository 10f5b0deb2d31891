package timeline

import (
	"fmt"
	"testing"
)

func makeMarkers(n int) []Marker {
	ms := make([]Marker, n)
	for i := range ms {
		ms[i] = Marker{ID: fmt.Sprintf("u-m%d-1", i), Summary: fmt.Sprintf("turn %d", i), Offset: float64(i * 100)}
		if n > 1 {
			ms[i].N = float64(i) / float64(n-1)
		}
	}
	return ms
}

func coverage(t *testing.T, items []RailItem, n int) {
	t.Helper()
	seen := make([]int, n)
	for _, it := range items {
		if len(it.Members) == 0 {
			t.Fatalf("item %q has no members", it.Handle)
		}
		for _, m := range it.Members {
			seen[m]++
		}
	}
	for i, c := range seen {
		if c != 1 {
			t.Fatalf("marker %d covered %d times", i, c)
		}
	}
	prev := -1
	for _, it := range items {
		for _, m := range it.Members {
			if m != prev+1 {
				t.Fatalf("items out of marker order at %d", m)
			}
			prev = m
		}
	}
}

func TestLayout_SimpleScenario(t *testing.T) {
	t.Parallel()
	opts := DefaultLayout()
	bar := barFor(10)
	if got := opts.Capacity(bar); got != 10 {
		t.Fatalf("Capacity = %d, want 10", got)
	}

	markers := makeMarkers(3)
	items, win := Layout(markers, bar, FocusState{Scrub: -1, Active: -1}, opts)
	if win != NoFocus {
		t.Errorf("simple mode window = %+v", win)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items", len(items))
	}
	for i, it := range items {
		if it.Kind != Individual {
			t.Errorf("item %d kind = %v", i, it.Kind)
		}
	}
	offsets := []float64{items[0].Offset, items[1].Offset, items[2].Offset}
	checkSpacing(t, offsets, 14, bar-14, 14)
	if offsets[0] != 14 || offsets[2] != bar-14 {
		t.Errorf("endpoints = %v", offsets)
	}
}

func TestLayout_FisheyeScenario(t *testing.T) {
	t.Parallel()
	opts := DefaultLayout()
	markers := makeMarkers(50)

	tests := []struct {
		capacity   int
		active     int
		start, end int
	}{
		{14, 25, 19, 30}, // twelve focus slots
		{12, 25, 20, 29}, // ten focus slots
		{14, 0, 0, 11},
		{14, 49, 38, 49},
		{14, 3, 0, 11},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("cap%d_active%d", tt.capacity, tt.active), func(t *testing.T) {
			bar := barFor(tt.capacity)
			items, win := Layout(markers, bar, FocusState{Scrub: -1, Active: tt.active}, opts)
			t.Logf("TIMELINE_TEST: window=%+v items=%d", win, len(items))
			if win.Start != tt.start || win.End != tt.end {
				t.Fatalf("window = [%d,%d], want [%d,%d]", win.Start, win.End, tt.start, tt.end)
			}
			if got := win.End - win.Start + 1; got != tt.capacity-2 {
				t.Errorf("window holds %d markers, want the full %d slots", got, tt.capacity-2)
			}
			coverage(t, items, len(markers))

			if tt.start > 0 {
				first := items[0]
				if first.Kind != Aggregate || first.End != AnchorTop || first.Members[0] != 0 || first.Members[len(first.Members)-1] != tt.start-1 {
					t.Errorf("bad leading aggregate %+v", first)
				}
			} else if items[0].Kind != Individual {
				t.Error("window at the top must not have a leading aggregate")
			}
			if tt.end < 49 {
				last := items[len(items)-1]
				if last.Kind != Aggregate || last.End != AnchorBottom || last.Members[0] != tt.end+1 {
					t.Errorf("bad trailing aggregate %+v", last)
				}
			}

			offsets := make([]float64, len(items))
			for i := range items {
				offsets[i] = items[i].Offset
			}
			checkSpacing(t, offsets, opts.Pad, bar-opts.Pad, opts.MinGap)
		})
	}
}

func TestLayout_ModeSwitchBoundary(t *testing.T) {
	t.Parallel()
	opts := DefaultLayout()
	for _, k := range []int{3, 10, 25} {
		bar := barFor(k)
		_, win := Layout(makeMarkers(k), bar, FocusState{Scrub: -1, Active: 0}, opts)
		if win.Active() {
			t.Errorf("k=%d: %d markers should be simple mode", k, k)
		}
		_, win = Layout(makeMarkers(k+1), bar, FocusState{Scrub: -1, Active: 0}, opts)
		if !win.Active() {
			t.Errorf("k=%d: %d markers should be fisheye mode", k, k+1)
		}
	}
}

func TestLayout_CoverageForEveryCenter(t *testing.T) {
	t.Parallel()
	opts := DefaultLayout()
	markers := makeMarkers(40)
	bar := barFor(9)
	for c := -1; c <= 40; c++ {
		items, win := Layout(markers, bar, FocusState{Scrub: -1, Active: c}, opts)
		coverage(t, items, len(markers))
		if c >= 0 && c < 40 && !win.Contains(c) {
			t.Errorf("active %d outside window %+v", c, win)
		}
	}
}

func TestLayout_ScrubWinsOverActive(t *testing.T) {
	t.Parallel()
	markers := makeMarkers(50)
	_, win := Layout(markers, barFor(14), FocusState{Scrub: 40, Active: 5}, DefaultLayout())
	if !win.Contains(40) || win.Contains(5) {
		t.Errorf("window %+v should follow the scrub index", win)
	}
	_, win = Layout(markers, barFor(14), FocusState{Scrub: 99, Active: 5}, DefaultLayout())
	if !win.Contains(5) {
		t.Errorf("out-of-range scrub must fall back to active, got %+v", win)
	}
}

func TestLayout_AggregateStateAndHandles(t *testing.T) {
	t.Parallel()
	markers := makeMarkers(30)
	markers[2].Starred = true
	items, win := Layout(markers, barFor(8), FocusState{Scrub: -1, Active: 20}, DefaultLayout())

	top := items[0]
	if top.Handle != HandleBefore || !top.Starred {
		t.Errorf("leading aggregate should be starred through member 2: %+v", top)
	}
	if top.Summary != "turn 0" {
		t.Errorf("aggregate summary = %q", top.Summary)
	}
	if got := top.Label(); got != fmt.Sprintf("★ turn 0 (+%d more)", len(top.Members)-1) {
		t.Errorf("Label = %q", got)
	}
	bottom := items[len(items)-1]
	if bottom.Starred {
		t.Error("trailing aggregate has no starred member")
	}
	for i := range markers {
		want := markers[i].ID
		switch {
		case i < win.Start:
			want = HandleBefore
		case i > win.End:
			want = HandleAfter
		}
		if markers[i].RailHandle != want {
			t.Errorf("marker %d RailHandle = %q, want %q", i, markers[i].RailHandle, want)
		}
	}

	RefreshStarred(markers, items, func(id string) bool { return id == markers[29].ID })
	if items[0].Starred || !items[len(items)-1].Starred {
		t.Error("RefreshStarred should recompute aggregate flags")
	}
}

func TestLayout_DegenerateOffsets(t *testing.T) {
	t.Parallel()
	markers := makeMarkers(20)
	for i := range markers {
		markers[i].N = 0
	}
	opts := DefaultLayout()
	bar := barFor(6)
	items, _ := Layout(markers, bar, FocusState{Scrub: -1, Active: 10}, opts)
	for _, it := range items {
		if it.Offset < opts.Pad || it.Offset > bar-opts.Pad {
			t.Errorf("offset %v out of bounds", it.Offset)
		}
	}
	if items, win := Layout(nil, bar, FocusState{}, opts); items != nil || win != NoFocus {
		t.Error("no markers should give no items")
	}
}

func TestLayout_TinyBar(t *testing.T) {
	t.Parallel()
	opts := DefaultLayout()
	items, win := Layout(makeMarkers(10), 5, FocusState{Scrub: -1, Active: 4}, opts)
	if opts.Capacity(5) != 1 {
		t.Fatalf("capacity of a tiny bar = %d", opts.Capacity(5))
	}
	if win.Start != 4 || win.End != 4 {
		t.Errorf("single-slot window = %+v", win)
	}
	coverage(t, items, 10)
}
