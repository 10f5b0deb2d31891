package timeline

import (
	"testing"
	"time"

	"github.com/Dicklesworthstone/chatrail/internal/scheduler"
)

type recordedGestures struct {
	navigated []string
	toggled   []string
	scrubbed  []int
}

func (r *recordedGestures) Navigate(h string)       { r.navigated = append(r.navigated, h) }
func (r *recordedGestures) ToggleBookmark(h string) { r.toggled = append(r.toggled, h) }
func (r *recordedGestures) Scrub(d int)             { r.scrubbed = append(r.scrubbed, d) }

func newTestGestures() (*Gestures, *scheduler.Manual, *recordedGestures) {
	m := scheduler.NewManual(time.Time{})
	rec := &recordedGestures{}
	return NewGestures(m, DefaultGestures(), rec), m, rec
}

func TestGestures_TapNavigates(t *testing.T) {
	g, m, rec := newTestGestures()
	g.PointerDown("u-a-1", 10, 10, true)
	m.Advance(200 * time.Millisecond)
	g.PointerUp()
	g.Click("u-a-1")
	m.Advance(time.Second)

	if len(rec.navigated) != 1 || rec.navigated[0] != "u-a-1" {
		t.Errorf("navigated = %v", rec.navigated)
	}
	if len(rec.toggled) != 0 {
		t.Errorf("tap must not toggle, got %v", rec.toggled)
	}
}

func TestGestures_LongPressTogglesAndSuppressesClick(t *testing.T) {
	g, m, rec := newTestGestures()
	g.PointerDown("u-a-1", 10, 10, true)
	if !g.Holding() || g.HoldingHandle() != "u-a-1" {
		t.Fatal("press should be holding")
	}
	m.Advance(550 * time.Millisecond)
	if len(rec.toggled) != 1 {
		t.Fatalf("toggled = %v", rec.toggled)
	}
	g.PointerUp()
	g.Click("u-a-1")
	if len(rec.navigated) != 0 {
		t.Error("click right after a long press must be suppressed")
	}
	g.Click("u-b-1")
	if len(rec.navigated) != 1 {
		t.Error("suppression applies to the pressed item only")
	}

	m.Advance(400 * time.Millisecond)
	g.Click("u-a-1")
	if len(rec.navigated) != 2 {
		t.Error("click after the suppression window should navigate")
	}
}

func TestGestures_MovementCancels(t *testing.T) {
	g, m, rec := newTestGestures()
	g.PointerDown("u-a-1", 10, 10, true)
	g.PointerMove(14, 14) // 32 <= 36
	if !g.Holding() {
		t.Fatal("movement within tolerance must keep the press")
	}
	g.PointerMove(15, 15) // 50 > 36
	if g.Holding() {
		t.Fatal("movement past tolerance must cancel")
	}
	m.Advance(time.Second)
	if len(rec.toggled) != 0 {
		t.Errorf("cancelled press toggled %v", rec.toggled)
	}
}

func TestGestures_NewPressReplacesOld(t *testing.T) {
	g, m, rec := newTestGestures()
	g.PointerDown("u-a-1", 0, 0, true)
	m.Advance(300 * time.Millisecond)
	g.PointerDown("u-b-1", 0, 0, true)
	m.Advance(300 * time.Millisecond)
	if len(rec.toggled) != 0 {
		t.Fatalf("first timer should have been cancelled, toggled %v", rec.toggled)
	}
	m.Advance(300 * time.Millisecond)
	if len(rec.toggled) != 1 || rec.toggled[0] != "u-b-1" {
		t.Errorf("toggled = %v", rec.toggled)
	}
	if m.Pending() != 0 {
		t.Errorf("only one timer may be outstanding, %d pending", m.Pending())
	}
}

func TestGestures_IgnoresSecondaryButtonAndEmptyHandles(t *testing.T) {
	g, m, rec := newTestGestures()
	g.PointerDown("u-a-1", 0, 0, false)
	g.PointerDown("", 0, 0, true)
	m.Advance(time.Second)
	g.Click("")
	if g.Holding() || len(rec.toggled)+len(rec.navigated) != 0 {
		t.Error("secondary buttons and empty handles must be ignored")
	}
}

func TestGestures_Wheel(t *testing.T) {
	g, _, rec := newTestGestures()
	g.Wheel(1)
	g.Wheel(-2)
	g.Wheel(0)
	if len(rec.scrubbed) != 2 || rec.scrubbed[0] != 3 || rec.scrubbed[1] != -6 {
		t.Errorf("scrubbed = %v", rec.scrubbed)
	}
}
