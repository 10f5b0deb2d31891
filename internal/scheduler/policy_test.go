package scheduler

import (
	"testing"
	"time"
)

func TestManual_RunsInDueOrder(t *testing.T) {
	m := NewManual(time.Time{})
	var got []string

	m.After(30*time.Millisecond, func() { got = append(got, "c") })
	m.After(10*time.Millisecond, func() { got = append(got, "a") })
	m.After(10*time.Millisecond, func() { got = append(got, "b") })

	m.Advance(5 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("nothing should run before due, got %v", got)
	}

	m.Advance(50 * time.Millisecond)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestManual_CancelAndChainedTasks(t *testing.T) {
	m := NewManual(time.Time{})
	ran := 0

	cancel := m.After(time.Millisecond, func() { ran++ })
	cancel()
	cancel()

	m.Post(func() {
		m.Post(func() { ran += 10 })
	})
	m.Flush()

	if ran != 10 {
		t.Fatalf("ran = %d, want 10 (cancelled task skipped, chained post executed)", ran)
	}
	if m.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", m.Pending())
	}
}

func TestFrameCoalescer_TrailingOncePerFrame(t *testing.T) {
	m := NewManual(time.Time{})
	state := 0
	var seen []int

	c := NewFrameCoalescer(m, func() { seen = append(seen, state) })
	for i := 1; i <= 5; i++ {
		state = i
		c.Trigger()
	}
	if !c.Pending() {
		t.Fatal("expected a pending frame")
	}

	m.NextFrame()
	if len(seen) != 1 {
		t.Fatalf("expected exactly one run per frame, got %d", len(seen))
	}
	if seen[0] != 5 {
		t.Errorf("coalesced run saw state %d, want latest 5", seen[0])
	}

	c.Trigger()
	c.Stop()
	m.NextFrame()
	if len(seen) != 1 {
		t.Errorf("stopped frame must not run, got %d runs", len(seen))
	}
}

func TestDebouncer_TrailingEdge(t *testing.T) {
	m := NewManual(time.Time{})
	runs := 0
	d := NewDebouncer(m, 250*time.Millisecond, func() { runs++ })

	d.Trigger()
	m.Advance(200 * time.Millisecond)
	d.Trigger()
	m.Advance(200 * time.Millisecond)
	if runs != 0 {
		t.Fatalf("debouncer fired during burst: runs=%d", runs)
	}

	m.Advance(60 * time.Millisecond)
	if runs != 1 {
		t.Fatalf("runs = %d, want 1 after quiet period", runs)
	}
	if d.Pending() {
		t.Error("debouncer still pending after firing")
	}
}

func TestPoller(t *testing.T) {
	t.Run("succeeds when check flips", func(t *testing.T) {
		m := NewManual(time.Time{})
		p := NewPoller(m, 0, time.Second)
		attempts := 0
		var result *bool

		p.Start(func() bool {
			attempts++
			return attempts == 3
		}, func(ok bool) { result = &ok })

		m.NextFrame()
		m.NextFrame()
		if result == nil || !*result {
			t.Fatalf("expected success after 3 attempts, got %v (attempts=%d)", result, attempts)
		}
		if p.Active() {
			t.Error("poller still active after success")
		}
	})

	t.Run("times out", func(t *testing.T) {
		m := NewManual(time.Time{})
		p := NewPoller(m, 100*time.Millisecond, 350*time.Millisecond)
		var result *bool
		p.Start(func() bool { return false }, func(ok bool) { result = &ok })

		m.Advance(time.Second)
		if result == nil || *result {
			t.Fatalf("expected timeout result false, got %v", result)
		}
	})

	t.Run("stop abandons without callback", func(t *testing.T) {
		m := NewManual(time.Time{})
		p := NewPoller(m, 0, time.Second)
		called := false
		p.Start(func() bool { return false }, func(bool) { called = true })
		p.Stop()
		m.Advance(2 * time.Second)
		if called {
			t.Error("done called after Stop")
		}
	})
}

func TestLoop_TasksDeliverTimersAndPosts(t *testing.T) {
	l := NewLoop(WithFrameInterval(time.Millisecond))
	defer l.Close()

	order := make([]string, 0, 3)
	l.Post(func() { order = append(order, "post") })
	l.Frame(func() { order = append(order, "frame") })
	l.After(50*time.Millisecond, func() { order = append(order, "after") })
	skipped := l.After(time.Millisecond, func() { order = append(order, "cancelled") })
	skipped()

	deadline := time.After(2 * time.Second)
	for len(order) < 3 {
		select {
		case fn := <-l.Tasks():
			fn()
		case <-deadline:
			t.Fatalf("timed out, ran %v", order)
		}
	}

	if order[0] != "post" || order[2] != "after" {
		t.Errorf("unexpected order %v", order)
	}
}
