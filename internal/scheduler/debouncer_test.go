package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDebouncer_TrailingEdge(t *testing.T) {
	clock := NewManualClock(epoch)
	d := NewDebouncer(clock)
	var runs int32

	for i := 0; i < 5; i++ {
		d.Schedule("reservations", time.Second, func() { atomic.AddInt32(&runs, 1) })
		clock.Advance(500 * time.Millisecond)
	}
	if got := atomic.LoadInt32(&runs); got != 0 {
		t.Fatalf("task ran %d times during the burst", got)
	}
	if !d.Pending("reservations") {
		t.Fatalf("expected a pending task")
	}

	clock.Advance(time.Second)
	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("expected exactly one run after the quiet period, got %d", got)
	}
	if d.Pending("reservations") {
		t.Fatalf("task should no longer be pending")
	}
}

func TestDebouncer_KeysAreIndependent(t *testing.T) {
	clock := NewManualClock(epoch)
	d := NewDebouncer(clock)
	var order []string

	d.Schedule("expenses", 2*time.Second, func() { order = append(order, "expenses") })
	d.Schedule("settings", time.Second, func() { order = append(order, "settings") })
	if keys := d.PendingKeys(); len(keys) != 2 || keys[0] != "expenses" || keys[1] != "settings" {
		t.Fatalf("unexpected pending keys %v", keys)
	}

	clock.Advance(3 * time.Second)
	if len(order) != 2 || order[0] != "settings" || order[1] != "expenses" {
		t.Fatalf("unexpected run order %v", order)
	}
}

func TestDebouncer_CancelAndClose(t *testing.T) {
	clock := NewManualClock(epoch)
	d := NewDebouncer(clock)
	ran := false

	d.Schedule("taxes", time.Second, func() { ran = true })
	if !d.Cancel("taxes") {
		t.Fatalf("expected Cancel to find the task")
	}
	if d.Cancel("taxes") {
		t.Fatalf("second Cancel should find nothing")
	}

	d.Schedule("a", time.Second, func() { ran = true })
	d.Schedule("b", time.Second, func() { ran = true })
	if n := d.CancelAll(); n != 2 {
		t.Fatalf("expected 2 cancelled tasks, got %d", n)
	}

	d.Close()
	d.Schedule("c", time.Second, func() { ran = true })
	clock.Advance(time.Minute)
	if ran {
		t.Fatalf("no task should have run")
	}
	if clock.Pending() != 0 {
		t.Fatalf("expected no live timers, got %d", clock.Pending())
	}
}

func TestDebouncer_SystemClock(t *testing.T) {
	d := NewDebouncer(nil)
	done := make(chan struct{})
	d.Schedule("k", 10*time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("task did not run")
	}
}
