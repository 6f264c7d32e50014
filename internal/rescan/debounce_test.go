package rescan

import (
	"sync/atomic"
	"testing"
	"time"
)

// eventually polls cond until it returns true or the timeout expires.
func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestDebouncer_CollapsesBurst(t *testing.T) {
	var runs atomic.Int32
	d := New(50*time.Millisecond, func() { runs.Add(1) })
	defer d.Close()

	for range 5 {
		d.OnExternalChange()
		time.Sleep(10 * time.Millisecond)
	}
	if st, deadline := d.State(); st != Pending || deadline.IsZero() {
		t.Fatalf("state = %v, deadline %v; want pending", st, deadline)
	}
	eventually(t, time.Second, func() bool { return runs.Load() == 1 })

	time.Sleep(100 * time.Millisecond)
	if n := runs.Load(); n != 1 {
		t.Errorf("runs = %d, want 1", n)
	}
	if st, _ := d.State(); st != Idle {
		t.Errorf("state after firing = %v, want idle", st)
	}
}

func TestDebouncer_DeadlineMovesBack(t *testing.T) {
	d := New(time.Hour, func() {})
	defer d.Close()
	d.OnExternalChange()
	_, first := d.State()
	time.Sleep(2 * time.Millisecond)
	d.OnExternalChange()
	_, second := d.State()
	if !second.After(first) {
		t.Errorf("deadline did not move: %v then %v", first, second)
	}
}

func TestDebouncer_CancelPending(t *testing.T) {
	var runs atomic.Int32
	d := New(30*time.Millisecond, func() { runs.Add(1) })
	defer d.Close()

	if d.CancelPending() {
		t.Error("cancel on idle reported pending")
	}
	d.OnExternalChange()
	if !d.CancelPending() {
		t.Fatal("cancel did not report pending")
	}
	time.Sleep(80 * time.Millisecond)
	if n := runs.Load(); n != 0 {
		t.Errorf("runs = %d after cancel, want 0", n)
	}
}

func TestDebouncer_Flush(t *testing.T) {
	var runs atomic.Int32
	d := New(time.Hour, func() { runs.Add(1) })
	defer d.Close()

	if d.Flush() {
		t.Error("flush on idle reported pending")
	}
	d.OnExternalChange()
	if !d.Flush() {
		t.Fatal("flush did not report pending")
	}
	if n := runs.Load(); n != 1 {
		t.Errorf("runs = %d after flush, want 1", n)
	}
	if st, _ := d.State(); st != Idle {
		t.Errorf("state after flush = %v", st)
	}
}

func TestDebouncer_ClosedIgnoresChanges(t *testing.T) {
	var runs atomic.Int32
	d := New(10*time.Millisecond, func() { runs.Add(1) })
	d.Close()
	d.OnExternalChange()
	time.Sleep(40 * time.Millisecond)
	if n := runs.Load(); n != 0 {
		t.Errorf("runs = %d after close, want 0", n)
	}
}

func TestNew_DefaultQuiet(t *testing.T) {
	d := New(0, func() {})
	if d.quiet != DefaultQuiet {
		t.Errorf("quiet = %v, want %v", d.quiet, DefaultQuiet)
	}
}
