// Package rescan collapses bursts of store change notifications into a
// single rescan.
package rescan

import (
	"sync"
	"time"
)

// DefaultQuiet is the quiet window used when none is configured.
const DefaultQuiet = time.Second

// State of a Debouncer.
type State int

const (
	Idle State = iota
	Pending
)

func (s State) String() string {
	if s == Pending {
		return "pending"
	}
	return "idle"
}

// Debouncer runs fn once after change notifications stop arriving for the
// quiet window. Every notification while pending pushes the deadline back.
type Debouncer struct {
	quiet time.Duration
	fn    func()

	mu       sync.Mutex
	timer    *time.Timer
	deadline time.Time
	gen      uint64
	closed   bool
}

// New returns an idle Debouncer. A non-positive quiet uses DefaultQuiet.
func New(quiet time.Duration, fn func()) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Debouncer{quiet: quiet, fn: fn}
}

// OnExternalChange records a change and (re)schedules the rescan.
func (d *Debouncer) OnExternalChange() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.stopLocked()
	d.gen++
	gen := d.gen
	d.deadline = time.Now().Add(d.quiet)
	d.timer = time.AfterFunc(d.quiet, func() { d.fire(gen) })
}

// CancelPending drops a scheduled rescan. It reports whether one was pending.
func (d *Debouncer) CancelPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked()
}

// Flush runs a pending rescan now, on the calling goroutine. It reports
// whether one was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	pending := d.stopLocked()
	d.mu.Unlock()
	if pending {
		d.fn()
	}
	return pending
}

// State returns the current state and, when pending, the deadline.
func (d *Debouncer) State() (State, time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return Idle, time.Time{}
	}
	return Pending, d.deadline
}

// Close cancels any pending rescan and ignores further notifications.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.closed = true
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.deadline = time.Time{}
	d.mu.Unlock()
	d.fn()
}

// stopLocked moves to idle. The generation bump makes a timer that already
// fired but has not taken the lock yet a no-op.
func (d *Debouncer) stopLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.deadline = time.Time{}
	d.gen++
	return true
}
