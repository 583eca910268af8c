// Package listening tracks the window during which a finalized utterance is
// treated as a follow-up command rather than ambient speech.
package listening

import (
	"sync"
	"time"
)

// Window is a deadline-based listening flag. Arm opens the window for the
// configured duration and ExpireNow closes it immediately; IsListening is
// a lazy timestamp comparison. Expiry is additionally observed through a
// cancellable timer so it can be reported even when no event arrives to
// check the deadline.
type Window struct {
	duration time.Duration
	now      func() time.Time
	onExpire func()

	mu    sync.Mutex
	until time.Time
	timer *time.Timer
}

// NewWindow creates a window that listens for duration after each Arm.
// now may be nil to use the wall clock; onExpire may be nil to skip
// expiry reporting.
func NewWindow(duration time.Duration, now func() time.Time, onExpire func()) *Window {
	if now == nil {
		now = time.Now
	}
	return &Window{
		duration: duration,
		now:      now,
		onExpire: onExpire,
	}
}

// Arm opens the window until now+duration. The deadline only ever moves
// forward; re-arming during an open window extends it.
func (w *Window) Arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	until := w.now().Add(w.duration)
	if until.After(w.until) {
		w.until = until
	}
	w.scheduleExpiryLocked()
}

// IsListening reports whether the window is currently open.
func (w *Window) IsListening() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.now().Before(w.until)
}

// Deadline returns the current expiry timestamp.
func (w *Window) Deadline() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.until
}

// ExpireNow closes the window immediately. Used when speech output begins,
// so the device does not transcribe its own voice as a command, and when a
// cancel keyword is heard.
func (w *Window) ExpireNow() {
	w.mu.Lock()
	wasListening := w.now().Before(w.until)
	w.until = w.now()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	if wasListening && w.onExpire != nil {
		w.onExpire()
	}
}

// scheduleExpiryLocked restarts the expiry timer for the current deadline.
// The timer only reports; IsListening stays a pure timestamp comparison.
func (w *Window) scheduleExpiryLocked() {
	if w.onExpire == nil {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.until.Sub(w.now()), w.reportExpiry)
}

func (w *Window) reportExpiry() {
	w.mu.Lock()
	expired := !w.now().Before(w.until)
	if expired {
		w.timer = nil
	}
	w.mu.Unlock()
	if expired {
		w.onExpire()
	}
}
