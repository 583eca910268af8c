package listening

import (
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock advances only when told to, so deadline math is exact.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 7, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestArm_ListensForFullDuration(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(10*time.Second, clock.Now, nil)

	if w.IsListening() {
		t.Fatal("expected window to start closed")
	}

	w.Arm()
	if !w.IsListening() {
		t.Fatal("expected window open immediately after arm")
	}

	clock.Advance(9*time.Second + 999*time.Millisecond)
	if !w.IsListening() {
		t.Fatal("expected window open just before the deadline")
	}

	clock.Advance(time.Millisecond)
	if w.IsListening() {
		t.Fatal("expected window closed at the deadline")
	}

	clock.Advance(time.Hour)
	if w.IsListening() {
		t.Fatal("expected window closed after the deadline")
	}
}

func TestExpireNow_ClosesImmediately(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(10*time.Second, clock.Now, nil)

	w.Arm()
	w.ExpireNow()
	if w.IsListening() {
		t.Fatal("expected window closed right after ExpireNow")
	}

	// Arming again reopens it.
	w.Arm()
	if !w.IsListening() {
		t.Fatal("expected window open after re-arm")
	}
}

func TestArm_DeadlineOnlyMovesForward(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(10*time.Second, clock.Now, nil)

	w.Arm()
	first := w.Deadline()

	clock.Advance(4 * time.Second)
	w.Arm()
	second := w.Deadline()
	if !second.After(first) {
		t.Fatalf("expected re-arm to extend the deadline: first=%v second=%v", first, second)
	}

	clock.Advance(5 * time.Second)
	if !w.IsListening() {
		t.Fatal("expected extended window to still be open")
	}
}

func TestExpireNow_ReportsOnceWhileOpen(t *testing.T) {
	clock := newFakeClock()
	var expiries atomic.Int64
	w := NewWindow(10*time.Second, clock.Now, func() { expiries.Add(1) })

	w.ExpireNow()
	if got := expiries.Load(); got != 0 {
		t.Fatalf("expected no report for expiring a closed window, got %d", got)
	}

	w.Arm()
	w.ExpireNow()
	if got := expiries.Load(); got != 1 {
		t.Fatalf("expected one report, got %d", got)
	}

	w.ExpireNow()
	if got := expiries.Load(); got != 1 {
		t.Fatalf("expected repeated ExpireNow to not re-report, got %d", got)
	}
}

func TestTimer_ReportsNaturalExpiry(t *testing.T) {
	var expiries atomic.Int64
	w := NewWindow(20*time.Millisecond, nil, func() { expiries.Add(1) })

	w.Arm()
	deadline := time.Now().Add(time.Second)
	for expiries.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := expiries.Load(); got != 1 {
		t.Fatalf("expected timer to report natural expiry once, got %d", got)
	}
	if w.IsListening() {
		t.Fatal("expected window closed after natural expiry")
	}
}
