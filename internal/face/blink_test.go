package face

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) time.Time {
	c.t = c.t.Add(d)
	return c.t
}

func newTestBlink(seed int64) (*BlinkController, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	b := NewBlinkController(BlinkConfig{}, clock, NewSampler(seed))
	return b, clock
}

func TestBlink_FirstScheduleWithinInterval(t *testing.T) {
	b, clock := newTestBlink(42)
	wait := b.NextBlinkAt().Sub(clock.Now())
	if wait < 3*time.Second || wait > 6*time.Second {
		t.Errorf("first blink scheduled after %v, want within [3s, 6s]", wait)
	}
}

func TestBlink_FullCycle(t *testing.T) {
	b, clock := newTestBlink(42)

	// Jump past the scheduled time; the next tick starts closing.
	clock.t = b.NextBlinkAt()
	b.Tick(clock.Now())
	if b.Phase() != BlinkClosing {
		t.Fatalf("phase = %v, want closing", b.Phase())
	}

	b.Tick(clock.advance(100 * time.Millisecond))
	if b.Phase() != BlinkClosed {
		t.Fatalf("phase = %v, want closed", b.Phase())
	}
	if got := b.Amount(clock.Now()); got != 1 {
		t.Errorf("closed amount = %v, want 1", got)
	}

	b.Tick(clock.advance(30 * time.Millisecond))
	if b.Phase() != BlinkOpening {
		t.Fatalf("phase = %v, want opening", b.Phase())
	}

	b.Tick(clock.advance(100 * time.Millisecond))
	if b.Phase() != BlinkWaiting {
		t.Fatalf("phase = %v, want waiting", b.Phase())
	}
	if got := b.Amount(clock.Now()); got != 0 {
		t.Errorf("waiting amount = %v, want 0", got)
	}
	if !b.NextBlinkAt().After(clock.Now()) {
		t.Error("completed blink did not reschedule into the future")
	}
}

func TestBlink_TriggerImmediate(t *testing.T) {
	b, clock := newTestBlink(1)
	b.Trigger(clock.Now())
	if b.Phase() != BlinkClosing {
		t.Errorf("phase after trigger = %v, want closing", b.Phase())
	}

	// A second trigger mid-blink is ignored.
	b.Tick(clock.advance(50 * time.Millisecond))
	before := b.Phase()
	b.Trigger(clock.Now())
	if b.Phase() != before {
		t.Errorf("trigger mid-blink changed phase %v -> %v", before, b.Phase())
	}
}

func TestBlink_AmountEased(t *testing.T) {
	b, clock := newTestBlink(7)
	b.Trigger(clock.Now())

	half := b.Amount(clock.advance(50 * time.Millisecond))
	if half <= 0 || half >= 1 {
		t.Errorf("mid-close amount = %v, want in (0, 1)", half)
	}
}

func TestBlink_SeededDeterminism(t *testing.T) {
	b1, _ := newTestBlink(99)
	b2, _ := newTestBlink(99)
	if !b1.NextBlinkAt().Equal(b2.NextBlinkAt()) {
		t.Errorf("same seed scheduled different blinks: %v vs %v", b1.NextBlinkAt(), b2.NextBlinkAt())
	}
}
