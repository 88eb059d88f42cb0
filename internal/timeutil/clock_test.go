package timeutil

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

func TestRealClock_NewTimer(t *testing.T) {
	timer := RealClock{}.NewTimer(10 * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Error("timer did not fire")
	}
}

func TestMockClock_AdvanceFiresTimers(t *testing.T) {
	c := NewMockClock(epoch)
	timer := c.NewTimer(5 * time.Second)

	c.Advance(4 * time.Second)
	select {
	case <-timer.C():
		t.Fatal("timer fired early")
	default:
	}

	c.Advance(time.Second)
	select {
	case got := <-timer.C():
		if !got.Equal(epoch.Add(5 * time.Second)) {
			t.Errorf("fired at %v", got)
		}
	default:
		t.Fatal("timer did not fire at its deadline")
	}
	if got := c.Since(epoch); got != 5*time.Second {
		t.Errorf("Since() = %v, want 5s", got)
	}
}

func TestMockTimer_Stop(t *testing.T) {
	c := NewMockClock(epoch)
	timer := c.NewTimer(time.Second)
	if !timer.Stop() {
		t.Error("Stop() on an active timer returned false")
	}
	c.Advance(time.Hour)
	select {
	case <-timer.C():
		t.Error("stopped timer fired")
	default:
	}
	if timer.Stop() {
		t.Error("second Stop() returned true")
	}
}

// TestMockTimer_ResetMovesDeadline checks that Reset measures from the
// clock's current time rather than the original deadline.
func TestMockTimer_ResetMovesDeadline(t *testing.T) {
	c := NewMockClock(epoch)
	timer := c.NewTimer(time.Second)
	c.Advance(500 * time.Millisecond)
	timer.Reset(2 * time.Second)

	c.Advance(time.Second)
	select {
	case <-timer.C():
		t.Fatal("reset timer fired at its old deadline")
	default:
	}
	c.Advance(time.Second)
	select {
	case <-timer.C():
	default:
		t.Fatal("reset timer did not fire")
	}
}

func TestMockClock_After(t *testing.T) {
	c := NewMockClock(epoch)
	ch := c.After(time.Minute)
	c.Advance(time.Minute)
	select {
	case <-ch:
	default:
		t.Fatal("After channel did not fire")
	}
	if c.Timers() != 1 {
		t.Errorf("Timers() = %d, want 1", c.Timers())
	}
}
