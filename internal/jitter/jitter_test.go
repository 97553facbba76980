package jitter

import (
	"testing"
	"time"
)

func TestAccumulatorCompensatesSlowProcessing(t *testing.T) {
	tm := New()
	base := time.Now()
	tm.StartFramePlayout(base)
	actual := tm.UpdatePlayoutTime(33)
	if actual != 33 {
		t.Fatalf("first frame actual = %v, want 33 (no accumulator yet)", actual)
	}

	// Simulate processing that took 50ms instead of the intended 33ms sleep.
	next := base.Add(50 * time.Millisecond)
	tm.StartFramePlayout(next)
	actual2 := tm.UpdatePlayoutTime(33)
	if actual2 >= 33 {
		t.Fatalf("expected compensated sleep < 33ms after overrun, got %v", actual2)
	}
	if actual2 != 16 {
		t.Fatalf("actual2 = %v, want 16 (33 - (50-33))", actual2)
	}
}

func TestUpdatePlayoutTimeFloorsAtZero(t *testing.T) {
	tm := New()
	base := time.Now()
	tm.StartFramePlayout(base)
	tm.UpdatePlayoutTime(10)
	tm.StartFramePlayout(base.Add(200 * time.Millisecond))
	actual := tm.UpdatePlayoutTime(10)
	if actual != 0 {
		t.Fatalf("actual = %v, want 0 (large overrun floors)", actual)
	}
}

func TestRunPlayoutTimerSkipsOnZero(t *testing.T) {
	tm := New()
	start := time.Now()
	tm.RunPlayoutTimer(0)
	if time.Since(start) > 5*time.Millisecond {
		t.Fatal("expected immediate return for zero-duration sleep")
	}
}

func TestFlushWakesSleep(t *testing.T) {
	tm := New()
	done := make(chan struct{})
	go func() {
		tm.RunPlayoutTimer(time.Hour.Seconds() * 1000)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	tm.Flush()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected flush to wake the sleeping timer")
	}
}
