// Package jitter implements JitterTiming, the processing-delay
// compensator that converts per-slot producer timestamps into
// real-time sleep intervals for the playout thread. It is a pure
// calculator, not a thread.
package jitter

import (
	"sync"
	"time"
)

// Timing accumulates processing time spent between ticks and subtracts
// it from each requested playout sleep, so that overall playout keeps
// pace with the producer's capture clock even when per-tick work is
// slow.
type Timing struct {
	mu sync.Mutex

	hasStart      bool
	prevStart     time.Time
	lastPlayoutMs float64
	accumulatorMs float64

	wake chan struct{}
}

// New builds a Timing calculator in its initial (unflushed) state.
func New() *Timing {
	return &Timing{wake: make(chan struct{}, 1)}
}

// StartFramePlayout records a processing-start timestamp. On the
// second and subsequent calls, it folds the gap since the previous call
// minus that call's sleep duration into the processing-time
// accumulator — time spent doing work beyond the intended sleep.
func (t *Timing) StartFramePlayout(now time.Time) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasStart {
		elapsed := now.Sub(t.prevStart).Seconds() * 1000
		t.accumulatorMs += elapsed - t.lastPlayoutMs
	}
	t.hasStart = true
	t.prevStart = now
	return now
}

// UpdatePlayoutTime subtracts accumulated processing time from
// framePlayoutMs, flooring at 0, and decrements the accumulator by
// whatever it consumed. The returned value is what runPlayoutTimer
// should actually sleep.
func (t *Timing) UpdatePlayoutTime(framePlayoutMs float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	consumed := t.accumulatorMs
	if consumed < 0 {
		consumed = 0
	}
	actual := framePlayoutMs - consumed
	if actual < 0 {
		actual = 0
		consumed = framePlayoutMs
	}
	t.accumulatorMs -= consumed
	t.lastPlayoutMs = actual
	return actual
}

// RunPlayoutTimer sleeps for ms milliseconds, or returns immediately if
// ms is 0 (skip). It wakes early if Flush or Stop is called.
func (t *Timing) RunPlayoutTimer(ms float64) {
	if ms <= 0 {
		return
	}
	timer := time.NewTimer(time.Duration(ms * float64(time.Millisecond)))
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-t.wake:
	}
}

// Flush resets the accumulator and wakes any in-progress sleep.
func (t *Timing) Flush() {
	t.mu.Lock()
	t.hasStart = false
	t.accumulatorMs = 0
	t.lastPlayoutMs = 0
	t.mu.Unlock()
	t.signal()
}

// Stop wakes any in-progress sleep without resetting accounting state.
func (t *Timing) Stop() {
	t.signal()
}

func (t *Timing) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}
