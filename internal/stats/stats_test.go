package stats

import (
	"sync"
	"testing"
)

func TestIncrAccumulates(t *testing.T) {
	c := New()
	c.Incr(PublishedNum, 1)
	c.Incr(PublishedNum, 1)
	c.Incr(PublishedNum, 3)
	if got := c.Get(PublishedNum); got != 5 {
		t.Fatalf("PublishedNum = %d, want 5", got)
	}
}

func TestSetOverwritesGauge(t *testing.T) {
	c := New()
	c.Set(LastPlayedNo, 41)
	c.Set(LastPlayedNo, 42)
	if got := c.Get(LastPlayedNo); got != 42 {
		t.Fatalf("LastPlayedNo = %d, want 42", got)
	}
}

func TestConcurrentIncr(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Incr(CapturedNum, 1)
		}()
	}
	wg.Wait()
	if got := c.Get(CapturedNum); got != 100 {
		t.Fatalf("CapturedNum = %d, want 100", got)
	}
}

func TestSnapshotIncludesAllIndicators(t *testing.T) {
	c := New()
	c.Incr(EncodedNum, 7)
	snap := c.Snapshot()
	if snap["EncodedNum"] != 7 {
		t.Fatalf("snapshot EncodedNum = %d, want 7", snap["EncodedNum"])
	}
	if len(snap) != int(numIndicators) {
		t.Fatalf("snapshot len = %d, want %d", len(snap), numIndicators)
	}
}

func TestIndicatorStringUnknown(t *testing.T) {
	if got := Indicator(-1).String(); got != "Unknown" {
		t.Fatalf("String() = %q, want Unknown", got)
	}
	if got := numIndicators.String(); got != "Unknown" {
		t.Fatalf("String() = %q, want Unknown", got)
	}
}
