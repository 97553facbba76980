// Package stats implements the pipeline's observability counters: an
// atomic counter array indexed by a typed Indicator enum, updated
// lock-free per component, aggregated pull-only from outside.
package stats

import "sync/atomic"

// Indicator names one observable counter. Values are dense so they can
// index directly into Counters.values.
type Indicator int

const (
	CapturedNum Indicator = iota
	ProcessedNum
	EncodedNum
	DroppedNum
	PublishedNum
	PublishedKeyNum
	PublishedSegmentsNum
	BytesPublished
	RawBytesPublished
	SignNum
	RecoveredNum
	RecoveredKeyNum
	SkippedNum
	PlayedNum
	PlayedKeyNum
	LastPlayedNo
	LastPlayedKeyNo
	LastPlayedDeltaNo

	numIndicators
)

var names = [numIndicators]string{
	CapturedNum:           "CapturedNum",
	ProcessedNum:          "ProcessedNum",
	EncodedNum:            "EncodedNum",
	DroppedNum:            "DroppedNum",
	PublishedNum:          "PublishedNum",
	PublishedKeyNum:       "PublishedKeyNum",
	PublishedSegmentsNum:  "PublishedSegmentsNum",
	BytesPublished:        "BytesPublished",
	RawBytesPublished:     "RawBytesPublished",
	SignNum:               "SignNum",
	RecoveredNum:          "RecoveredNum",
	RecoveredKeyNum:       "RecoveredKeyNum",
	SkippedNum:            "SkippedNum",
	PlayedNum:             "PlayedNum",
	PlayedKeyNum:          "PlayedKeyNum",
	LastPlayedNo:          "LastPlayedNo",
	LastPlayedKeyNo:       "LastPlayedKeyNo",
	LastPlayedDeltaNo:     "LastPlayedDeltaNo",
}

// String returns the indicator's stable name, used as the stats JSON/log key.
func (i Indicator) String() string {
	if i < 0 || i >= numIndicators {
		return "Unknown"
	}
	return names[i]
}

// Counters is a fixed array of atomic counters, one per Indicator. The
// zero value is ready to use.
type Counters struct {
	values [numIndicators]atomic.Int64
}

// New builds an empty counter set.
func New() *Counters {
	return &Counters{}
}

// Incr adds delta to indicator i and returns the new value.
func (c *Counters) Incr(i Indicator, delta int64) int64 {
	return c.values[i].Add(delta)
}

// Set overwrites indicator i (used for "last played no" style gauges
// rather than running totals).
func (c *Counters) Set(i Indicator, v int64) {
	c.values[i].Store(v)
}

// Get reads indicator i's current value.
func (c *Counters) Get(i Indicator) int64 {
	return c.values[i].Load()
}

// Snapshot is a point-in-time, race-free copy of every indicator,
// aggregated pull-only by the caller.
type Snapshot map[string]int64

// Snapshot reads every indicator into a plain map for logging or
// serving over the httpapi /stats endpoint.
func (c *Counters) Snapshot() Snapshot {
	out := make(Snapshot, numIndicators)
	for i := Indicator(0); i < numIndicators; i++ {
		out[i.String()] = c.values[i].Load()
	}
	return out
}
