// Package rebuffer implements the rebuffering controller: it watches
// the PlaybackQueue for an extended empty period or too many
// underruns and, once tripped, flushes the Buffer, clears the queue,
// restarts Playout, and raises the Pipeliner's excludeFilter floor past
// the last pipelined frame so fresh interests don't re-target stale
// frames. Structured as a periodic ticker loop polling queue state.
package rebuffer

import (
	"sync"
	"time"

	"ndnrtc/internal/buffer"
	"ndnrtc/internal/playback"
	"ndnrtc/internal/playout"
)

// DefaultMaxUnderrunNum is a conservative, unexplained threshold
// preserved here as a tunable default.
const DefaultMaxUnderrunNum = 10

// DefaultEmptyThreshold is how long the PlaybackQueue may sit empty
// before a poll tick trips rebuffering on its own.
const DefaultEmptyThreshold = 2 * time.Second

// DefaultPollInterval is how often the controller checks queue state.
const DefaultPollInterval = 200 * time.Millisecond

// ExcludeSetter is the Pipeliner capability the controller needs: raising
// the floor below which new interests are never issued. Declared locally
// so this package does not import internal/pipeliner.
type ExcludeSetter interface {
	ExcludeBelow(seq uint64)
}

// Config tunes trip thresholds; zero fields fall back to the defaults.
type Config struct {
	MaxUnderrunNum int
	EmptyThreshold time.Duration
	PollInterval   time.Duration
}

// Controller watches a Buffer/PlaybackQueue pair and trips the
// rebuffer sequence when one of its conditions is met.
type Controller struct {
	buf        *buffer.Buffer
	queue      *playback.Queue
	newPlayout func() *playout.Playout
	excluder   ExcludeSetter
	playhead   func() uint64

	cfg Config

	mu            sync.Mutex
	current       *playout.Playout
	emptySince    time.Time
	underrunCount int
}

// New builds a Controller. newPlayout must build and return a fresh,
// not-yet-started Playout each call (Playout is not restartable once
// stopped); current is the Playout already running, ownership of which
// passes to the Controller. playheadFunc reports the last pipelined
// frame number, used to set the excludeFilter floor on trip.
func New(buf *buffer.Buffer, queue *playback.Queue, current *playout.Playout, newPlayout func() *playout.Playout, excluder ExcludeSetter, playheadFunc func() uint64, cfg Config) *Controller {
	if cfg.MaxUnderrunNum <= 0 {
		cfg.MaxUnderrunNum = DefaultMaxUnderrunNum
	}
	if cfg.EmptyThreshold <= 0 {
		cfg.EmptyThreshold = DefaultEmptyThreshold
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Controller{
		buf:        buf,
		queue:      queue,
		newPlayout: newPlayout,
		excluder:   excluder,
		playhead:   playheadFunc,
		cfg:        cfg,
		current:    current,
	}
}

// RecordUnderrun increments the underrun counter — wired as part of the
// Consumer.QueueEmpty hook passed to Playout — and trips immediately
// once it has exceeded MaxUnderrunNum.
func (c *Controller) RecordUnderrun() {
	c.mu.Lock()
	c.underrunCount++
	trip := c.underrunCount > c.cfg.MaxUnderrunNum
	c.mu.Unlock()
	if trip {
		c.Trip()
	}
}

// Run polls the PlaybackQueue until done is closed, tripping on condition
// (i): the queue has sat empty longer than EmptyThreshold.
func (c *Controller) Run(done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.poll()
		}
	}
}

func (c *Controller) poll() {
	empty := c.queue.Len() == 0
	c.mu.Lock()
	var trip bool
	if empty {
		if c.emptySince.IsZero() {
			c.emptySince = time.Now()
		} else if time.Since(c.emptySince) >= c.cfg.EmptyThreshold {
			trip = true
		}
	} else {
		c.emptySince = time.Time{}
	}
	c.mu.Unlock()
	if trip {
		c.Trip()
	}
}

// Trip executes the rebuffer sequence: Buffer.flush, PlaybackQueue.clear,
// stop-and-restart Playout, and raise the Pipeliner's excludeFilter
// past the last pipelined frame. Safe to call from RecordUnderrun,
// Run's poll loop, or an explicit API caller.
func (c *Controller) Trip() {
	c.mu.Lock()
	old := c.current
	c.underrunCount = 0
	c.emptySince = time.Time{}
	c.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	c.buf.Flush()
	c.queue.Clear()

	fresh := c.newPlayout()
	fresh.Start(0)

	c.mu.Lock()
	c.current = fresh
	c.mu.Unlock()

	c.excluder.ExcludeBelow(c.playhead())
}

// Current returns the Playout instance currently in service.
func (c *Controller) Current() *playout.Playout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}
