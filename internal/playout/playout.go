// Package playout implements Playout, the single-threaded playback
// loop: it pops the head of the PlaybackQueue on a JitterTiming-paced
// schedule, reconstructs the frame via the FEC Assembler, and hands
// the result to a Strategy for an emit/skip/drop decision before
// delivering it downstream.
//
// Playout is generic over a Strategy rather than subclassed per media
// type: the video-specific GOP-validity bookkeeping lives entirely in
// VideoStrategy.
package playout

import (
	"sync"
	"time"

	"ndnrtc/internal/fec"
	"ndnrtc/internal/jitter"
	"ndnrtc/internal/playback"
	"ndnrtc/internal/pool"
	"ndnrtc/internal/stats"
	"ndnrtc/internal/wire"
)

// Decision is a Strategy's verdict for one ready sample.
type Decision int

const (
	Emit Decision = iota
	Skip
	Drop
)

// Strategy decides, per delivered sample, whether to emit it downstream,
// skip it (GOP-invalid delta), or drop it silently. isKey/playbackNo are
// read off the slot's frame header and prefix metadata.
type Strategy interface {
	OnSampleReady(isKey bool, playbackNo uint64) Decision
}

// Consumer is the downstream decoder/renderer, a black-box
// collaborator: Playout calls exactly one of these per tick that
// produces a result.
type Consumer interface {
	FrameProcessed(playbackNo uint64, isKey bool, payload []byte, recovered bool)
	FrameSkipped(playbackNo uint64, isKey bool)
	RecoveryFailure(playbackNo uint64, isKey bool)
	QueueEmpty()
}

// Playout drives the playback timeline. Callers must call Start once and
// Stop at most once per Start; Stop is synchronous and idempotent.
type Playout struct {
	queue     *playback.Queue
	pool      *pool.Pool
	timing    *jitter.Timing
	assembler *fec.Assembler
	strategy  Strategy
	consumer  Consumer
	stats     *stats.Counters

	freshSample chan struct{}
	stopCh      chan struct{}
	stoppedCh   chan struct{}

	mu            sync.Mutex
	started       bool
	stopped       bool
	locked        pool.Handle
	hasLock       bool
	fastForwardMs int64
}

// New builds a Playout over queue/pool, pacing ticks with timing and
// reconstructing frames with assembler. strategy and consumer are
// supplied by the caller (VideoStrategy/AudioStrategy, and the decoder).
func New(q *playback.Queue, p *pool.Pool, timing *jitter.Timing, assembler *fec.Assembler, strategy Strategy, consumer Consumer, st *stats.Counters) *Playout {
	return &Playout{
		queue:       q,
		pool:        p,
		timing:      timing,
		assembler:   assembler,
		strategy:    strategy,
		consumer:    consumer,
		stats:       st,
		freshSample: make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		stoppedCh:   make(chan struct{}),
	}
}

// Start launches the playout loop in its own goroutine. fastForwardMs, if
// positive, drains that many milliseconds off the playout schedule before
// the loop settles into normal JitterTiming-paced delivery -- used to
// catch up a PlaybackQueue that has backlogged well past target before
// playout ever started. Pass 0 for a normal start. Calling Start more
// than once is a caller error.
func (p *Playout) Start(fastForwardMs int64) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	if fastForwardMs > 0 {
		p.fastForwardMs = fastForwardMs
	}
	p.mu.Unlock()
	go p.run()
}

// NotifyFreshSample wakes a Playout sleeping on an empty queue, called
// by whoever just pushed onto the PlaybackQueue.
func (p *Playout) NotifyFreshSample() {
	select {
	case p.freshSample <- struct{}{}:
	default:
	}
}

// Stop wakes the loop, frees any Locked slot, and returns only once the
// loop has exited. Safe to call multiple times or before Start.
func (p *Playout) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	started := p.started
	p.mu.Unlock()

	close(p.stopCh)
	p.timing.Stop()
	if started {
		<-p.stoppedCh
	} else {
		close(p.stoppedCh)
	}
}

func (p *Playout) run() {
	defer func() {
		p.freeLocked()
		close(p.stoppedCh)
	}()

	for {
		if p.stopping() {
			return
		}

		h, ok := p.queue.Peek()
		if !ok {
			p.consumer.QueueEmpty()
			select {
			case <-p.freshSample:
				continue
			case <-p.stopCh:
				return
			}
		}

		now := time.Now()
		p.timing.StartFramePlayout(now)
		durationMs := p.queue.PlayoutDuration(h)
		actual := p.timing.UpdatePlayoutTime(durationMs)
		if p.drainFastForward(durationMs) {
			actual = 0
		}
		p.timing.RunPlayoutTimer(actual)

		if p.stopping() {
			return
		}

		h, ok = p.queue.Pop()
		if !ok {
			continue
		}
		p.deliver(h)
	}
}

func (p *Playout) stopping() bool {
	select {
	case <-p.stopCh:
		return true
	default:
		return false
	}
}

// drainFastForward consumes durationMs off the fast-forward budget, if
// any remains, and reports whether this tick's pacing sleep should be
// skipped entirely. Once the budget is exhausted, subsequent ticks fall
// through to normal JitterTiming pacing.
func (p *Playout) drainFastForward(durationMs float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fastForwardMs <= 0 {
		return false
	}
	p.fastForwardMs -= int64(durationMs)
	return true
}

func (p *Playout) deliver(h pool.Handle) {
	s := p.pool.Slot(h)
	if err := s.Lock(); err != nil {
		p.pool.Release(h)
		return
	}
	p.mu.Lock()
	p.locked, p.hasLock = h, true
	p.mu.Unlock()

	isKey := s.FrameHeader().FrameType == wire.FrameTypeKey
	playbackNo := s.PlaybackNo()

	result, err := p.assembler.Assemble(s.FetchedSegments(), int(s.TotalSegments()), int(s.PayloadSize()))
	if err != nil {
		p.consumer.RecoveryFailure(playbackNo, isKey)
		p.stats.Incr(stats.DroppedNum, 1)
	} else {
		switch p.strategy.OnSampleReady(isKey, playbackNo) {
		case Emit:
			p.consumer.FrameProcessed(playbackNo, isKey, result.Bytes, result.Recovered)
			p.stats.Incr(stats.PlayedNum, 1)
			p.stats.Set(stats.LastPlayedNo, int64(playbackNo))
			if isKey {
				p.stats.Incr(stats.PlayedKeyNum, 1)
				p.stats.Set(stats.LastPlayedKeyNo, int64(playbackNo))
			} else {
				p.stats.Set(stats.LastPlayedDeltaNo, int64(playbackNo))
			}
			if result.Recovered {
				p.stats.Incr(stats.RecoveredNum, 1)
				if isKey {
					p.stats.Incr(stats.RecoveredKeyNum, 1)
				}
			}
		case Skip:
			p.consumer.FrameSkipped(playbackNo, isKey)
			p.stats.Incr(stats.SkippedNum, 1)
		case Drop:
			p.stats.Incr(stats.DroppedNum, 1)
		}
	}

	p.mu.Lock()
	p.hasLock = false
	p.mu.Unlock()
	s.Unlock()
	p.pool.Release(h)
	p.NotifyFreshSample()
}

func (p *Playout) freeLocked() {
	p.mu.Lock()
	h, ok := p.locked, p.hasLock
	p.hasLock = false
	p.mu.Unlock()
	if !ok {
		return
	}
	s := p.pool.Slot(h)
	s.Unlock()
	p.pool.Release(h)
}
