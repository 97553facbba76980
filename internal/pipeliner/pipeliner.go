package pipeliner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"ndnrtc/internal/buffer"
	"ndnrtc/internal/names"
	"ndnrtc/internal/ndnface"
	"ndnrtc/internal/playback"
	"ndnrtc/internal/slot"
	"ndnrtc/internal/stats"
)

// Pipeliner reads Buffer events and decides which interests to issue
// next.
type Pipeliner interface {
	OnEvent(e buffer.Event)
	Run(ctx context.Context) error
}

// Default is the concrete Pipeliner this repository ships: a fixed
// window of outstanding interests for the next frames past the
// playhead, paced by a token-bucket limiter, with timeout-driven
// re-issue and an excludeFilter floor for rebuffer.
type Default struct {
	buf      *buffer.Buffer
	playback *playback.Queue
	face     ndnface.Face
	stats    *stats.Counters

	stream       names.Name
	thread       string
	namespace    names.Namespace
	parityShards int

	limiter *rate.Limiter

	mu            sync.Mutex
	depth         int
	playhead      uint64
	excludeFilter uint64
	lossRate      float64
	rttMs         float64
	retryCounts   map[string]int

	nonce atomic.Uint32
}

// Config carries the pacing and window parameters a caller picks for
// a Default Pipeliner instance.
type Config struct {
	Stream       names.Name
	Thread       string
	Namespace    names.Namespace
	InitialDepth int
	RateLimit    rate.Limit // interests per second
	Burst        int
	// ParityShards is the Reed-Solomon parity segment count the
	// producer publishes alongside each frame's data segments (agreed
	// out of band, like fec.Params). The Pipeliner fetches them
	// alongside the declared data segments so a lost data segment can
	// still be recovered by internal/fec once the frame plays out.
	ParityShards int
}

// NewDefault builds a Default Pipeliner over buf/playbackQ, issuing
// interests through face.
func NewDefault(cfg Config, buf *buffer.Buffer, playbackQ *playback.Queue, face ndnface.Face, st *stats.Counters) *Default {
	depth := cfg.InitialDepth
	if depth <= 0 {
		depth = DefaultDepth
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = rate.Limit(100)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = depth
	}
	return &Default{
		buf:          buf,
		playback:     playbackQ,
		face:         face,
		stats:        st,
		stream:       cfg.Stream,
		thread:       cfg.Thread,
		namespace:    cfg.Namespace,
		parityShards: cfg.ParityShards,
		limiter:      rate.NewLimiter(limit, burst),
		depth:        depth,
		retryCounts:  make(map[string]int),
	}
}

// OnEvent reacts to one Buffer event: feeding the PlaybackQueue and
// counting ProcessedNum on Ready, fetching the remaining segments on
// FirstSegment once a slot's total segment count is known, re-issuing on
// Timeout, and counting DroppedNum on ErrorEvent. Other event kinds are
// ignored; the playhead advances in fillWindow, not here.
func (p *Default) OnEvent(e buffer.Event) {
	switch e.Kind {
	case buffer.FirstSegment:
		p.fetchRemaining(context.Background(), e)
	case buffer.Ready:
		p.playback.Push(e.Handle)
		p.stats.Incr(stats.ProcessedNum, 1)
	case buffer.Timeout:
		p.handleTimeout(e)
	case buffer.ErrorEvent:
		p.stats.Incr(stats.DroppedNum, 1)
	}
}

// fetchRemaining requests every segment past segment 0 once the slot
// bound to e.Handle has learned its TotalSegments from the first
// arrival's prefix metadata (names.PrefixMetaInfo), plus this
// Pipeliner's configured parity segments so a later-missing data
// segment still has recoverable shards on hand (internal/fec).
func (p *Default) fetchRemaining(ctx context.Context, e buffer.Event) {
	s := p.buf.Pool().Slot(e.Handle)
	total := s.TotalSegments()
	last := total - 1 + uint32(p.parityShards)
	if total <= 1 && p.parityShards == 0 {
		return
	}
	nonce := p.nonce.Add(1)
	if err := p.buf.RequestRangeIssued(e.Prefix, 1, last, nonce, nowUs()); err != nil {
		return
	}
	for seg := uint32(1); seg <= last; seg++ {
		p.expressSegment(ctx, names.SegmentName(e.Prefix, seg), nonce)
	}
}

func (p *Default) handleTimeout(e buffer.Event) {
	n := e.Name
	if len(n) == 0 {
		n = e.Prefix
	}
	key := n.String()
	p.mu.Lock()
	maxRetries := TargetMaxRetries(p.lossRate)
	retry := p.retryCounts[key] + 1
	p.retryCounts[key] = retry
	give := retry > maxRetries
	p.mu.Unlock()
	if give {
		p.stats.Incr(stats.DroppedNum, 1)
		return
	}
	nonce := p.nonce.Add(1)
	if _, err := p.buf.RequestIssued(n, nonce, nowUs()); err != nil {
		return
	}
	p.expressSegment(context.Background(), n, nonce)
}

// SetLinkQuality records the latest loss/RTT measurement, adapting the
// pipeline depth and retry budget (internal/pipeliner/adapt.go).
func (p *Default) SetLinkQuality(lossRate, rttMs float64) {
	p.mu.Lock()
	p.lossRate = SmoothLoss(p.lossRate, lossRate, 0.3)
	p.rttMs = rttMs
	p.depth = NextDepth(p.depth, p.lossRate, p.rttMs)
	p.mu.Unlock()
}

// Playhead reports the next frame number this Pipeliner will request,
// used by the rebuffer controller to pick an ExcludeBelow floor on trip.
func (p *Default) Playhead() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playhead
}

// ExcludeBelow raises the excludeFilter floor so new interests never
// target a frame number below seq — set by the rebuffer
// controller on trip.
func (p *Default) ExcludeBelow(seq uint64) {
	p.mu.Lock()
	if seq > p.excludeFilter {
		p.excludeFilter = seq
	}
	if seq > p.playhead {
		p.playhead = seq
	}
	p.mu.Unlock()
}

// Run issues interests for the pipeline window until ctx is cancelled,
// and drains Buffer events into OnEvent.
func (p *Default) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p.fillWindow(ctx)

		e, ok := p.buf.WaitForEvents(buffer.AllKinds, 50*time.Millisecond)
		if !ok {
			continue
		}
		if e.Kind == buffer.ErrorEvent && e.Err != nil {
			return e.Err
		}
		p.OnEvent(e)
	}
}

func (p *Default) fillWindow(ctx context.Context) {
	p.mu.Lock()
	depth := p.depth
	start := p.playhead
	if start < p.excludeFilter {
		start = p.excludeFilter
	}
	p.mu.Unlock()

	for seq := start; seq < start+uint64(depth); seq++ {
		framePrefix := names.FramePrefix(p.stream, p.thread, p.namespace, seq)
		bootstrap := names.SegmentName(framePrefix, 0)
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
		nonce := p.nonce.Add(1)
		if _, err := p.buf.RequestIssued(bootstrap, nonce, nowUs()); err != nil {
			continue
		}
		p.expressSegment(ctx, bootstrap, nonce)
	}

	p.mu.Lock()
	p.playhead = start + 1
	p.mu.Unlock()
}

// expressSegment issues a single segment interest through the Face and
// wires its response back into Buffer.Received or Buffer.Timeout.
func (p *Default) expressSegment(ctx context.Context, n names.Name, nonce uint32) {
	ch, err := p.face.Express(ctx, n, nonce)
	if err != nil {
		return
	}
	go func() {
		select {
		case d, ok := <-ch:
			if !ok {
				p.buf.Timeout(n)
				return
			}
			p.buf.Received(slot.Data{Name: d.Name, Payload: d.Payload}, nowUs())
		case <-ctx.Done():
		}
	}()
}

func nowUs() int64 { return time.Now().UnixMicro() }
