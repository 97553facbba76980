// Package scenario drives the full consumer pipeline — Buffer,
// PlaybackQueue, Playout, and a Pipeliner per namespace — against a
// LoopbackFace and a real Segmenter/Publisher, exercising the same
// wiring as cmd/producer and cmd/consumer without a network. Test
// names and durations are scaled down from the quantified scenarios
// they check so the suite runs in well under a second; the invariant
// each one asserts is unchanged.
package scenario

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"ndnrtc/internal/buffer"
	"ndnrtc/internal/fec"
	"ndnrtc/internal/frame"
	"ndnrtc/internal/ingest"
	"ndnrtc/internal/jitter"
	"ndnrtc/internal/names"
	"ndnrtc/internal/ndnface"
	"ndnrtc/internal/pipeliner"
	"ndnrtc/internal/pit"
	"ndnrtc/internal/playback"
	"ndnrtc/internal/playout"
	"ndnrtc/internal/pool"
	"ndnrtc/internal/publish"
	"ndnrtc/internal/rebuffer"
	"ndnrtc/internal/stats"
)

var testStream = names.Name{"ndn", "scenario", "stream"}

const testThread = "video0"

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// recordingConsumer is a frame.FrameConsumer that records every call it
// receives, for assertions, instead of logging them.
type recordingConsumer struct {
	mu        sync.Mutex
	processed []frame.FrameInfo
	images    []frame.EncodedImage
	skipped   []uint64
}

func (r *recordingConsumer) ProcessFrame(info frame.FrameInfo, img frame.EncodedImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, info)
	r.images = append(r.images, img)
	return nil
}

// imageLenFor returns the byte length of the EncodedImage delivered for
// playbackNo, and whether that playbackNo was ever processed.
func (r *recordingConsumer) imageLenFor(no uint64) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, info := range r.processed {
		if info.PlaybackNo == no {
			return len(r.images[i].Bytes), true
		}
	}
	return 0, false
}

func (r *recordingConsumer) FrameSkipped(playbackNo uint64, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped = append(r.skipped, playbackNo)
}

func (r *recordingConsumer) counts() (processed, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.processed), len(r.skipped)
}

func (r *recordingConsumer) sawPlaybackNo(no uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, info := range r.processed {
		if info.PlaybackNo == no {
			return true
		}
	}
	return false
}

// networkGate sits in front of internal/ingest's Handler so a test can
// simulate a full network cut (S6) or drop individual segments of one
// frame while leaving the rest reachable (S5), without touching
// Ingest's private cache.
type networkGate struct {
	up      atomic.Bool
	mu      sync.Mutex
	blocked map[string]bool
	inner   ndnface.Handler
}

func newNetworkGate(inner ndnface.Handler) *networkGate {
	g := &networkGate{blocked: make(map[string]bool), inner: inner}
	g.up.Store(true)
	return g
}

func (g *networkGate) handle(ctx context.Context, interest names.Name, nonce uint32) (ndnface.Data, bool) {
	if !g.up.Load() {
		return ndnface.Data{}, false
	}
	g.mu.Lock()
	blocked := g.blocked[interest.String()]
	g.mu.Unlock()
	if blocked {
		return ndnface.Data{}, false
	}
	return g.inner(ctx, interest, nonce)
}

func (g *networkGate) setUp(up bool) { g.up.Store(up) }

func (g *networkGate) block(n names.Name) {
	g.mu.Lock()
	g.blocked[n.String()] = true
	g.mu.Unlock()
}

// harness wires one producer side (Publisher/Ingest behind a
// LoopbackFace) to one consumer side (Buffer/PlaybackQueue/Playout
// behind a pair of namespace Pipeliners), mirroring cmd/producer and
// cmd/consumer's wiring without a network.
type harness struct {
	pub *publish.Publisher
	ing *ingest.Ingest

	pool  *pool.Pool
	buf   *buffer.Buffer
	queue *playback.Queue

	downstream *recordingConsumer
	adapter    *frame.Adapter
	strategy   *playout.VideoStrategy
	stats      *stats.Counters

	keyPipe   *pipeliner.Default
	deltaPipe *pipeliner.Default

	ctrl *rebuffer.Controller
	net  *networkGate
}

// newHarness builds a harness with parityShards of Reed-Solomon
// redundancy per frame and depth outstanding interests per namespace.
func newHarness(parityShards, depth, poolCapacity int) *harness {
	streamDepth := len(testStream)

	pitTable := pit.New()
	pub := publish.New(publish.Config{SliceSize: 2000, ParityShards: parityShards}, pitTable)
	pStats := stats.New()
	ing := ingest.New(ingest.Config{Stream: testStream, Thread: testThread}, pub, pitTable, pStats)

	gate := newNetworkGate(ing.Handler)
	producerFace := ndnface.NewLoopbackFace()
	consumerFace := ndnface.NewLoopbackFace()
	ndnface.ConnectLoopback(consumerFace, producerFace)
	_ = producerFace.Serve(context.Background(), testStream, gate.handle)

	p := pool.New(poolCapacity, streamDepth)
	buf := buffer.New(p, streamDepth)
	queue := playback.New(p)
	assembler := fec.New(fec.Params{ParityShards: parityShards})
	timing := jitter.New()
	strategy := playout.NewVideoStrategy()
	st := stats.New()
	downstream := &recordingConsumer{}
	adapter := &frame.Adapter{Stream: testStream, Downstream: downstream, Logger: discardLogger()}

	keyPipe := pipeliner.NewDefault(pipeliner.Config{
		Stream: testStream, Thread: testThread, Namespace: names.Key,
		InitialDepth: depth, RateLimit: rate.Limit(1000), Burst: depth, ParityShards: parityShards,
	}, buf, queue, consumerFace, st)
	deltaPipe := pipeliner.NewDefault(pipeliner.Config{
		Stream: testStream, Thread: testThread, Namespace: names.Delta,
		InitialDepth: depth, RateLimit: rate.Limit(1000), Burst: depth, ParityShards: parityShards,
	}, buf, queue, consumerFace, st)

	h := &harness{
		pub: pub, ing: ing,
		pool: p, buf: buf, queue: queue,
		downstream: downstream, adapter: adapter, strategy: strategy, stats: st,
		keyPipe: keyPipe, deltaPipe: deltaPipe,
		net: gate,
	}

	po := playout.New(queue, p, timing, assembler, strategy, adapter, st)
	h.ctrl = rebuffer.New(buf, queue, po, func() *playout.Playout {
		return playout.New(queue, p, timing, assembler, strategy, adapter, st)
	}, h, func() uint64 { return h.deltaPipe.Playhead() }, rebuffer.Config{
		MaxUnderrunNum: 2,
		EmptyThreshold: 60 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
	})
	adapter.OnQueueEmpty = h.ctrl.RecordUnderrun

	return h
}

// ExcludeBelow implements rebuffer.ExcludeSetter by fanning out to both
// namespace Pipeliners, since a trip must stop either from re-targeting
// a frame below the new floor.
func (h *harness) ExcludeBelow(seq uint64) {
	h.keyPipe.ExcludeBelow(seq)
	h.deltaPipe.ExcludeBelow(seq)
}

// start launches both Pipeliners and the current Playout; it returns a
// cancel func that stops everything and a done channel closed once both
// Pipeliner goroutines have returned.
func (h *harness) start(ctx context.Context) (cancel func(), done <-chan struct{}) {
	ctx, cancelFn := context.WithCancel(ctx)
	h.ctrl.Current().Start(0)
	ch := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); h.keyPipe.Run(ctx) }()
	go func() { defer wg.Done(); h.deltaPipe.Run(ctx) }()
	go func() { wg.Wait(); close(ch) }()
	return cancelFn, ch
}

// publishFrames feeds n synthetic frames into the producer side, a key
// frame every gop frames (gop<=0 means every frame is a key, i.e. no
// GOP structure). size is the raw payload size in bytes.
func publishFrames(h *harness, n, gop, size int) {
	for i := 0; i < n; i++ {
		isKey := gop <= 0 || i%gop == 0
		publishOneFrame(h, i, isKey, 33000, size)
	}
}

// publishOneFrame feeds a single synthetic frame into the producer
// side; tsOffsetUs perturbs TimestampUs away from the fixed i*33ms
// grid publishFrames uses, for deviation scenarios.
func publishOneFrame(h *harness, i int, isKey bool, tsOffsetUs int64, size int) {
	img := frame.EncodedImage{Width: 320, Height: 240, Bytes: make([]byte, size)}
	info := frame.FrameInfo{TimestampUs: uint64(int64(i)*33000 + tsOffsetUs), IsKey: isKey}
	_ = h.ing.IncomingFrame(info, img)
}
