// Package ingest implements the producer-side bridge between a
// frame.FrameSource caller (the synthetic generator in cmd/producer, or
// a real encoder) and the Segmenter/Publisher: it fragments each
// incoming frame, caches the resulting segments so a Face's interest
// Handler can answer synchronously, and bounds that cache to the most
// recently published frames.
package ingest

import (
	"context"
	"sync"
	"time"

	"ndnrtc/internal/frame"
	"ndnrtc/internal/names"
	"ndnrtc/internal/ndnface"
	"ndnrtc/internal/pit"
	"ndnrtc/internal/publish"
	"ndnrtc/internal/stats"
	"ndnrtc/internal/wire"
)

// Signer is implemented by ndnface.WebTransportFace's SignPayload
// method. Wiring it here, rather than coupling Ingest to a concrete
// Face type, lets the one cryptographic touchpoint stay at the
// ndnface boundary while still being exercised once per published
// frame.
type Signer interface {
	SignPayload(payload []byte) ([]byte, error)
}

// Config controls naming, cache retention, and the optional signer.
type Config struct {
	Stream names.Name
	Thread string
	// Retain is the number of most recent frames, across both
	// namespaces, kept in the segment cache. Older frames are evicted
	// FIFO once exceeded. Zero selects a default of 64.
	Retain int
	// Signer, if set, signs each published frame's bytes once and each
	// success counts toward SignNum; the signature itself is discarded,
	// and a signing error is ignored without dropping the frame.
	Signer Signer
}

// Ingest is a frame.FrameSource: IncomingFrame fragments and caches a
// frame's segments, ready to answer matching interests.
type Ingest struct {
	cfg   Config
	pub   *publish.Publisher
	pit   *pit.Table
	stats *stats.Counters

	mu       sync.Mutex
	nextSeq  map[names.Namespace]uint64
	playback uint64
	cache    map[string]ndnface.Data // keyed by the unsuffixed segment name
	order    []string                // FIFO of frame-prefix keys, oldest first
	byPrefix map[string][]string     // frame-prefix key -> its cache keys
}

var _ frame.FrameSource = (*Ingest)(nil)

// New builds an Ingest publishing under cfg.Stream/cfg.Thread via pub,
// recording pending-interest misses into pit for the Publisher's
// nonce/arrival-time stamping, and updating st.
func New(cfg Config, pub *publish.Publisher, pitTable *pit.Table, st *stats.Counters) *Ingest {
	if cfg.Retain <= 0 {
		cfg.Retain = 64
	}
	return &Ingest{
		cfg:      cfg,
		pub:      pub,
		pit:      pitTable,
		stats:    st,
		nextSeq:  make(map[names.Namespace]uint64),
		cache:    make(map[string]ndnface.Data),
		byPrefix: make(map[string][]string),
	}
}

// SetSigner attaches a Signer after construction, for callers (like
// cmd/producer) that only obtain their Face, and therefore a signer,
// after standing up the Ingest that will warm its cache from the first
// synthetic frame.
func (ing *Ingest) SetSigner(s Signer) {
	ing.mu.Lock()
	ing.cfg.Signer = s
	ing.mu.Unlock()
}

// IncomingFrame fragments img under the next sequence number of
// info.IsKey's namespace and caches the resulting segments.
func (ing *Ingest) IncomingFrame(info frame.FrameInfo, img frame.EncodedImage) error {
	ns := names.Delta
	if info.IsKey {
		ns = names.Key
	}

	ing.mu.Lock()
	seq := ing.nextSeq[ns]
	ing.nextSeq[ns] = seq + 1
	playbackNo := ing.playback
	ing.playback++
	ing.mu.Unlock()

	fh := wire.FrameHeader{
		Video:         true,
		EncodedWidth:  img.Width,
		EncodedHeight: img.Height,
		Timestamp:     uint32(info.TimestampUs / 1000),
		CaptureTimeMs: time.Now().UnixMilli(),
		FrameType:     frameType(info.IsKey),
		CompleteFlag:  true,
	}

	published, err := ing.pub.PublishFrame(
		ing.cfg.Stream, ing.cfg.Thread, ns, seq,
		img.Bytes, fh, playbackNo, 0,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return err
	}

	ing.store(published)
	ing.recordStats(info, published, len(img.Bytes))

	ing.mu.Lock()
	signer := ing.cfg.Signer
	ing.mu.Unlock()
	if signer != nil {
		full := append(fh.Encode(), img.Bytes...)
		if _, err := signer.SignPayload(full); err == nil {
			ing.stats.Incr(stats.SignNum, 1)
		}
	}

	return nil
}

func frameType(isKey bool) wire.FrameType {
	if isKey {
		return wire.FrameTypeKey
	}
	return wire.FrameTypeDelta
}

func (ing *Ingest) recordStats(info frame.FrameInfo, p publish.Published, rawBytes int) {
	ing.stats.Incr(stats.PublishedNum, 1)
	if info.IsKey {
		ing.stats.Incr(stats.PublishedKeyNum, 1)
	}
	ing.stats.Incr(stats.PublishedSegmentsNum, int64(len(p.Segments)))
	ing.stats.Incr(stats.RawBytesPublished, int64(rawBytes))

	var wireBytes int64
	for _, seg := range p.Segments {
		wireBytes += int64(len(seg.Payload))
	}
	ing.stats.Incr(stats.BytesPublished, wireBytes)
}

// store caches every segment under its unsuffixed name (the shape an
// incoming interest actually carries, since a consumer does not know
// the PrefixMetaInfo suffix in advance) and evicts the oldest frame
// once the retained count is exceeded.
func (ing *Ingest) store(p publish.Published) {
	ing.mu.Lock()
	defer ing.mu.Unlock()

	prefixKey := p.FramePrefix.String()
	keys := make([]string, 0, len(p.Segments))
	for i, seg := range p.Segments {
		base := names.SegmentName(p.FramePrefix, uint32(i))
		ing.cache[base.String()] = ndnface.Data{Name: seg.Name, Payload: seg.Payload}
		keys = append(keys, base.String())
	}
	ing.byPrefix[prefixKey] = keys
	ing.order = append(ing.order, prefixKey)

	for len(ing.order) > ing.cfg.Retain {
		oldest := ing.order[0]
		ing.order = ing.order[1:]
		for _, k := range ing.byPrefix[oldest] {
			delete(ing.cache, k)
		}
		delete(ing.byPrefix, oldest)
	}
}

// Handler answers an interest from the cache, falling back to
// recording it in the PendingInterestTable (for a frame still being
// produced) and declining.
func (ing *Ingest) Handler(ctx context.Context, interest names.Name, nonce uint32) (ndnface.Data, bool) {
	ing.mu.Lock()
	d, ok := ing.cache[interest.String()]
	ing.mu.Unlock()
	if ok {
		return d, true
	}
	if ing.pit != nil {
		ing.pit.AddToPit(interest, nonce, time.Now().UnixMilli())
	}
	return ndnface.Data{}, false
}
