// Package publish implements the producer-side Segmenter/Publisher:
// fragmenting an encoded frame into named (unsigned) segments plus FEC
// parity, matching each against the pending-interest table, and
// stamping the per-segment wire metadata.
package publish

import (
	"hash/crc32"

	"github.com/klauspost/reedsolomon"

	"ndnrtc/internal/names"
	"ndnrtc/internal/pit"
	"ndnrtc/internal/wire"
)

// Config controls fragmentation and redundancy. SliceSize bounds the
// payload bytes per data segment; ParityShards is the number of Reed-
// Solomon parity segments appended after the data segments (0 disables
// FEC).
type Config struct {
	SliceSize    int
	ParityShards int
}

// Segment is one named, wire-ready unit the caller hands to a Face for
// signing and transmission.
type Segment struct {
	Name    names.Name
	Payload []byte
}

// Published is the result of publishing one frame.
type Published struct {
	FramePrefix   names.Name
	Segments      []Segment
	FinalBlockID  string
	TotalSegments uint32
}

// Publisher fragments frames and matches outgoing segments against a
// PendingInterestTable.
type Publisher struct {
	cfg Config
	pit *pit.Table
}

// New builds a Publisher. pit may be shared with the Face's interest
// handler; Publisher only reads and evicts from it.
func New(cfg Config, pit *pit.Table) *Publisher {
	if cfg.SliceSize <= 0 {
		cfg.SliceSize = 4096
	}
	return &Publisher{cfg: cfg, pit: pit}
}

// PublishFrame fragments frameBytes (the raw encoded image, without the
// frame header) under stream/thread/ns/seq, embeds fh in segment 0, and
// returns the ordered, wire-ready segments in segment-ascending order.
// nowMs is the producer's local publish time, used for generationDelayMs.
func (p *Publisher) PublishFrame(
	stream names.Name,
	thread string,
	ns names.Namespace,
	seq uint64,
	frameBytes []byte,
	fh wire.FrameHeader,
	playbackNo, pairedSeq uint64,
	nowMs int64,
) (Published, error) {
	full := append(fh.Encode(), frameBytes...)

	shardSize := p.cfg.SliceSize
	dataShards := (len(full) + shardSize - 1) / shardSize
	if dataShards == 0 {
		dataShards = 1
	}

	dataBuf := make([][]byte, dataShards)
	for i := 0; i < dataShards; i++ {
		start := i * shardSize
		end := start + shardSize
		if end > len(full) {
			end = len(full)
		}
		shard := make([]byte, shardSize)
		copy(shard, full[start:end])
		dataBuf[i] = shard
	}

	parityShards := p.cfg.ParityShards
	allShards := dataBuf
	if parityShards > 0 {
		enc, err := reedsolomon.New(dataShards, parityShards)
		if err != nil {
			return Published{}, err
		}
		allShards = make([][]byte, dataShards+parityShards)
		copy(allShards, dataBuf)
		for i := dataShards; i < dataShards+parityShards; i++ {
			allShards[i] = make([]byte, shardSize)
		}
		if err := enc.Encode(allShards); err != nil {
			return Published{}, err
		}
	}

	framePrefix := names.FramePrefix(stream, thread, ns, seq)
	meta := names.PrefixMetaInfo{
		TotalSegments: uint32(dataShards),
		PlaybackNo:    playbackNo,
		PairedSeq:     pairedSeq,
		CRC:           crc32.ChecksumIEEE(full),
		PayloadSize:   uint64(len(full)),
	}
	suffix := meta.Encode()

	segments := make([]Segment, len(allShards))
	for i, shard := range allShards {
		name := names.SegmentName(framePrefix, uint32(i)).Append(suffix...)

		var nonce uint32
		var interestArrivalMs uint64
		var generationDelayMs uint32
		if p.pit != nil {
			if e, ok := p.pit.LookupPrefixInPit(name); ok {
				nonce = e.Nonce
				interestArrivalMs = uint64(e.ArrivalMs)
				if nowMs > e.ArrivalMs {
					generationDelayMs = uint32(nowMs - e.ArrivalMs)
				}
			}
		}

		segMeta := wire.SegmentMetaHeader{
			Nonce:             nonce,
			InterestArrivalMs: interestArrivalMs,
			GenerationDelayMs: generationDelayMs,
		}
		payload := make([]byte, 0, wire.SegmentMetaHeaderSize+len(shard))
		payload = append(payload, segMeta.Encode()...)
		payload = append(payload, shard...)

		segments[i] = Segment{Name: name, Payload: payload}
	}

	if p.pit != nil {
		p.pit.EvictUnderPrefix(framePrefix)
	}

	return Published{
		FramePrefix:   framePrefix,
		Segments:      segments,
		FinalBlockID:  names.FinalBlockID(uint32(len(allShards) - 1)),
		TotalSegments: uint32(dataShards),
	}, nil
}
