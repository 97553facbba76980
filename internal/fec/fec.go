// Package fec implements the Assembler: reconstructing an encoded
// frame's bytes from a slot's fetched segments, invoking Reed-Solomon
// recovery when fewer than the declared data-segment count arrived but
// enough data-plus-parity did.
package fec

import (
	"errors"

	"github.com/klauspost/reedsolomon"

	"ndnrtc/internal/segment"
)

// ErrRecoveryFailed is returned when fewer than DataShards segments
// survived across the whole data+parity set — the caller must drop the
// slot.
var ErrRecoveryFailed = errors.New("fec: insufficient segments to recover frame")

// Params configures the erasure code. Both producer and consumer must
// agree on these out of band (they are not carried on the wire).
type Params struct {
	DataShards   int
	ParityShards int
}

// Assembler reconstructs frame bytes from a slot's fetched segments.
type Assembler struct {
	params Params
}

// New builds an Assembler for the given shard split.
func New(params Params) *Assembler {
	return &Assembler{params: params}
}

// Result is the outcome of an assembly attempt.
type Result struct {
	// Bytes is the concatenated encoded-frame bytes, valid when Recovered
	// is false, or reconstructed via FEC when Recovered is true.
	Bytes     []byte
	Recovered bool
}

// Assemble reconstructs the frame from fetched, the segments that
// arrived (no nil entries), each placed by its own SegIndex. The shard
// size used by the erasure code is the longest payload present; short
// shards are zero-padded for the RS computation, and the result is
// trimmed to totalPayloadSize when that is positive.
func (a *Assembler) Assemble(fetched []*segment.Segment, totalSegmentsDeclared int, totalPayloadSize int) (Result, error) {
	present := make(map[int][]byte, len(fetched))
	maxIdx := -1
	for _, sg := range fetched {
		idx := int(sg.SegIndex())
		present[idx] = sg.Payload()
		if idx > maxIdx {
			maxIdx = idx
		}
	}

	dataShards := a.params.DataShards
	if dataShards == 0 {
		dataShards = totalSegmentsDeclared
	}

	// Fast path: every data shard (indices [0, dataShards)) is present,
	// no FEC needed.
	complete := true
	for i := 0; i < dataShards; i++ {
		if _, ok := present[i]; !ok {
			complete = false
			break
		}
	}
	if complete {
		return Result{Bytes: concatTrimmed(present, dataShards, totalPayloadSize), Recovered: false}, nil
	}

	if len(present) < dataShards {
		return Result{}, ErrRecoveryFailed
	}

	parityShards := a.params.ParityShards
	if parityShards == 0 {
		parityShards = maxIdx + 1 - dataShards
		if parityShards < 0 {
			parityShards = 0
		}
	}
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return Result{}, err
	}

	shardSize := 0
	for _, b := range present {
		if len(b) > shardSize {
			shardSize = len(b)
		}
	}
	shards := make([][]byte, dataShards+parityShards)
	for i := range shards {
		if b, ok := present[i]; ok {
			padded := make([]byte, shardSize)
			copy(padded, b)
			shards[i] = padded
		}
	}
	if err := enc.Reconstruct(shards); err != nil {
		return Result{}, ErrRecoveryFailed
	}

	recoveredPresent := make(map[int][]byte, dataShards)
	for i := 0; i < dataShards; i++ {
		recoveredPresent[i] = shards[i]
	}
	return Result{Bytes: concatTrimmed(recoveredPresent, dataShards, totalPayloadSize), Recovered: true}, nil
}

func concatTrimmed(present map[int][]byte, dataShards, totalPayloadSize int) []byte {
	out := make([]byte, 0, totalPayloadSize)
	for i := 0; i < dataShards; i++ {
		out = append(out, present[i]...)
	}
	if totalPayloadSize > 0 && len(out) > totalPayloadSize {
		out = out[:totalPayloadSize]
	}
	return out
}
