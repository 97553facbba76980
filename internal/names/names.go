// Package names builds and parses the NDN-RTC frame and segment naming
// scheme, including the PrefixMetaInfo suffix, independently of any
// wire codec. Conversion to a real NDN name lives in internal/ndnface.
package names

import (
	"fmt"
	"strconv"
	"strings"
)

// Namespace selects the key or delta frame namespace.
type Namespace int

const (
	Delta Namespace = iota
	Key
)

func (n Namespace) String() string {
	if n == Key {
		return "K"
	}
	return "D"
}

// ParseNamespace parses the single-character namespace component.
func ParseNamespace(s string) (Namespace, error) {
	switch s {
	case "K":
		return Key, nil
	case "D":
		return Delta, nil
	default:
		return 0, fmt.Errorf("names: invalid namespace component %q", s)
	}
}

// Name is an ordered sequence of NDN name components. It is a plain
// string slice so it is cheap to build, compare, and use as a map key
// via String().
type Name []string

// String joins components with "/" the way NDN names are conventionally
// displayed; it is not a wire encoding.
func (n Name) String() string {
	return "/" + strings.Join(n, "/")
}

// Append returns a new Name with comps appended; n is not mutated.
func (n Name) Append(comps ...string) Name {
	out := make(Name, 0, len(n)+len(comps))
	out = append(out, n...)
	out = append(out, comps...)
	return out
}

// Prefix returns the first k components. Panics if k > len(n), mirroring
// slice semantics — callers in this package always bound k themselves.
func (n Name) Prefix(k int) Name {
	out := make(Name, k)
	copy(out, n[:k])
	return out
}

// FramePrefix builds {streamPrefix}/{thread}/{K|D}/{seq}.
func FramePrefix(streamPrefix Name, thread string, ns Namespace, seq uint64) Name {
	return streamPrefix.Append(thread, ns.String(), strconv.FormatUint(seq, 10))
}

// SegmentName appends the zero-based segment index to a frame prefix.
func SegmentName(framePrefix Name, seg uint32) Name {
	return framePrefix.Append(strconv.FormatUint(uint64(seg), 10))
}

// FinalBlockID returns the name component encoding of the last segment
// index of a frame — the mechanism by which a consumer learns the total
// segment count from any single received segment.
func FinalBlockID(lastSeg uint32) string {
	return strconv.FormatUint(uint64(lastSeg), 10)
}

// ParsedSegmentName is the decomposition of a full segment name.
type ParsedSegmentName struct {
	StreamPrefix Name
	Thread       string
	Namespace    Namespace
	Seq          uint64
	Seg          uint32
}

// FramePrefix reconstructs the frame-level prefix (without the segment
// component) from a parsed segment name.
func (p ParsedSegmentName) FramePrefix() Name {
	return FramePrefix(p.StreamPrefix, p.Thread, p.Namespace, p.Seq)
}

// ParseSegmentName decomposes a full segment name. streamDepth is the
// number of components that make up the caller's stream prefix (the
// part preceding /{thread}/{K|D}/{seq}/{seg}), since the stream prefix
// itself may contain an arbitrary number of components.
func ParseSegmentName(n Name, streamDepth int) (ParsedSegmentName, error) {
	if len(n) < streamDepth+4 {
		return ParsedSegmentName{}, fmt.Errorf("names: name %s too short for stream depth %d", n, streamDepth)
	}
	thread := n[streamDepth]
	ns, err := ParseNamespace(n[streamDepth+1])
	if err != nil {
		return ParsedSegmentName{}, err
	}
	seq, err := strconv.ParseUint(n[streamDepth+2], 10, 64)
	if err != nil {
		return ParsedSegmentName{}, fmt.Errorf("names: invalid sequence component: %w", err)
	}
	seg, err := strconv.ParseUint(n[streamDepth+3], 10, 32)
	if err != nil {
		return ParsedSegmentName{}, fmt.Errorf("names: invalid segment component: %w", err)
	}
	return ParsedSegmentName{
		StreamPrefix: n.Prefix(streamDepth),
		Thread:       thread,
		Namespace:    ns,
		Seq:          seq,
		Seg:          uint32(seg),
	}, nil
}

// IsRightmostChild reports whether n carries only the thread/namespace
// prefix, with no frame sequence or segment number — an interest for
// "the highest-numbered data under this prefix" used on stream join.
func IsRightmostChild(n Name, streamDepth int) bool {
	return len(n) == streamDepth+2
}

// PrefixMetaInfo is the name-suffix payload a publisher may embed
// on the first segment of a frame and repeat on later segments so any
// arrival lets a consumer extract it. PayloadSize is the true
// header+frame byte length before zero-padding up to the uniform data
// shard size, letting a consumer trim that padding back off on
// reassembly.
type PrefixMetaInfo struct {
	TotalSegments uint32
	PlaybackNo    uint64
	PairedSeq     uint64
	CRC           uint32
	PayloadSize   uint64
}

// Encode renders the suffix as five name components, in the fixed
// order totalSegments/playbackNo/pairedSeq/crc/payloadSize.
func (m PrefixMetaInfo) Encode() []string {
	return []string{
		strconv.FormatUint(uint64(m.TotalSegments), 10),
		strconv.FormatUint(m.PlaybackNo, 10),
		strconv.FormatUint(m.PairedSeq, 10),
		strconv.FormatUint(uint64(m.CRC), 10),
		strconv.FormatUint(m.PayloadSize, 10),
	}
}

// DecodePrefixMetaInfo parses the five-component suffix produced by Encode.
func DecodePrefixMetaInfo(comps []string) (PrefixMetaInfo, error) {
	if len(comps) != 5 {
		return PrefixMetaInfo{}, fmt.Errorf("names: prefix meta info needs 5 components, got %d", len(comps))
	}
	total, err := strconv.ParseUint(comps[0], 10, 32)
	if err != nil {
		return PrefixMetaInfo{}, fmt.Errorf("names: bad totalSegments: %w", err)
	}
	playback, err := strconv.ParseUint(comps[1], 10, 64)
	if err != nil {
		return PrefixMetaInfo{}, fmt.Errorf("names: bad playbackNo: %w", err)
	}
	paired, err := strconv.ParseUint(comps[2], 10, 64)
	if err != nil {
		return PrefixMetaInfo{}, fmt.Errorf("names: bad pairedSeq: %w", err)
	}
	crc, err := strconv.ParseUint(comps[3], 10, 32)
	if err != nil {
		return PrefixMetaInfo{}, fmt.Errorf("names: bad crc: %w", err)
	}
	payloadSize, err := strconv.ParseUint(comps[4], 10, 64)
	if err != nil {
		return PrefixMetaInfo{}, fmt.Errorf("names: bad payloadSize: %w", err)
	}
	return PrefixMetaInfo{
		TotalSegments: uint32(total),
		PlaybackNo:    playback,
		PairedSeq:     paired,
		CRC:           uint32(crc),
		PayloadSize:   payloadSize,
	}, nil
}
