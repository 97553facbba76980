package slot

import (
	"math/rand"
	"testing"

	"ndnrtc/internal/names"
	"ndnrtc/internal/wire"
)

const streamDepth = 2

var stream = names.Name{"ndn", "room1"}

func makeSegmentData(t *testing.T, n names.Name, meta wire.SegmentMetaHeader, isFirst bool, total uint32, playbackNo uint64, body []byte) Data {
	t.Helper()
	payload := append([]byte{}, meta.Encode()...)
	if isFirst {
		fh := wire.FrameHeader{
			Video:         true,
			EncodedWidth:  640,
			EncodedHeight: 480,
			Timestamp:     1,
			CaptureTimeMs: 1000,
			FrameType:     wire.FrameTypeDelta,
			CompleteFlag:  true,
			PacketMetadata: wire.PacketMetadata{
				PacketRate:          30,
				ProducerTimestampMs: 1000,
			},
		}
		payload = append(payload, fh.Encode()...)
	}
	payload = append(payload, body...)
	pmi := names.PrefixMetaInfo{TotalSegments: total, PlaybackNo: playbackNo}
	full := append(names.Name{}, n...)
	full = append(full, pmi.Encode()...)
	return Data{Name: full, Payload: payload}
}

func TestRightmostBootstrap(t *testing.T) {
	s := NewSlot(streamDepth)
	rightmostName := stream.Append("t0", "D")
	if err := s.AddInterest(rightmostName, 0x1, 100); err != nil {
		t.Fatalf("addInterest: %v", err)
	}
	if s.State() != New {
		t.Fatalf("state after interest = %v", s.State())
	}

	const total = 7
	const segSize = 1000
	framePrefix := names.FramePrefix(stream, "t0", names.Delta, 32)

	order := rand.Perm(total)
	for _, seg := range order {
		body := make([]byte, segSize)
		for i := range body {
			body[i] = byte(seg)
		}
		name := names.SegmentName(framePrefix, uint32(seg))
		d := makeSegmentData(t, name, wire.SegmentMetaHeader{Nonce: 0x1}, seg == 0, total, 320, body)
		if err := s.AppendData(d, int64(200+seg)); err != nil {
			t.Fatalf("appendData seg %d: %v", seg, err)
		}
	}

	if s.State() != Ready {
		t.Fatalf("final state = %v, want Ready", s.State())
	}
	if s.TotalSegments() != total {
		t.Fatalf("totalSegments = %d", s.TotalSegments())
	}
	if s.Seq() != 32 {
		t.Fatalf("seq = %d, want 32", s.Seq())
	}
	if !s.Has(PrefixMeta) {
		t.Fatal("expected PrefixMeta")
	}
	fetched := s.FetchedSegments()
	if len(fetched) != total {
		t.Fatalf("fetched = %d, want %d", len(fetched), total)
	}
	for i, sg := range fetched {
		if int(sg.SegIndex()) != i {
			t.Fatalf("fetched[%d] index = %d", i, sg.SegIndex())
		}
		// Segment 0's payload keeps the frame header ahead of its body.
		body := sg.Payload()
		if i == 0 {
			body = body[wire.FrameHeaderSize:]
		}
		for _, b := range body {
			if b != byte(i) {
				t.Fatalf("segment %d payload corrupted", i)
			}
		}
	}
}

func TestConsistencyMonotonic(t *testing.T) {
	s := NewSlot(streamDepth)
	framePrefix := names.FramePrefix(stream, "t0", names.Delta, 1)
	if err := s.AddInterest(names.SegmentName(framePrefix, 0), 1, 0); err != nil {
		t.Fatalf("addInterest: %v", err)
	}
	prev := s.Consistency()
	d := makeSegmentData(t, names.SegmentName(framePrefix, 0), wire.SegmentMetaHeader{Nonce: 1}, true, 2, 1, []byte("x"))
	if err := s.AppendData(d, 1); err != nil {
		t.Fatalf("appendData: %v", err)
	}
	if s.Consistency()&prev != prev {
		t.Fatal("consistency lost bits")
	}
	if !s.Has(Consistent) {
		t.Fatalf("expected Consistent after header+prefix meta, got %v", s.Consistency())
	}
}

func TestLockPreventsReset(t *testing.T) {
	s := NewSlot(streamDepth)
	if err := s.Lock(); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := s.Reset(); err == nil {
		t.Fatal("expected reset to fail while locked")
	}
	if err := s.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("reset after unlock: %v", err)
	}
	if s.State() != Free {
		t.Fatalf("state after reset = %v", s.State())
	}
}

func TestMarkMissingRequiresPending(t *testing.T) {
	s := NewSlot(streamDepth)
	if err := s.MarkMissing(0); err == nil {
		t.Fatal("expected error marking missing on unknown segment")
	}
	framePrefix := names.FramePrefix(stream, "t0", names.Delta, 1)
	if err := s.AddInterest(names.SegmentName(framePrefix, 0), 1, 0); err != nil {
		t.Fatalf("addInterest: %v", err)
	}
	if err := s.MarkMissing(0); err != nil {
		t.Fatalf("markMissing: %v", err)
	}
	if s.MissingCount() != 1 {
		t.Fatalf("missingCount = %d", s.MissingCount())
	}
}
