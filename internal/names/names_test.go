package names

import "testing"

func TestFramePrefixAndSegmentName(t *testing.T) {
	stream := Name{"ndn", "edu", "ucla", "room1"}
	fp := FramePrefix(stream, "t0", Delta, 32)
	if fp.String() != "/ndn/edu/ucla/room1/t0/D/32" {
		t.Fatalf("got %s", fp)
	}
	seg := SegmentName(fp, 3)
	if seg.String() != "/ndn/edu/ucla/room1/t0/D/32/3" {
		t.Fatalf("got %s", seg)
	}
}

func TestParseSegmentName(t *testing.T) {
	stream := Name{"ndn", "edu", "ucla", "room1"}
	fp := FramePrefix(stream, "t0", Key, 7)
	seg := SegmentName(fp, 0)
	parsed, err := ParseSegmentName(seg, len(stream))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Thread != "t0" || parsed.Namespace != Key || parsed.Seq != 7 || parsed.Seg != 0 {
		t.Fatalf("got %+v", parsed)
	}
	if parsed.FramePrefix().String() != fp.String() {
		t.Fatalf("frame prefix mismatch: %s vs %s", parsed.FramePrefix(), fp)
	}
}

func TestIsRightmostChild(t *testing.T) {
	stream := Name{"a", "b"}
	threadNs := stream.Append("t0", "D")
	if !IsRightmostChild(threadNs, len(stream)) {
		t.Fatal("expected thread/namespace-only prefix to be rightmost child")
	}
	fp := FramePrefix(stream, "t0", Delta, 1)
	if IsRightmostChild(fp, len(stream)) {
		t.Fatal("expected a fully-specified frame prefix not to be rightmost child")
	}
}

func TestPrefixMetaInfoRoundTrip(t *testing.T) {
	m := PrefixMetaInfo{TotalSegments: 7, PlaybackNo: 100, PairedSeq: 31, CRC: 0xcafef00d}
	got, err := DecodePrefixMetaInfo(m.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != m {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestParseNamespaceInvalid(t *testing.T) {
	if _, err := ParseNamespace("X"); err == nil {
		t.Fatal("expected error for invalid namespace component")
	}
}
