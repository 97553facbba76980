package pit

import (
	"testing"

	"ndnrtc/internal/names"
)

func mustPrefix(t *testing.T, thread string, ns names.Namespace, seq uint64) names.Name {
	t.Helper()
	stream := names.Name{"ndn", "edu", "test", "stream"}
	return names.FramePrefix(stream, thread, ns, seq)
}

func TestExactMatchDeletesEntry(t *testing.T) {
	tbl := New()
	frame := mustPrefix(t, "t0", names.Delta, 5)
	seg := names.SegmentName(frame, 2)

	tbl.AddToPit(seg, 77, 1000)
	if tbl.Len() != 1 {
		t.Fatalf("len = %d, want 1", tbl.Len())
	}

	e, ok := tbl.LookupPrefixInPit(seg)
	if !ok {
		t.Fatal("expected match")
	}
	if e.Nonce != 77 || e.ArrivalMs != 1000 {
		t.Fatalf("got %+v", e)
	}
	if tbl.Len() != 0 {
		t.Fatalf("entry should be deleted after match, len = %d", tbl.Len())
	}
}

func TestPrefixMatchForRightmostInterest(t *testing.T) {
	tbl := New()
	stream := names.Name{"ndn", "edu", "test", "stream"}
	rightmost := stream.Append("t0", names.Delta.String())

	tbl.AddToPit(rightmost, 11, 500)

	frame := mustPrefix(t, "t0", names.Delta, 9)
	seg := names.SegmentName(frame, 0)

	e, ok := tbl.LookupPrefixInPit(seg)
	if !ok {
		t.Fatal("expected rightmost interest to match the first published segment")
	}
	if e.Nonce != 11 {
		t.Fatalf("nonce = %d, want 11", e.Nonce)
	}
	if tbl.Len() != 0 {
		t.Fatalf("matched rightmost entry should be removed, len = %d", tbl.Len())
	}
}

func TestLookupMissReturnsFalse(t *testing.T) {
	tbl := New()
	frame := mustPrefix(t, "t0", names.Delta, 1)
	seg := names.SegmentName(frame, 0)
	if _, ok := tbl.LookupPrefixInPit(seg); ok {
		t.Fatal("expected no match on empty table")
	}
}

func TestEvictUnderPrefixClearsFrame(t *testing.T) {
	tbl := New()
	frame := mustPrefix(t, "t0", names.Delta, 3)
	tbl.AddToPit(names.SegmentName(frame, 0), 1, 0)
	tbl.AddToPit(names.SegmentName(frame, 1), 2, 0)

	other := mustPrefix(t, "t0", names.Delta, 4)
	tbl.AddToPit(names.SegmentName(other, 0), 3, 0)

	tbl.EvictUnderPrefix(frame)
	if tbl.Len() != 1 {
		t.Fatalf("len = %d, want 1 (only the other frame's entry survives)", tbl.Len())
	}
}
