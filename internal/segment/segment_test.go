package segment

import (
	"testing"

	"ndnrtc/internal/wire"
)

func TestLifecycle(t *testing.T) {
	s := New(3)
	if s.State() != NotUsed {
		t.Fatalf("new segment state = %v", s.State())
	}
	s.InterestIssued(0xabc, 100)
	if s.State() != Pending || s.RequestCount() != 1 {
		t.Fatalf("after issue: state=%v count=%d", s.State(), s.RequestCount())
	}
	s.MarkMissed()
	if s.State() != Missing {
		t.Fatalf("after miss: state=%v", s.State())
	}
	s.InterestIssued(0xdef, 200)
	if s.RequestCount() != 2 {
		t.Fatalf("retransmit count = %d", s.RequestCount())
	}
	s.DataArrived(wire.SegmentMetaHeader{Nonce: 0xdef}, []byte("payload"), 300)
	if s.State() != Fetched {
		t.Fatalf("after data: state=%v", s.State())
	}
	if !s.IsOriginal() {
		t.Fatal("expected original (nonce matches last sent)")
	}
}

func TestIsOriginalFalseOnCachedCopy(t *testing.T) {
	s := New(0)
	s.InterestIssued(1, 0)
	s.DataArrived(wire.SegmentMetaHeader{Nonce: 2}, []byte("x"), 1)
	if s.IsOriginal() {
		t.Fatal("expected non-original when echoed nonce differs")
	}
}

func TestDiscardResets(t *testing.T) {
	s := New(0)
	s.InterestIssued(1, 0)
	s.DataArrived(wire.SegmentMetaHeader{Nonce: 1}, []byte("x"), 1)
	s.Discard()
	if s.State() != NotUsed || s.Payload() != nil || s.RequestCount() != 0 {
		t.Fatalf("discard did not reset: state=%v payload=%v count=%d", s.State(), s.Payload(), s.RequestCount())
	}
}
