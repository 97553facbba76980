package pipeliner

import (
	"testing"

	"ndnrtc/internal/buffer"
	"ndnrtc/internal/names"
	"ndnrtc/internal/ndnface"
	"ndnrtc/internal/playback"
	"ndnrtc/internal/pool"
	"ndnrtc/internal/slot"
	"ndnrtc/internal/stats"
)

func testStream() names.Name {
	return names.Name{"ndn", "edu", "test", "stream"}
}

func newTestDefault() (*Default, *buffer.Buffer, *playback.Queue) {
	p := pool.New(4, len(testStream()))
	buf := buffer.New(p, len(testStream()))
	pq := playback.New(p)
	face := ndnface.NewLoopbackFace() // unconnected: Express closes immediately
	d := NewDefault(Config{Stream: testStream(), Thread: "t0", Namespace: names.Delta, InitialDepth: 2}, buf, pq, face, stats.New())
	return d, buf, pq
}

func TestOnEventReadyPushesToPlayback(t *testing.T) {
	d, buf, pq := newTestDefault()

	framePrefix := names.FramePrefix(testStream(), "t0", names.Delta, 1)
	if _, err := buf.RequestIssued(names.SegmentName(framePrefix, 0), 1, 0); err != nil {
		t.Fatalf("RequestIssued: %v", err)
	}

	meta := names.PrefixMetaInfo{TotalSegments: 1, PlaybackNo: 1}
	name := names.SegmentName(framePrefix, 0).Append(meta.Encode()...)
	segData := append([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, []byte("x")...) // zeroed SegmentMetaHeader + payload
	if err := buf.Received(slot.Data{Name: name, Payload: segData}, 0); err != nil {
		t.Fatalf("Received: %v", err)
	}

	e, ok := buf.WaitForEvents(buffer.Ready, 0)
	if !ok {
		t.Fatal("expected a Ready event")
	}
	d.OnEvent(e)
	if pq.Len() != 1 {
		t.Fatalf("playback len = %d, want 1", pq.Len())
	}
}

func TestHandleTimeoutGivesUpAfterMaxRetries(t *testing.T) {
	d, _, _ := newTestDefault()
	framePrefix := names.FramePrefix(testStream(), "t0", names.Delta, 1)
	segName := names.SegmentName(framePrefix, 0)
	ev := buffer.Event{Kind: buffer.Timeout, Prefix: framePrefix, Name: segName}

	max := TargetMaxRetries(0)
	for i := 0; i < max; i++ {
		d.handleTimeout(ev)
	}
	before := d.stats.Get(stats.DroppedNum)
	d.handleTimeout(ev) // exceeds budget
	after := d.stats.Get(stats.DroppedNum)
	if after != before+1 {
		t.Fatalf("DroppedNum did not increment on give-up: before=%d after=%d", before, after)
	}
}

func TestExcludeBelowRaisesFloor(t *testing.T) {
	d, _, _ := newTestDefault()
	d.ExcludeBelow(50)
	d.mu.Lock()
	exclude, playhead := d.excludeFilter, d.playhead
	d.mu.Unlock()
	if exclude != 50 || playhead != 50 {
		t.Fatalf("exclude=%d playhead=%d, want both 50", exclude, playhead)
	}
}

func TestSetLinkQualityAdaptsDepth(t *testing.T) {
	d, _, _ := newTestDefault()
	d.mu.Lock()
	d.depth = 10
	d.mu.Unlock()
	// One sample is smoothed with alpha 0.3 from zero: 0.50 becomes 0.15.
	d.SetLinkQuality(0.50, 50)
	d.mu.Lock()
	depth := d.depth
	d.mu.Unlock()
	if depth >= 10 {
		t.Fatalf("depth = %d, expected a step down from 10 after high loss", depth)
	}
}
