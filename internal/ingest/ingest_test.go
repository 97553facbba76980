package ingest

import (
	"context"
	"testing"

	"ndnrtc/internal/frame"
	"ndnrtc/internal/names"
	"ndnrtc/internal/pit"
	"ndnrtc/internal/publish"
	"ndnrtc/internal/stats"
)

func testStream() names.Name {
	return names.Name{"ndn", "edu", "test", "stream"}
}

func TestIncomingFrameCachesSegmentsUnderUnsuffixedNames(t *testing.T) {
	pubTable := pit.New()
	pub := publish.New(publish.Config{SliceSize: 16, ParityShards: 1}, pubTable)
	st := stats.New()
	ing := New(Config{Stream: testStream(), Thread: "t0"}, pub, pubTable, st)

	info := frame.FrameInfo{IsKey: true}
	img := frame.EncodedImage{Width: 640, Height: 480, Bytes: make([]byte, 40)}

	if err := ing.IncomingFrame(info, img); err != nil {
		t.Fatalf("IncomingFrame: %v", err)
	}

	framePrefix := names.FramePrefix(testStream(), "t0", names.Key, 0)
	seg0 := names.SegmentName(framePrefix, 0)

	d, ok := ing.Handler(context.Background(), seg0, 7)
	if !ok {
		t.Fatal("expected cache hit for segment 0 after publish")
	}
	if len(d.Payload) == 0 {
		t.Fatal("expected non-empty cached payload")
	}

	if st.Get(stats.PublishedNum) != 1 {
		t.Fatalf("PublishedNum = %d, want 1", st.Get(stats.PublishedNum))
	}
	if st.Get(stats.PublishedKeyNum) != 1 {
		t.Fatalf("PublishedKeyNum = %d, want 1", st.Get(stats.PublishedKeyNum))
	}
}

func TestHandlerRecordsPitOnMiss(t *testing.T) {
	pubTable := pit.New()
	pub := publish.New(publish.Config{SliceSize: 16}, pubTable)
	ing := New(Config{Stream: testStream(), Thread: "t0"}, pub, pubTable, stats.New())

	framePrefix := names.FramePrefix(testStream(), "t0", names.Delta, 9)
	miss := names.SegmentName(framePrefix, 0)

	_, ok := ing.Handler(context.Background(), miss, 55)
	if ok {
		t.Fatal("expected a cache miss before any publish")
	}
	if pubTable.Len() != 1 {
		t.Fatalf("pit len = %d, want 1 after recorded miss", pubTable.Len())
	}
}

func TestIncomingFrameEvictsOldestBeyondRetain(t *testing.T) {
	pubTable := pit.New()
	pub := publish.New(publish.Config{SliceSize: 16}, pubTable)
	ing := New(Config{Stream: testStream(), Thread: "t0", Retain: 1}, pub, pubTable, stats.New())

	for i := 0; i < 2; i++ {
		if err := ing.IncomingFrame(frame.FrameInfo{}, frame.EncodedImage{Bytes: []byte("x")}); err != nil {
			t.Fatalf("IncomingFrame %d: %v", i, err)
		}
	}

	first := names.SegmentName(names.FramePrefix(testStream(), "t0", names.Delta, 0), 0)
	if _, ok := ing.Handler(context.Background(), first, 0); ok {
		t.Fatal("expected the first frame's segments to be evicted")
	}

	second := names.SegmentName(names.FramePrefix(testStream(), "t0", names.Delta, 1), 0)
	if _, ok := ing.Handler(context.Background(), second, 0); !ok {
		t.Fatal("expected the second frame's segments to still be cached")
	}
}
