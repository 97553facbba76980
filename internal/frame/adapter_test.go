package frame

import (
	"errors"
	"log/slog"
	"testing"

	"ndnrtc/internal/names"
)

type recordingDownstream struct {
	processed []FrameInfo
	skipped   []uint64
	failNext  bool
}

func (d *recordingDownstream) ProcessFrame(info FrameInfo, img EncodedImage) error {
	if d.failNext {
		d.failNext = false
		return errors.New("boom")
	}
	d.processed = append(d.processed, info)
	return nil
}

func (d *recordingDownstream) FrameSkipped(playbackNo uint64, isKey bool) {
	d.skipped = append(d.skipped, playbackNo)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestAdapterFrameProcessedDelegates(t *testing.T) {
	down := &recordingDownstream{}
	a := &Adapter{Stream: names.Name{"ndn", "s"}, Downstream: down, Logger: discardLogger()}

	a.FrameProcessed(5, true, []byte("hi"), false)

	if len(down.processed) != 1 || down.processed[0].PlaybackNo != 5 || !down.processed[0].IsKey {
		t.Fatalf("unexpected processed record: %+v", down.processed)
	}
}

func TestAdapterFrameProcessedToleratesDownstreamError(t *testing.T) {
	down := &recordingDownstream{failNext: true}
	a := &Adapter{Stream: names.Name{"ndn", "s"}, Downstream: down, Logger: discardLogger()}

	a.FrameProcessed(1, false, []byte("x"), false) // must not panic
}

func TestAdapterFrameSkippedDelegates(t *testing.T) {
	down := &recordingDownstream{}
	a := &Adapter{Stream: names.Name{"ndn", "s"}, Downstream: down, Logger: discardLogger()}

	a.FrameSkipped(3, false)

	if len(down.skipped) != 1 || down.skipped[0] != 3 {
		t.Fatalf("unexpected skipped record: %+v", down.skipped)
	}
}

func TestAdapterRecoveryFailureAndQueueEmptyDoNotPanic(t *testing.T) {
	a := &Adapter{Stream: names.Name{"ndn", "s"}, Downstream: &recordingDownstream{}, Logger: discardLogger()}
	a.RecoveryFailure(2, true)
	a.QueueEmpty()
}

func TestAdapterQueueEmptyInvokesCallback(t *testing.T) {
	var calls int
	a := &Adapter{
		Stream:     names.Name{"ndn", "s"},
		Downstream: &recordingDownstream{},
		Logger:     discardLogger(),
		OnQueueEmpty: func() { calls++ },
	}

	a.QueueEmpty()
	a.QueueEmpty()

	if calls != 2 {
		t.Fatalf("OnQueueEmpty calls = %d, want 2", calls)
	}
}
