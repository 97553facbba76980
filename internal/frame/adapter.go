package frame

import (
	"log/slog"

	"ndnrtc/internal/names"
)

// Adapter bridges internal/playout's low-level Consumer interface
// (playbackNo/isKey/payload/recovered) to the application-facing
// FrameConsumer, satisfying playout.Consumer without playout needing to
// know about FrameInfo/EncodedImage.
type Adapter struct {
	Stream     names.Name
	Downstream FrameConsumer
	Logger     *slog.Logger

	// OnQueueEmpty, if set, is called from QueueEmpty in addition to the
	// debug log — wired to a rebuffer.Controller's RecordUnderrun so an
	// empty PlaybackQueue counts toward the controller's trip condition.
	OnQueueEmpty func()
}

func (a *Adapter) FrameProcessed(playbackNo uint64, isKey bool, payload []byte, recovered bool) {
	info := FrameInfo{PlaybackNo: playbackNo, FramePrefix: a.Stream, IsKey: isKey}
	if err := a.Downstream.ProcessFrame(info, EncodedImage{Bytes: payload}); err != nil {
		a.Logger.Warn("downstream ProcessFrame failed", "playback_no", playbackNo, "err", err)
	}
	if recovered {
		a.Logger.Debug("frame recovered via FEC", "playback_no", playbackNo)
	}
}

func (a *Adapter) FrameSkipped(playbackNo uint64, isKey bool) {
	a.Downstream.FrameSkipped(playbackNo, isKey)
}

func (a *Adapter) RecoveryFailure(playbackNo uint64, isKey bool) {
	a.Logger.Warn("frame recovery failed", "playback_no", playbackNo, "is_key", isKey)
}

func (a *Adapter) QueueEmpty() {
	a.Logger.Debug("playback queue empty")
	if a.OnQueueEmpty != nil {
		a.OnQueueEmpty()
	}
}
