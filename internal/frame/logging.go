package frame

import "log/slog"

// LoggingConsumer is the default FrameConsumer for demos and the
// scenario harness: it logs every delivered or skipped frame instead
// of decoding it.
type LoggingConsumer struct {
	Logger *slog.Logger
}

func (c LoggingConsumer) ProcessFrame(info FrameInfo, img EncodedImage) error {
	c.Logger.Info("frame processed",
		"playback_no", info.PlaybackNo,
		"is_key", info.IsKey,
		"bytes", len(img.Bytes),
	)
	return nil
}

func (c LoggingConsumer) FrameSkipped(playbackNo uint64, isKey bool) {
	c.Logger.Info("frame skipped", "playback_no", playbackNo, "is_key", isKey)
}
