// Package frame defines the two small interfaces at the edges of the
// core pipeline where a real codec would plug in: FrameConsumer on the
// playout-to-application side and FrameSource on the
// raw-frame-to-producer side, generalized to already-encoded images
// since pixel codecs themselves are out of scope here.
package frame

import "ndnrtc/internal/names"

// FrameInfo carries the per-frame identifying metadata a downstream
// decoder needs alongside the encoded bytes.
type FrameInfo struct {
	TimestampUs uint64
	PlaybackNo  uint64
	FramePrefix names.Name
	IsKey       bool
}

// EncodedImage is an already-encoded frame's bytes plus its pixel
// dimensions. Raw pixel buffers never reach this boundary.
type EncodedImage struct {
	Width  uint32
	Height uint32
	Bytes  []byte
}

// FrameConsumer receives assembled, still-encoded frames in strict playbackNo order
// unless a FrameSkipped call precedes.
type FrameConsumer interface {
	ProcessFrame(info FrameInfo, img EncodedImage) error
	FrameSkipped(playbackNo uint64, isKey bool)
}

// FrameSource is implemented by whatever feeds already-encoded images
// into the producer.
type FrameSource interface {
	IncomingFrame(info FrameInfo, img EncodedImage) error
}
