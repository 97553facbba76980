package playout

// VideoStrategy implements GOP-validity skip/recovery logic: a delta
// frame seen out of sequence, or before any key frame, invalidates the
// GOP until the next key.
type VideoStrategy struct {
	gopValid bool
	hasPrev  bool
	prevNo   uint64
}

// NewVideoStrategy builds a VideoStrategy with no GOP yet established
// (the first delta frame, if any arrives before a key, is skipped).
func NewVideoStrategy() *VideoStrategy {
	return &VideoStrategy{}
}

// OnSampleReady implements Strategy.
func (v *VideoStrategy) OnSampleReady(isKey bool, playbackNo uint64) Decision {
	if isKey {
		v.gopValid = true
		v.hasPrev = true
		v.prevNo = playbackNo
		return Emit
	}
	if !v.gopValid {
		return Skip
	}
	if v.hasPrev && playbackNo != v.prevNo+1 {
		v.gopValid = false
		return Skip
	}
	v.hasPrev = true
	v.prevNo = playbackNo
	return Emit
}

// AudioStrategy has no GOP concept: every sample is emitted in arrival
// (PlaybackQueue) order.
type AudioStrategy struct{}

// OnSampleReady implements Strategy.
func (AudioStrategy) OnSampleReady(isKey bool, playbackNo uint64) Decision {
	return Emit
}
