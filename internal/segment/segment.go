// Package segment implements Segment, the per-segment state machine
// tracked inside a Slot.
package segment

import "ndnrtc/internal/wire"

// State is a Segment's lifecycle position: NotUsed → Pending →
// {Fetched | Missing}; Missing may re-enter Pending on retransmission.
type State int

const (
	NotUsed State = iota
	Pending
	Missing
	Fetched
)

func (s State) String() string {
	switch s {
	case NotUsed:
		return "NotUsed"
	case Pending:
		return "Pending"
	case Missing:
		return "Missing"
	case Fetched:
		return "Fetched"
	default:
		return "Unknown"
	}
}

// nonceOption represents an absent nonce with ok=false rather than
// reserving an out-of-range sentinel value.
type nonceOption struct {
	value uint32
	ok    bool
}

// Segment is one addressable unit of a frame.
type Segment struct {
	index uint32

	payload []byte

	sentNonce nonceOption
	meta      wire.SegmentMetaHeader
	hasMeta   bool

	requestIssuedUs int64
	arrivalUs       int64
	requestCount    int

	state State
}

// New constructs a segment at its given index, in the NotUsed state.
func New(index uint32) *Segment {
	return &Segment{index: index, state: NotUsed}
}

// SegIndex returns the segment's zero-based index.
func (s *Segment) SegIndex() uint32 { return s.index }

// Rebind changes the segment's recorded index, used when a
// rightmost-child placeholder's true packet number becomes known on
// first data arrival ("fix rightmost").
func (s *Segment) Rebind(index uint32) { s.index = index }

// State returns the current lifecycle state.
func (s *Segment) State() State { return s.state }

// Payload returns the fetched payload bytes, or nil if not yet Fetched.
func (s *Segment) Payload() []byte { return s.payload }

// Meta returns the stamped per-segment metadata; only valid once Fetched.
func (s *Segment) Meta() wire.SegmentMetaHeader { return s.meta }

// RequestCount returns how many times an interest has been issued for
// this segment.
func (s *Segment) RequestCount() int { return s.requestCount }

// ArrivalUs returns the consumer-local arrival timestamp in microseconds.
func (s *Segment) ArrivalUs() int64 { return s.arrivalUs }

// InterestIssued transitions NotUsed/Missing → Pending, recording the
// nonce sent and the issue timestamp (consumer-local microseconds).
func (s *Segment) InterestIssued(nonce uint32, nowUs int64) {
	s.sentNonce = nonceOption{value: nonce, ok: true}
	s.requestIssuedUs = nowUs
	s.requestCount++
	s.state = Pending
}

// MarkMissed transitions Pending → Missing. It is a caller error to call
// this on any other state; callers in internal/slot only do so after
// checking State().
func (s *Segment) MarkMissed() {
	s.state = Missing
}

// DataArrived transitions {Pending, Missing} → Fetched, storing the
// payload and stamped metadata. Once Fetched, the segment's fields are
// read-only until discard().
func (s *Segment) DataArrived(meta wire.SegmentMetaHeader, payload []byte, nowUs int64) {
	if s.state == Fetched {
		return
	}
	s.meta = meta
	s.hasMeta = true
	s.payload = payload
	s.arrivalUs = nowUs
	s.state = Fetched
}

// IsOriginal reports whether the echoed nonce in the fetched metadata
// equals the nonce this consumer sent — distinguishing a direct
// response from a cached copy. Only originals should feed an RTT
// estimator.
func (s *Segment) IsOriginal() bool {
	if !s.hasMeta || !s.sentNonce.ok {
		return false
	}
	return s.meta.Nonce == s.sentNonce.value
}

// Discard resets the segment to NotUsed, clearing all fields, as part
// of a slot reset.
func (s *Segment) Discard() {
	s.payload = nil
	s.meta = wire.SegmentMetaHeader{}
	s.hasMeta = false
	s.sentNonce = nonceOption{}
	s.requestIssuedUs = 0
	s.arrivalUs = 0
	s.requestCount = 0
	s.state = NotUsed
}
