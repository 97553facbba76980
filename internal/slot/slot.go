// Package slot implements Slot, the consumer-side storage for one
// frame under assembly: its consistency bitmask, state machine, and
// per-segment payloads. Payloads are kept per segment, not copied into
// one contiguous buffer; internal/fec joins them on assembly.
package slot

import (
	"sort"

	"ndnrtc/internal/errs"
	"ndnrtc/internal/names"
	"ndnrtc/internal/segment"
	"ndnrtc/internal/wire"
)

// Consistency is the monotonically-growing bitmask tracking what a
// slot knows about its frame: it only gains bits until reset().
type Consistency uint8

const (
	Inconsistent Consistency = 0
	PrefixMeta   Consistency = 1 << 0
	HeaderMeta   Consistency = 1 << 1
	Consistent               = PrefixMeta | HeaderMeta
)

// State is the Slot's lifecycle position.
type State int

const (
	Free State = iota
	New
	Assembling
	Ready
	Locked
)

func (s State) String() string {
	switch s {
	case Free:
		return "Free"
	case New:
		return "New"
	case Assembling:
		return "Assembling"
	case Ready:
		return "Ready"
	case Locked:
		return "Locked"
	default:
		return "Unknown"
	}
}

// rightmostUnbound marks that the slot was reserved for a
// rightmost-child interest (segment, and in fact the packet number
// itself, unknown until first data arrives).
const rightmostUnbound = ^uint32(0)

// Data is the inbound unit appendData routes: a full segment name plus
// its raw wire payload.
type Data struct {
	Name    names.Name
	Payload []byte
}

// Slot owns all segments of one frame.
type Slot struct {
	streamDepth int

	framePrefix names.Name
	bound       bool

	seq        uint64
	namespace  names.Namespace
	pairedSeq  uint64
	playbackNo uint64

	captureTimeMs int64
	sampleRate    float64

	totalSegments  uint32
	payloadSize    uint64
	segments       map[uint32]*segment.Segment
	assembledCount uint32
	missingCount   uint32
	pendingCount   uint32

	consistency Consistency
	state       State
	stashed     State

	hasDeadline bool
	deadlineMs  int64

	fh wire.FrameHeader
}

// NewSlot constructs a Free slot. streamDepth is the number of leading
// name components belonging to the caller's stream prefix, passed
// through to names.ParseSegmentName.
func NewSlot(streamDepth int) *Slot {
	return &Slot{
		streamDepth: streamDepth,
		segments:    make(map[uint32]*segment.Segment),
		state:       Free,
	}
}

func (s *Slot) State() State             { return s.state }
func (s *Slot) Consistency() Consistency { return s.consistency }
func (s *Slot) FramePrefix() names.Name  { return s.framePrefix }
func (s *Slot) Seq() uint64              { return s.seq }
func (s *Slot) Namespace() names.Namespace { return s.namespace }
func (s *Slot) PairedSeq() uint64        { return s.pairedSeq }
func (s *Slot) PlaybackNo() uint64       { return s.playbackNo }
func (s *Slot) CaptureTimeMs() int64     { return s.captureTimeMs }
func (s *Slot) SampleRate() float64      { return s.sampleRate }
func (s *Slot) TotalSegments() uint32    { return s.totalSegments }
func (s *Slot) PayloadSize() uint64      { return s.payloadSize }
func (s *Slot) AssembledCount() uint32   { return s.assembledCount }
func (s *Slot) MissingCount() uint32     { return s.missingCount }
func (s *Slot) PendingCount() uint32     { return s.pendingCount }
func (s *Slot) FrameHeader() wire.FrameHeader { return s.fh }

// Has reports whether the consistency mask has at least the given bit(s).
func (s *Slot) Has(c Consistency) bool { return s.consistency&c == c }

// Deadline returns the playback deadline in ms and whether one is set.
func (s *Slot) Deadline() (int64, bool) { return s.deadlineMs, s.hasDeadline }

// SetDeadline is called by PlaybackQueue.updateDeadlines.
func (s *Slot) SetDeadline(ms int64) {
	s.deadlineMs = ms
	s.hasDeadline = true
}

// rightmost reports whether n is a rightmost-child interest under this
// slot's stream depth — a thread/namespace prefix with no frame
// sequence or segment component.
func rightmost(n names.Name, streamDepth int) bool {
	return names.IsRightmostChild(n, streamDepth)
}

// AddInterest registers an outstanding interest. Legal only in
// {Free, New, Assembling}; on the first call it binds the slot's frame
// prefix and namespace/seq, transitioning Free → New. A rightmost-child
// interest (no packet/segment number) books the slot under a placeholder
// segment key until the first data arrival resolves it.
func (s *Slot) AddInterest(n names.Name, nonce uint32, nowUs int64) error {
	if s.state == Locked || s.state == Ready {
		return errs.SlotError{Op: "addInterest", Slot: s.framePrefix.String(), Err: errNotAcceptingInterests}
	}

	isRightmost := rightmost(n, s.streamDepth)
	var seg uint32 = rightmostUnbound
	if !isRightmost {
		parsed, err := names.ParseSegmentName(n, s.streamDepth)
		if err != nil {
			return errs.SlotError{Op: "addInterest", Slot: n.String(), Err: err}
		}
		seg = parsed.Seg
		if !s.bound {
			s.framePrefix = parsed.FramePrefix()
			s.seq = parsed.Seq
			s.namespace = parsed.Namespace
		} else if parsed.Seq != s.seq || parsed.Namespace != s.namespace {
			return errs.SlotError{Op: "addInterest", Slot: s.framePrefix.String(), Err: errPacketNumberConflict}
		}
	} else if !s.bound {
		s.framePrefix = n.Prefix(s.streamDepth + 2)
	}
	if !s.bound {
		s.bound = true
		s.state = New
	}

	sg, ok := s.segments[seg]
	if !ok {
		sg = segment.New(seg)
		s.segments[seg] = sg
	}
	if sg.State() == segment.Pending {
		return errs.Warn{Op: "addInterest", Msg: "duplicate interest for segment already pending"}
	}
	wasMissing := sg.State() == segment.Missing
	sg.InterestIssued(nonce, nowUs)
	if wasMissing {
		s.missingCount--
	}
	s.pendingCount++
	return nil
}

// MarkMissing transitions a Pending segment to Missing. Legal only for
// segments currently Pending.
func (s *Slot) MarkMissing(seg uint32) error {
	sg, ok := s.segments[seg]
	if !ok || sg.State() != segment.Pending {
		return errs.SlotError{Op: "markMissing", Slot: s.framePrefix.String(), Err: errSegmentNotPending}
	}
	sg.MarkMissed()
	s.pendingCount--
	s.missingCount++
	return nil
}

// AppendData routes arriving data to its segment, derived from the
// data's own name. Legal only in {New, Assembling}, and only while at
// least one segment is still Pending or at least one segment has
// already been assembled; a rightmost-child placeholder is resolved
// here on first arrival.
func (s *Slot) AppendData(d Data, nowUs int64) error {
	if s.state != New && s.state != Assembling {
		return errs.SlotError{Op: "appendData", Slot: s.framePrefix.String(), Err: errWrongState}
	}

	parsed, err := names.ParseSegmentName(d.Name, s.streamDepth)
	if err != nil {
		return errs.SlotError{Op: "appendData", Slot: s.framePrefix.String(), Err: err}
	}
	seg := parsed.Seg

	if placeholder, ok := s.segments[rightmostUnbound]; ok {
		// Fix rightmost: the placeholder's true packet number is now known.
		delete(s.segments, rightmostUnbound)
		placeholder.Rebind(seg)
		s.segments[seg] = placeholder
		s.seq = parsed.Seq
		s.namespace = parsed.Namespace
		s.framePrefix = parsed.FramePrefix()
	}

	if s.pendingCount == 0 && s.assembledCount == 0 {
		return errs.SlotError{Op: "appendData", Slot: s.framePrefix.String(), Err: errNothingPending}
	}

	meta, body, err := wire.DecodeSegmentMetaHeader(d.Payload)
	if err != nil {
		return errs.SlotError{Op: "appendData", Slot: s.framePrefix.String(), Err: err}
	}

	sg, ok := s.segments[seg]
	if !ok {
		sg = segment.New(seg)
		s.segments[seg] = sg
	}
	wasPending := sg.State() == segment.Pending
	wasMissing := sg.State() == segment.Missing
	sg.DataArrived(meta, body, nowUs)
	if wasPending {
		s.pendingCount--
	}
	if wasMissing {
		s.missingCount--
	}
	s.assembledCount++
	s.state = Assembling

	if seg == 0 {
		if fh, _, err := wire.DecodeFrameHeader(body); err == nil {
			s.fh = fh
			s.captureTimeMs = fh.CaptureTimeMs
			s.sampleRate = fh.PacketMetadata.PacketRate
			s.consistency |= HeaderMeta
		}
	}

	if len(d.Name) >= s.streamDepth+4+5 {
		if pmi, perr := names.DecodePrefixMetaInfo(d.Name[s.streamDepth+4:]); perr == nil {
			s.totalSegments = pmi.TotalSegments
			s.playbackNo = pmi.PlaybackNo
			s.pairedSeq = pmi.PairedSeq
			s.payloadSize = pmi.PayloadSize
			s.consistency |= PrefixMeta
		}
	}

	if s.totalSegments > 0 && s.assembledCount >= s.totalSegments {
		s.state = Ready
	}
	return nil
}

// Lock transitions to Locked, stashing the prior state so Unlock can
// restore it. While Locked, AddInterest, AppendData, Lock and Reset
// return errors; MarkMissing and SetDeadline do not check the lock.
func (s *Slot) Lock() error {
	if s.state == Locked {
		return errs.SlotError{Op: "lock", Slot: s.framePrefix.String(), Err: errAlreadyLocked}
	}
	s.stashed = s.state
	s.state = Locked
	return nil
}

// Unlock restores the state stashed by Lock.
func (s *Slot) Unlock() error {
	if s.state != Locked {
		return errs.SlotError{Op: "unlock", Slot: s.framePrefix.String(), Err: errNotLocked}
	}
	s.state = s.stashed
	return nil
}

// Reset returns the slot to Free, clearing all fields, unless Locked.
func (s *Slot) Reset() error {
	if s.state == Locked {
		return errs.SlotError{Op: "reset", Slot: s.framePrefix.String(), Err: errCannotResetLocked}
	}
	for _, sg := range s.segments {
		sg.Discard()
	}
	s.segments = make(map[uint32]*segment.Segment)
	s.framePrefix = nil
	s.bound = false
	s.seq = 0
	s.namespace = 0
	s.pairedSeq = 0
	s.playbackNo = 0
	s.captureTimeMs = 0
	s.sampleRate = 0
	s.totalSegments = 0
	s.payloadSize = 0
	s.assembledCount = 0
	s.missingCount = 0
	s.pendingCount = 0
	s.consistency = Inconsistent
	s.hasDeadline = false
	s.deadlineMs = 0
	s.fh = wire.FrameHeader{}
	s.state = Free
	return nil
}

// FetchedSegments returns the fetched segments in ascending index
// order, suitable for FrameAssembler input.
func (s *Slot) FetchedSegments() []*segment.Segment {
	out := make([]*segment.Segment, 0, len(s.segments))
	for _, sg := range s.segments {
		if sg.State() == segment.Fetched {
			out = append(out, sg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SegIndex() < out[j].SegIndex() })
	return out
}
