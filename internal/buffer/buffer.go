// Package buffer implements Buffer, the broker between the interest
// issuer, the network receiver, and the PlaybackQueue.
package buffer

import (
	"errors"
	"sync"
	"time"

	"ndnrtc/internal/errs"
	"ndnrtc/internal/names"
	"ndnrtc/internal/pool"
	"ndnrtc/internal/slot"
)

var errReleased = errors.New("buffer: released")

// Buffer maps frame-name to Slot for slots currently
// Requested/Assembling/Ready/Locked, routing arriving data to the
// correct slot and emitting lifecycle events.
type Buffer struct {
	pool        *pool.Pool
	streamDepth int

	mu     sync.Mutex
	active map[string]pool.Handle

	events   *eventQueue
	released bool
}

// New builds a Buffer over the given pool.
func New(p *pool.Pool, streamDepth int) *Buffer {
	return &Buffer{
		pool:        p,
		streamDepth: streamDepth,
		active:      make(map[string]pool.Handle),
		events:      newEventQueue(),
	}
}

func rightmostKey(n names.Name, streamDepth int) string {
	end := streamDepth + 2
	if end > len(n) {
		end = len(n)
	}
	return n.Prefix(end).String()
}

// RequestIssued looks up or reserves a slot for the named interest,
// records the interest on it, and returns the slot's resulting state.
func (b *Buffer) RequestIssued(n names.Name, nonce uint32, nowUs int64) (slot.State, error) {
	isRightmost := names.IsRightmostChild(n, b.streamDepth)
	var key string
	if isRightmost {
		key = n.String()
	} else {
		parsed, err := names.ParseSegmentName(n, b.streamDepth)
		if err != nil {
			return 0, errs.Warn{Op: "requestIssued", Msg: err.Error()}
		}
		key = parsed.FramePrefix().String()
	}

	b.mu.Lock()
	h, ok := b.active[key]
	newlyReserved := false
	if !ok {
		acquired, ok2 := b.pool.Acquire()
		if !ok2 {
			b.mu.Unlock()
			return 0, errs.BufferFullError{Capacity: b.pool.Capacity()}
		}
		h = acquired
		b.active[key] = h
		newlyReserved = true
	}
	b.mu.Unlock()

	s := b.pool.Slot(h)
	err := s.AddInterest(n, nonce, nowUs)
	if err != nil && !errs.IsWarn(err) {
		return s.State(), err
	}

	if newlyReserved {
		b.events.push(Event{Kind: StateChanged, Prefix: n, Handle: h})
	}
	return s.State(), err
}

// RequestRangeIssued issues requestIssued for each segment in
// [startSeg, endSeg] of the same frame prefix.
func (b *Buffer) RequestRangeIssued(framePrefix names.Name, startSeg, endSeg uint32, nonce uint32, nowUs int64) error {
	for seg := startSeg; seg <= endSeg; seg++ {
		n := names.SegmentName(framePrefix, seg)
		if _, err := b.RequestIssued(n, nonce, nowUs); err != nil && !errs.IsWarn(err) {
			return err
		}
	}
	return nil
}

// Received routes arriving data to its slot, resolving a rightmost-child
// reservation's map key if this is the first data for it.
func (b *Buffer) Received(d slot.Data, nowUs int64) error {
	parsed, err := names.ParseSegmentName(d.Name, b.streamDepth)
	if err != nil {
		return errs.Warn{Op: "received", Msg: err.Error()}
	}
	frameKey := parsed.FramePrefix().String()
	rKey := rightmostKey(d.Name, b.streamDepth)

	b.mu.Lock()
	h, ok := b.active[frameKey]
	if !ok {
		if rh, rok := b.active[rKey]; rok {
			h = rh
			ok = true
			delete(b.active, rKey)
			b.active[frameKey] = h
		}
	}
	b.mu.Unlock()

	if !ok {
		return errs.Warn{Op: "received", Msg: "data for unknown slot: " + frameKey}
	}

	s := b.pool.Slot(h)
	wasAssembled := s.AssembledCount()
	wasState := s.State()
	if err := s.AppendData(d, nowUs); err != nil {
		return err
	}
	if wasAssembled == 0 {
		b.events.push(Event{Kind: FirstSegment, Prefix: s.FramePrefix(), Handle: h})
	}
	if wasState != slot.Ready && s.State() == slot.Ready {
		b.events.push(Event{Kind: Ready, Prefix: s.FramePrefix(), Handle: h})
	}
	return nil
}

// Timeout marks the named segment Missing and emits a Timeout event.
func (b *Buffer) Timeout(n names.Name) error {
	isRightmost := names.IsRightmostChild(n, b.streamDepth)
	var key string
	var seg uint32
	if isRightmost {
		key = n.String()
	} else {
		parsed, err := names.ParseSegmentName(n, b.streamDepth)
		if err != nil {
			return errs.Warn{Op: "timeout", Msg: err.Error()}
		}
		key = parsed.FramePrefix().String()
		seg = parsed.Seg
	}

	b.mu.Lock()
	h, ok := b.active[key]
	b.mu.Unlock()
	if !ok {
		return errs.Warn{Op: "timeout", Msg: "timeout for unknown slot: " + key}
	}
	s := b.pool.Slot(h)
	if isRightmost {
		seg = rightmostSentinel
	}
	if err := s.MarkMissing(seg); err != nil && !errs.IsWarn(err) {
		b.events.push(Event{Kind: ErrorEvent, Prefix: s.FramePrefix(), Name: n, Handle: h, Err: err})
		return err
	}
	b.events.push(Event{Kind: Timeout, Prefix: s.FramePrefix(), Name: n, Handle: h})
	return nil
}

// rightmostSentinel mirrors internal/slot's unexported placeholder key;
// duplicated here since Buffer addresses segments only by interest
// name, never by raw index, except for this one case.
const rightmostSentinel = ^uint32(0)

// FreeSlot returns the slot bound to prefix to the pool, unless Locked.
func (b *Buffer) FreeSlot(prefix names.Name) error {
	key := prefix.String()
	b.mu.Lock()
	h, ok := b.active[key]
	if ok {
		delete(b.active, key)
	}
	b.mu.Unlock()
	if !ok {
		return errs.Warn{Op: "freeSlot", Msg: "no active slot for prefix " + key}
	}
	if err := b.pool.Release(h); err != nil {
		return errs.SlotError{Op: "freeSlot", Slot: key, Err: err}
	}
	b.events.push(Event{Kind: FreeSlot, Prefix: prefix, Handle: h})
	return nil
}

// WaitForEvents blocks for the next event matching mask, or until
// timeout elapses (timeout <= 0 waits forever).
func (b *Buffer) WaitForEvents(mask Kind, timeout time.Duration) (Event, bool) {
	return b.events.wait(mask, timeout)
}

// Release sets the forced-release flag: all current and future waiters
// receive an ErrorEvent.
func (b *Buffer) Release() {
	b.mu.Lock()
	b.released = true
	b.mu.Unlock()
	b.events.close()
}

// Pool exposes the underlying pool for PlaybackQueue wiring.
func (b *Buffer) Pool() *pool.Pool { return b.pool }

// Flush releases every currently-active slot back to the pool and emits
// a FreeSlot event for each, skipping (and leaving bound) any Locked
// slot a consumer is mid-decode on. It is the Buffer side of the
// rebuffer controller's trip action.
func (b *Buffer) Flush() {
	b.mu.Lock()
	active := make(map[string]pool.Handle, len(b.active))
	for k, h := range b.active {
		active[k] = h
	}
	b.mu.Unlock()

	for key, h := range active {
		s := b.pool.Slot(h)
		if s.State() == slot.Locked {
			continue
		}
		prefix := s.FramePrefix()
		if err := b.pool.Release(h); err != nil {
			continue
		}
		b.mu.Lock()
		delete(b.active, key)
		b.mu.Unlock()
		b.events.push(Event{Kind: FreeSlot, Prefix: prefix, Handle: h})
	}
}
