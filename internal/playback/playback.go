// Package playback implements PlaybackQueue, the order-maintaining
// sorted view over buffered slots.
package playback

import (
	"sort"
	"sync"

	"ndnrtc/internal/names"
	"ndnrtc/internal/pool"
	"ndnrtc/internal/slot"
)

// Queue is an order-invariant-maintaining sorted view over handles into
// a shared pool.Pool. It holds non-owning handles only — the pool owns
// slot storage.
type Queue struct {
	pool *pool.Pool

	mu      sync.Mutex
	handles []pool.Handle
}

// New builds a Queue over the shared pool p.
func New(p *pool.Pool) *Queue {
	return &Queue{pool: p}
}

// less implements the queue's total order across six ordering rules
// applied in order; the first applicable rule decides.
func less(a, b *slot.Slot) bool {
	aHeader, bHeader := a.Has(slot.HeaderMeta), b.Has(slot.HeaderMeta)
	if aHeader && bHeader {
		return a.CaptureTimeMs() < b.CaptureTimeMs()
	}
	if aHeader != bHeader {
		return aHeader
	}
	aPrefix, bPrefix := a.Has(slot.PrefixMeta), b.Has(slot.PrefixMeta)
	if aPrefix && bPrefix {
		return a.PlaybackNo() < b.PlaybackNo()
	}
	if a.Namespace() == b.Namespace() && !aPrefix && !bPrefix {
		return a.Seq() < b.Seq()
	}
	if a.Namespace() != b.Namespace() {
		aIsDelta := a.Namespace() == names.Delta
		var delta, key *slot.Slot
		if aIsDelta {
			delta, key = a, b
		} else {
			delta, key = b, a
		}
		deltaHasPrefix, keyHasPrefix := delta.Has(slot.PrefixMeta), key.Has(slot.PrefixMeta)
		if deltaHasPrefix && !keyHasPrefix {
			// rule 5: delta's paired key sequence against this key's sequence.
			deltaFirst := delta.PairedSeq() < key.Seq()
			if aIsDelta {
				return deltaFirst
			}
			return !deltaFirst
		}
		if !keyHasPrefix && !deltaHasPrefix {
			// rule 6: both Inconsistent, cross-namespace — delta precedes key.
			return aIsDelta
		}
	}
	// Fall through: stable sort preserves existing relative order.
	return false
}

// Push inserts a handle and re-sorts.
func (q *Queue) Push(h pool.Handle) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handles = append(q.handles, h)
	q.sortLocked()
}

func (q *Queue) sortLocked() {
	sort.SliceStable(q.handles, func(i, j int) bool {
		return less(q.pool.Slot(q.handles[i]), q.pool.Slot(q.handles[j]))
	})
}

// Peek returns the handle due for playout next, without removing it.
func (q *Queue) Peek() (pool.Handle, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.handles) == 0 {
		return 0, false
	}
	return q.handles[0], true
}

// Pop removes and returns the head handle, re-sorting the remainder.
func (q *Queue) Pop() (pool.Handle, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.handles) == 0 {
		return 0, false
	}
	h := q.handles[0]
	q.handles = q.handles[1:]
	q.sortLocked()
	return h, true
}

// Len returns the number of buffered handles.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.handles)
}

// Clear discards every queued handle without touching the pool: the
// slots themselves are released by Buffer.Flush, which owns the
// active-slot bookkeeping this queue only orders a view over.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.handles = nil
	q.mu.Unlock()
}

// inferredFrameDurationMs derives a duration from a slot's declared
// sample rate, falling back to a sane default when no rate is known yet.
func inferredFrameDurationMs(s *slot.Slot) float64 {
	if s.SampleRate() > 0 {
		return 1000 / s.SampleRate()
	}
	return 33 // ~30fps default until HeaderMeta arrives
}

// Duration estimates total playable duration across the queue: the sum
// of inter-slot durations (capture-timestamp deltas where both ends are
// HeaderMeta, else inferred) plus one inferred frame for a non-Consistent
// tail.
func (q *Queue) Duration() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.handles) == 0 {
		return 0
	}
	var total float64
	for i := 0; i+1 < len(q.handles); i++ {
		a := q.pool.Slot(q.handles[i])
		b := q.pool.Slot(q.handles[i+1])
		if a.Has(slot.HeaderMeta) && b.Has(slot.HeaderMeta) {
			total += float64(b.CaptureTimeMs() - a.CaptureTimeMs())
		} else {
			total += inferredFrameDurationMs(a)
		}
	}
	last := q.pool.Slot(q.handles[len(q.handles)-1])
	if !last.Has(slot.Consistent) {
		total += inferredFrameDurationMs(last)
	}
	return total
}

// UpdateDeadlines recomputes each slot's playback deadline relative to
// the head of the queue.
func (q *Queue) UpdateDeadlines() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.handles) == 0 {
		return
	}
	var acc int64
	for i, h := range q.handles {
		s := q.pool.Slot(h)
		if i == 0 {
			s.SetDeadline(0)
			continue
		}
		prev := q.pool.Slot(q.handles[i-1])
		if prev.Has(slot.HeaderMeta) && s.Has(slot.HeaderMeta) {
			acc += s.CaptureTimeMs() - prev.CaptureTimeMs()
		} else {
			acc += int64(inferredFrameDurationMs(prev))
		}
		s.SetDeadline(acc)
	}
}

// PlayoutDuration returns the ms until the slot following head is due,
// the value Playout needs per tick.
func (q *Queue) PlayoutDuration(head pool.Handle) float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.handles) == 0 {
		return inferredFrameDurationMs(q.pool.Slot(head))
	}
	headSlot := q.pool.Slot(head)
	if len(q.handles) == 1 {
		return inferredFrameDurationMs(headSlot)
	}
	next := q.pool.Slot(q.handles[1])
	if headSlot.Has(slot.HeaderMeta) && next.Has(slot.HeaderMeta) {
		return float64(next.CaptureTimeMs() - headSlot.CaptureTimeMs())
	}
	return inferredFrameDurationMs(headSlot)
}
