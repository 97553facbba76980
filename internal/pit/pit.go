// Package pit implements the producer-side PendingInterestTable: a
// mapping from segment name to (arrival timestamp, echoed nonce),
// guarded by its own mutex — addToPit, lookupPrefixInPit and
// EvictUnderPrefix are the only mutators.
package pit

import (
	"sync"

	"ndnrtc/internal/names"
)

// Entry is one pending interest's producer-observed state.
type Entry struct {
	Name      names.Name
	Nonce     uint32
	ArrivalMs int64
}

// Table is the producer-side PIT. Entries are created on interest
// arrival and deleted either when matched against outgoing data or when
// the whole parent frame has been published, whichever comes first.
type Table struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// New builds an empty PIT.
func New() *Table {
	return &Table{entries: make(map[string]Entry)}
}

// AddToPit records an incoming interest. A duplicate interest for the
// same name overwrites the prior entry (latest nonce/arrival wins).
func (t *Table) AddToPit(n names.Name, nonce uint32, arrivalMs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[n.String()] = Entry{Name: n, Nonce: nonce, ArrivalMs: arrivalMs}
}

// LookupPrefixInPit finds and removes the pending interest that
// matches segmentName: an exact match takes priority; otherwise the
// entry whose name is the longest prefix of segmentName (a
// rightmost-child or frame-level interest satisfied by this segment).
func (t *Table) LookupPrefixInPit(segmentName names.Name) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := segmentName.String()
	if e, ok := t.entries[key]; ok {
		delete(t.entries, key)
		return e, true
	}

	var best Entry
	bestLen := -1
	var bestKey string
	for k, e := range t.entries {
		if len(e.Name) > len(segmentName) {
			continue
		}
		if isPrefix(e.Name, segmentName) && len(e.Name) > bestLen {
			best = e
			bestLen = len(e.Name)
			bestKey = k
		}
	}
	if bestLen < 0 {
		return Entry{}, false
	}
	delete(t.entries, bestKey)
	return best, true
}

func isPrefix(prefix, n names.Name) bool {
	if len(prefix) > len(n) {
		return false
	}
	for i := range prefix {
		if prefix[i] != n[i] {
			return false
		}
	}
	return true
}

// EvictUnderPrefix removes every pending entry under framePrefix —
// called after all of a frame's segments have been published, so any
// stale rightmost-child interests for it are dropped.
func (t *Table) EvictUnderPrefix(framePrefix names.Name) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, e := range t.entries {
		if isPrefix(framePrefix, e.Name) {
			delete(t.entries, k)
		}
	}
}

// Len reports the number of pending entries, for tests and stats.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
