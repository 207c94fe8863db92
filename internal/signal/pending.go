package signal

import (
	"sync"
	"time"

	"polyflow/internal/types"
)

type pendingEntry struct {
	signal     types.Signal
	challenged bool
	backtested bool
	createdAt  time.Time
}

// pendingTable tracks signals awaiting their two confirmations. Mark
// deletes the entry the moment both branches completed and reports it to
// the caller, so a signal can validate at most once regardless of branch
// arrival order or duplicate confirmations.
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry
	ttl     time.Duration
}

func newPendingTable(ttl time.Duration) *pendingTable {
	return &pendingTable{
		entries: make(map[string]*pendingEntry),
		ttl:     ttl,
	}
}

func (t *pendingTable) add(sig types.Signal, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[sig.ID] = &pendingEntry{signal: sig, createdAt: now}
}

type branch int

const (
	branchChallenge branch = iota
	branchBacktest
)

// mark records one branch completion. The returned signal is valid only
// when complete is true, which happens for exactly one call per id.
func (t *pendingTable) mark(id string, br branch) (types.Signal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[id]
	if !ok {
		return types.Signal{}, false
	}
	switch br {
	case branchChallenge:
		entry.challenged = true
	case branchBacktest:
		entry.backtested = true
	}
	if entry.challenged && entry.backtested {
		delete(t.entries, id)
		return entry.signal, true
	}
	return types.Signal{}, false
}

// sweep drops entries older than the ttl and returns how many were removed.
// Entries with one confirmation leak otherwise when the other branch dies.
func (t *pendingTable) sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, entry := range t.entries {
		if now.Sub(entry.createdAt) > t.ttl {
			delete(t.entries, id)
			removed++
		}
	}
	return removed
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
