package risk

import (
	"sync"

	"polyflow/internal/types"
)

// positionTable is the gate's book of open positions, keyed by signal id.
// Exposure accounting happens here so the limit check, in-flight
// reservations, and the release path agree on one number.
type positionTable struct {
	mu       sync.Mutex
	open     map[string]*types.Position
	reserved map[string]float64
}

func newPositionTable() *positionTable {
	return &positionTable{
		open:     make(map[string]*types.Position),
		reserved: make(map[string]float64),
	}
}

// reserve holds size against the limit in one step, before the gate's slower
// checks run. It reports the exposure at check time and whether the hold fit
// under the limit.
func (t *positionTable) reserve(id string, size, limit float64) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	exposure := t.exposureLocked()
	if exposure+size > limit {
		return exposure, false
	}
	t.reserved[id] = size
	return exposure, true
}

func (t *positionTable) unreserve(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.reserved, id)
}

// commit swaps the reservation for an open position at the final size.
func (t *positionTable) commit(p types.Position) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.reserved, p.SignalID)
	cp := p
	t.open[p.SignalID] = &cp
}

func (t *positionTable) release(id string) (types.Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.open[id]
	if !ok {
		return types.Position{}, false
	}
	delete(t.open, id)
	return *p, true
}

func (t *positionTable) exposure() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exposureLocked()
}

func (t *positionTable) exposureLocked() float64 {
	var sum float64
	for _, p := range t.open {
		sum += p.Size
	}
	for _, size := range t.reserved {
		sum += size
	}
	return sum
}

func (t *positionTable) updatePrice(id string, price float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.open[id]
	if !ok {
		return false
	}
	p.CurrentPrice = price
	return true
}

func (t *positionTable) setCorrelation(id string, score float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.open[id]; ok {
		p.CorrelationScore = score
	}
}

func (t *positionTable) list() []types.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.Position, 0, len(t.open))
	for _, p := range t.open {
		out = append(out, *p)
	}
	return out
}

func (t *positionTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}
