package monitor

import (
	"sync"
	"time"
)

type MemoryKind string

const (
	MemoryTrade       MemoryKind = "trade_execution"
	MemoryCalibration MemoryKind = "calibration"
	MemoryResolution  MemoryKind = "resolution"
	MemoryEvolution   MemoryKind = "strategy_evolution"
)

// MemoryRecord is one long-term memory entry consumed by strategy evolution.
type MemoryRecord struct {
	Kind     MemoryKind `json:"kind"`
	SignalID string     `json:"signal_id,omitempty"`
	PnL      float64    `json:"pnl,omitempty"`
	Note     string     `json:"note,omitempty"`
	At       time.Time  `json:"at"`
}

// MemoryLog is the bounded FIFO long-term memory. Oldest entries fall off
// once the cap is reached.
type MemoryLog struct {
	mu      sync.Mutex
	records []MemoryRecord
	cap     int
}

const DefaultMemoryCap = 10000

func NewMemoryLog(capacity int) *MemoryLog {
	if capacity <= 0 {
		capacity = DefaultMemoryCap
	}
	return &MemoryLog{cap: capacity}
}

func (m *MemoryLog) Append(rec MemoryRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	if len(m.records) > m.cap {
		m.records = m.records[len(m.records)-m.cap:]
	}
}

// Recent returns up to n newest records, oldest first.
func (m *MemoryLog) Recent(n int) []MemoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || n > len(m.records) {
		n = len(m.records)
	}
	out := make([]MemoryRecord, n)
	copy(out, m.records[len(m.records)-n:])
	return out
}

func (m *MemoryLog) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
