package ingestion

import (
	"sync"
	"time"

	"polyflow/internal/types"
)

// Tunables holds the strategy parameters the monitoring loop evolves. The
// ingestion boundary owns them and consumes strategy_update events; the
// signal generator reads the live sentiment threshold from the same struct,
// which is what closes the Monitoring → Ingestion → Research → Signal cycle.
type Tunables struct {
	mu                 sync.RWMutex
	sentimentThreshold float64
	sizeMultiplier     float64
	updatedAt          time.Time
	revisions          int
}

func NewTunables(sentimentThreshold float64) *Tunables {
	return &Tunables{
		sentimentThreshold: sentimentThreshold,
		sizeMultiplier:     1.0,
	}
}

func (t *Tunables) SentimentThreshold() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sentimentThreshold
}

func (t *Tunables) SizeMultiplier() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sizeMultiplier
}

// Revisions counts applied strategy updates.
func (t *Tunables) Revisions() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.revisions
}

// Apply installs evolved parameters; zero values leave the current ones.
func (t *Tunables) Apply(p types.StrategyParams) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p.SentimentThreshold > 0 {
		t.sentimentThreshold = p.SentimentThreshold
	}
	if p.PositionSizeMultiplier > 0 {
		t.sizeMultiplier = p.PositionSizeMultiplier
	}
	t.updatedAt = time.Now()
	t.revisions++
}
