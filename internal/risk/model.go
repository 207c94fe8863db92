package risk

import (
	"math/rand"
	"sync"
)

// Model supplies the stochastic market estimates the gate consumes. Real
// deployments would back this with portfolio analytics; paper mode draws
// from the same distributions the strategy was tuned against.
type Model interface {
	// Correlation estimates how correlated a new position in market would
	// be with the existing book, in [0, 1).
	Correlation(market string) float64
	// PlatformRisk estimates venue-level risk (resolution disputes,
	// liquidity freezes), in [0, 1).
	PlatformRisk() float64
}

// StochasticModel is the paper-mode default.
type StochasticModel struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewStochasticModel(seed int64) *StochasticModel {
	return &StochasticModel{rng: rand.New(rand.NewSource(seed))}
}

func (m *StochasticModel) Correlation(string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64() * 0.8
}

func (m *StochasticModel) PlatformRisk() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()
}

// FixedModel returns constant estimates. Tests use it to drive the gate
// down a chosen path.
type FixedModel struct {
	Corr     float64
	Platform float64
}

func (m FixedModel) Correlation(string) float64 { return m.Corr }
func (m FixedModel) PlatformRisk() float64      { return m.Platform }
