package execution

import (
	"math/rand"
	"sync"

	"polyflow/internal/logger"
	"polyflow/internal/types"
)

const fallbackMark = 0.945

// Sniper watches marks and shaves a small improvement off the quoted price
// in the order's favor before routing.
type Sniper struct {
	epsilon float64

	mu    sync.Mutex
	rng   *rand.Rand
	marks map[string]float64
}

func NewSniper(epsilon float64, seed int64) *Sniper {
	return &Sniper{
		epsilon: epsilon,
		rng:     rand.New(rand.NewSource(seed)),
		marks:   make(map[string]float64),
	}
}

// Observe records the latest mark for a market.
func (s *Sniper) Observe(pu types.PriceUpdate) {
	if pu.Market == "" || pu.Price <= 0 {
		return
	}
	s.mu.Lock()
	s.marks[pu.Market] = pu.Price
	s.mu.Unlock()
}

// Price returns the improved entry price for the given market and side.
// Buys improve downward, sells upward.
func (s *Sniper) Price(market string, side types.Direction) float64 {
	s.mu.Lock()
	base, ok := s.marks[market]
	improvement := s.rng.Float64() * s.epsilon
	s.mu.Unlock()
	if !ok {
		base = fallbackMark
	}
	price := base + improvement
	if side.IsBuy() {
		price = base - improvement
	}
	logger.Debugf("execution: sniper improved %s by %.4f to %.4f", market, improvement, price)
	return roundPrice(price)
}
