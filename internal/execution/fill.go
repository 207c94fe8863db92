package execution

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"polyflow/internal/types"
)

// Order is the routed instruction a fill model executes.
type Order struct {
	SignalID string
	Market   string
	Side     types.Direction
	Size     float64
	Price    float64
}

// FillModel settles an order into a fill. Paper mode simulates the venue;
// tests inject deterministic models.
type FillModel interface {
	Fill(ctx context.Context, order Order) types.Fill
}

// SimFillModel reproduces the venue behavior the strategy was tuned on:
// near-total fills, bounded slippage against the order side, and a flat
// fee on filled notional.
type SimFillModel struct {
	MaxSlippage   float64
	FeeRate       float64
	FillThreshold float64
	Latency       time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimFillModel(maxSlippage, feeRate, fillThreshold float64, latency time.Duration, seed int64) *SimFillModel {
	return &SimFillModel{
		MaxSlippage:   maxSlippage,
		FeeRate:       feeRate,
		FillThreshold: fillThreshold,
		Latency:       latency,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

var fillFractions = []float64{1.0, 1.0, 0.95}

func (m *SimFillModel) Fill(ctx context.Context, order Order) types.Fill {
	if m.Latency > 0 {
		timer := time.NewTimer(m.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return types.Fill{OrderID: order.SignalID, Status: types.FillFailed, Timestamp: time.Now()}
		case <-timer.C:
		}
	}

	m.mu.Lock()
	fraction := fillFractions[m.rng.Intn(len(fillFractions))]
	slippage := m.rng.Float64() * m.MaxSlippage
	m.mu.Unlock()

	executed := order.Price * (1 + slippage)
	if !order.Side.IsBuy() {
		executed = order.Price * (1 - slippage)
	}

	status := types.FillPartial
	if fraction > m.FillThreshold {
		status = types.FillFilled
	}
	filled := order.Size * fraction
	return types.Fill{
		OrderID:    order.SignalID,
		Status:     status,
		FilledSize: filled,
		Price:      roundPrice(executed),
		Slippage:   roundPrice(slippage),
		Fees:       filled * m.FeeRate,
		Timestamp:  time.Now(),
	}
}

// roundPrice keeps all published prices at venue tick precision.
func roundPrice(p float64) float64 {
	return decimal.NewFromFloat(p).Round(4).InexactFloat64()
}
