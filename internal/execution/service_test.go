package execution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyflow/internal/bus"
	"polyflow/internal/config"
	"polyflow/internal/types"
)

type fixedFill struct {
	status   types.FillStatus
	fraction float64
	slippage float64
}

func (f fixedFill) Fill(_ context.Context, order Order) types.Fill {
	executed := order.Price * (1 + f.slippage)
	if !order.Side.IsBuy() {
		executed = order.Price * (1 - f.slippage)
	}
	return types.Fill{
		OrderID:    order.SignalID,
		Status:     f.status,
		FilledSize: order.Size * f.fraction,
		Price:      roundPrice(executed),
		Slippage:   f.slippage,
		Fees:       order.Size * f.fraction * 0.002,
	}
}

func execConfig() config.TradingConfig {
	return config.TradingConfig{HedgeThresholdUSD: 3000, HedgeRatio: 0.2}
}

func approvedEvent(id string, size float64) bus.Event {
	sig := types.Signal{ID: id, Market: "trump-fed-chair", Direction: types.DirectionBuyYes, Size: size}
	return bus.NewEvent(bus.TypeRiskApproved, "risk_gate", "risk", types.RiskApproved{
		SignalID: id,
		Signal:   sig,
		Position: types.Position{SignalID: id, Market: sig.Market, Direction: sig.Direction, Size: size},
	})
}

func TestFilledOrderFansOutThreeEvents(t *testing.T) {
	b := bus.New(100)
	svc := NewService(b, execConfig(), NewSniper(0.002, 1), fixedFill{status: types.FillFilled, fraction: 1})
	svc.Bind()

	byType := map[bus.EventType]int{}
	b.Subscribe(bus.Wildcard, "test.capture", func(_ context.Context, evt bus.Event) error {
		byType[evt.Type]++
		return nil
	})

	b.Publish(context.Background(), approvedEvent("sig00001", 1000))

	assert.Equal(t, 1, byType[bus.TypeExecutionComplete])
	assert.Equal(t, 1, byType[bus.TypePositionUpdate])
	assert.Equal(t, 1, byType[bus.TypeTradeExecuted])
	assert.Zero(t, byType[bus.TypeExecutionFailed])
}

func TestPartialFillReportsFailure(t *testing.T) {
	b := bus.New(100)
	svc := NewService(b, execConfig(), NewSniper(0.002, 1), fixedFill{status: types.FillPartial, fraction: 0.5})
	svc.Bind()

	var failed []types.ExecutionResult
	b.Subscribe(bus.TypeExecutionFailed, "test.capture", func(_ context.Context, evt bus.Event) error {
		failed = append(failed, evt.Payload.(types.ExecutionResult))
		return nil
	})

	b.Publish(context.Background(), approvedEvent("sig00002", 1000))

	require.Len(t, failed, 1)
	assert.Equal(t, types.FillPartial, failed[0].Fill.Status)
	for _, evt := range b.History() {
		assert.NotEqual(t, bus.TypeTradeExecuted, evt.Type)
	}
}

func TestSniperImprovesBuyPricesDownward(t *testing.T) {
	s := NewSniper(0.002, 7)
	s.Observe(types.PriceUpdate{Market: "m", Price: 0.945})

	for i := 0; i < 50; i++ {
		buy := s.Price("m", types.DirectionBuyYes)
		assert.LessOrEqual(t, buy, 0.945)
		assert.GreaterOrEqual(t, buy, 0.945-0.002-1e-9)

		sell := s.Price("m", types.DirectionSellYes)
		assert.GreaterOrEqual(t, sell, 0.945)
		assert.LessOrEqual(t, sell, 0.945+0.002+1e-9)
	}
}

func TestSniperFallsBackWithoutMark(t *testing.T) {
	s := NewSniper(0.002, 7)
	p := s.Price("unseen-market", types.DirectionBuyYes)
	assert.InDelta(t, fallbackMark, p, 0.003)
}

func TestSimFillModelRespectsBounds(t *testing.T) {
	m := NewSimFillModel(0.001, 0.002, 0.9, 0, 11)
	order := Order{SignalID: "sig00003", Side: types.DirectionBuyYes, Size: 1000, Price: 0.945}

	for i := 0; i < 100; i++ {
		fill := m.Fill(context.Background(), order)
		assert.Contains(t, []types.FillStatus{types.FillFilled, types.FillPartial}, fill.Status)
		assert.LessOrEqual(t, fill.Slippage, 0.001)
		assert.GreaterOrEqual(t, fill.FilledSize, 950.0)
		assert.LessOrEqual(t, fill.FilledSize, 1000.0)
		// Buys slip upward only.
		assert.GreaterOrEqual(t, fill.Price, 0.945-1e-9)
		assert.InDelta(t, fill.FilledSize*0.002, fill.Fees, 1e-9)
	}
}

func TestExecutedPositionCarriesEntryPrice(t *testing.T) {
	b := bus.New(100)
	svc := NewService(b, execConfig(), NewSniper(0, 1), fixedFill{status: types.FillFilled, fraction: 1, slippage: 0})
	svc.Bind()

	var results []types.ExecutionResult
	b.Subscribe(bus.TypeExecutionComplete, "test.capture", func(_ context.Context, evt bus.Event) error {
		results = append(results, evt.Payload.(types.ExecutionResult))
		return nil
	})

	b.Publish(context.Background(), bus.NewEvent(bus.TypePriceUpdate, "t", "ingestion", types.PriceUpdate{Market: "trump-fed-chair", Price: 0.9}))
	b.Publish(context.Background(), approvedEvent("sig00004", 1000))

	require.Len(t, results, 1)
	assert.InDelta(t, 0.9, results[0].Position.EntryPrice, 1e-9)
	assert.InDelta(t, 0.9, results[0].Fill.Price, 1e-9)
}
