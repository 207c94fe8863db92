package execution

import (
	"context"
	"fmt"

	"polyflow/internal/bus"
	"polyflow/internal/config"
	"polyflow/internal/logger"
	"polyflow/internal/metrics"
	"polyflow/internal/types"
)

const layerName = "execution"

// Service turns risk-approved positions into fills. The path per position
// is sniper pricing, order routing, fill settlement, then the hedge check
// for large fills, with the outcome fanned out to risk and monitoring.
type Service struct {
	bus    *bus.Bus
	cfg    config.TradingConfig
	sniper *Sniper
	model  FillModel
}

func NewService(b *bus.Bus, cfg config.TradingConfig, sniper *Sniper, model FillModel) *Service {
	return &Service{bus: b, cfg: cfg, sniper: sniper, model: model}
}

func (s *Service) Bind() {
	s.bus.Subscribe(bus.TypePriceUpdate, "execution.marks", s.onPrice)
	s.bus.Subscribe(bus.TypeRiskApproved, "execution.executor", s.onRiskApproved)
}

func (s *Service) onPrice(_ context.Context, evt bus.Event) error {
	if pu, ok := evt.Payload.(types.PriceUpdate); ok {
		s.sniper.Observe(pu)
	}
	return nil
}

func (s *Service) onRiskApproved(ctx context.Context, evt bus.Event) error {
	ra, ok := evt.Payload.(types.RiskApproved)
	if !ok {
		return fmt.Errorf("unexpected risk_approved payload %T", evt.Payload)
	}
	position := ra.Position

	order := Order{
		SignalID: ra.SignalID,
		Market:   position.Market,
		Side:     position.Direction,
		Size:     position.Size,
		Price:    s.sniper.Price(position.Market, position.Direction),
	}
	logger.Infof("execution: routing %s %s %.0f @ %.4f", order.SignalID, order.Side, order.Size, order.Price)

	fill := s.model.Fill(ctx, order)
	result := types.ExecutionResult{SignalID: ra.SignalID, Fill: fill, Position: position}

	if fill.Status != types.FillFilled {
		metrics.TradesExecuted.WithLabelValues(string(fill.Status)).Inc()
		logger.Errorf("execution: %s not filled (status=%s)", ra.SignalID, fill.Status)
		s.bus.Publish(ctx, bus.NewEvent(bus.TypeExecutionFailed, "executor", layerName, result))
		return nil
	}

	if fill.FilledSize > s.cfg.HedgeThresholdUSD {
		hedgeSize := position.Size * s.cfg.HedgeRatio
		logger.Infof("execution: hedging %.0f USD against fill %s", hedgeSize, fill.OrderID)
	}

	metrics.TradesExecuted.WithLabelValues(string(fill.Status)).Inc()
	position.EntryPrice = fill.Price
	position.CurrentPrice = fill.Price
	result.Position = position

	s.bus.Publish(ctx, bus.NewEvent(bus.TypeExecutionComplete, "executor", layerName, result))
	s.bus.Publish(ctx, bus.NewEvent(bus.TypePositionUpdate, "executor", layerName, types.PositionUpdate{
		SignalID: ra.SignalID,
		Market:   position.Market,
		Size:     fill.FilledSize,
		Price:    fill.Price,
	}))
	s.bus.Publish(ctx, bus.NewEvent(bus.TypeTradeExecuted, "executor", layerName, types.TradeExecuted{
		Fill:   fill,
		Signal: ra.Signal,
	}))
	logger.Infof("execution: %s filled %.0f @ %.4f (fees %.2f)", ra.SignalID, fill.FilledSize, fill.Price, fill.Fees)
	return nil
}
