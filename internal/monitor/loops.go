package monitor

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"polyflow/internal/bus"
	"polyflow/internal/logger"
	"polyflow/internal/scheduler"
	"polyflow/internal/store/model"
	"polyflow/internal/types"
)

func intervalOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// RunResolution simulates market resolution for tracked trades. Each pass
// gives every unresolved trade a fixed chance of resolving; resolutions go
// to memory, the journal, and back onto the bus as feedback, and the trade
// leaves the tracking slice so it cannot grow without bound.
func (s *Service) RunResolution(ctx context.Context) error {
	sched := scheduler.NewIntervalScheduler(ctx, "resolution-monitor", intervalOr(s.cfg.ResolutionIntervalSeconds, 60*time.Second))
	sched.Start(s.resolutionPass)
	return ctx.Err()
}

func (s *Service) resolutionPass(ctx context.Context) {
	s.mu.Lock()
	pending := append([]*trackedTrade(nil), s.trades...)
	s.mu.Unlock()

	for _, tr := range pending {
		if s.randFloat() >= s.resolveChance {
			continue
		}
		outcome := "YES"
		finalPrice := 1.0
		if s.randFloat() < 0.5 {
			outcome = "NO"
			finalPrice = 0.0
		}
		resolution := types.Resolution{
			TradeID:    tr.fill.OrderID,
			Resolved:   true,
			Outcome:    outcome,
			FinalPrice: finalPrice,
			PnL:        float64(s.randIntn(1501) - 500),
			ResolvedAt: s.nowFn(),
		}

		s.dropTrade(tr.fill.OrderID)

		logger.Infof("monitor: market resolved %s for %s (pnl=%.0f)", outcome, resolution.TradeID, resolution.PnL)
		s.memory.Append(MemoryRecord{
			Kind:     MemoryResolution,
			SignalID: resolution.TradeID,
			PnL:      resolution.PnL,
			At:       resolution.ResolvedAt,
		})
		if s.journal != nil {
			rec := model.ResolutionModel{
				SignalID:   resolution.TradeID,
				Outcome:    outcome,
				FinalPrice: finalPrice,
				PnL:        resolution.PnL,
				ResolvedAt: resolution.ResolvedAt,
			}
			if err := s.journal.SaveResolution(ctx, rec); err != nil {
				logger.Errorf("monitor: resolution journal write failed: %v", err)
			}
		}
		s.bus.Publish(ctx, bus.NewEvent(bus.TypeResolutionFeedback, "resolution_monitor", layerName, resolution))
	}
}

// RunDrift computes the rolling win rate over recent resolutions and raises
// a drift alert when it drops below the threshold.
func (s *Service) RunDrift(ctx context.Context) error {
	sched := scheduler.NewIntervalScheduler(ctx, "drift-detection", intervalOr(s.cfg.DriftIntervalSeconds, 120*time.Second))
	sched.Start(s.driftPass)
	return ctx.Err()
}

func (s *Service) driftPass(ctx context.Context) {
	window := s.cfg.DriftWindow
	if window <= 0 {
		window = 20
	}
	minTrades := s.cfg.DriftMinTrades
	if minTrades <= 0 {
		minTrades = 5
	}

	// Only the newest window of resolutions counts; older ones age out of
	// the drift picture even while still in memory.
	recent := s.resolutionTail(window)
	total := len(recent)
	if total < minTrades {
		return
	}
	wins := 0
	for _, rec := range recent {
		if rec.PnL > 0 {
			wins++
		}
	}

	winRate := float64(wins) / float64(total)
	if winRate >= s.cfg.DriftThreshold {
		logger.Infof("monitor: drift check healthy (win rate %.2f over %d)", winRate, total)
		return
	}
	logger.Warnf("monitor: drift detected, win rate %.2f below %.2f", winRate, s.cfg.DriftThreshold)
	s.bus.Publish(ctx, bus.NewEvent(bus.TypeDriftAlert, "drift_detection", layerName, types.DriftAlert{
		WinRate: winRate,
		Action:  "retrain_needed",
	}))
}

func (s *Service) resolutionTail(n int) []MemoryRecord {
	all := s.memory.Recent(s.memory.Len())
	out := make([]MemoryRecord, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		if all[i].Kind == MemoryResolution {
			out = append(out, all[i])
		}
	}
	return out
}

func (s *Service) scanDepth() int {
	if s.cfg.MemoryScanDepth > 0 {
		return s.cfg.MemoryScanDepth
	}
	return 100
}

// RunEvolution mines memory for winning patterns and publishes evolved
// strategy parameters. The limiter keeps updates from thrashing the
// ingestion tunables even if the scheduler interval is misconfigured low.
func (s *Service) RunEvolution(ctx context.Context) error {
	minGap := intervalOr(s.cfg.EvolutionMinIntervalSeconds, 300*time.Second)
	limiter := rate.NewLimiter(rate.Every(minGap), 1)
	sched := scheduler.NewIntervalScheduler(ctx, "strategy-evolution", intervalOr(s.cfg.EvolutionIntervalSeconds, 300*time.Second))
	sched.Start(func(ctx context.Context) {
		s.evolutionPass(ctx, limiter)
	})
	return ctx.Err()
}

func (s *Service) evolutionPass(ctx context.Context, limiter *rate.Limiter) {
	threshold := s.cfg.PatternThreshold
	if threshold <= 0 {
		threshold = 5
	}

	var winning int
	for _, rec := range s.memory.Recent(s.scanDepth()) {
		if rec.Kind == MemoryResolution && rec.PnL > 0 {
			winning++
		}
	}
	if winning <= threshold {
		return
	}
	if !limiter.Allow() {
		logger.Debugf("monitor: evolution suppressed by rate limit (%d patterns)", winning)
		return
	}

	logger.Infof("monitor: strategy evolution found %d winning patterns", winning)
	update := types.StrategyUpdate{
		PatternsIdentified: winning,
		Params: types.StrategyParams{
			SentimentThreshold:     0.6,
			PositionSizeMultiplier: 1.1,
			RiskTolerance:          "adaptive",
		},
		GeneratedAt: s.nowFn(),
	}
	s.memory.Append(MemoryRecord{Kind: MemoryEvolution, At: update.GeneratedAt})
	s.bus.Publish(ctx, bus.NewEvent(bus.TypeStrategyUpdate, "strategy_evolution", layerName, update))
}
