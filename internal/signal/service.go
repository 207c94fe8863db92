package signal

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"polyflow/internal/bus"
	"polyflow/internal/config"
	"polyflow/internal/ingestion"
	"polyflow/internal/logger"
	"polyflow/internal/metrics"
	"polyflow/internal/scheduler"
	"polyflow/internal/types"
)

const layerName = "signal"

// Service owns the signal lifecycle: generation from insights, the two
// confirmation branches, and the join that publishes validated_signal
// exactly once per signal.
type Service struct {
	bus      *bus.Bus
	cfg      config.SignalConfig
	tunables *ingestion.Tunables
	pending  *pendingTable

	nowFn   func() time.Time
	sleepFn func(ctx context.Context, d time.Duration) bool
}

func NewService(b *bus.Bus, cfg config.SignalConfig, tunables *ingestion.Tunables) *Service {
	ttl := time.Duration(cfg.PendingTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &Service{
		bus:      b,
		cfg:      cfg,
		tunables: tunables,
		pending:  newPendingTable(ttl),
		nowFn:    time.Now,
		sleepFn:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Bind wires the lifecycle subscriptions. Both confirmation branches listen
// on alpha_signal; the join listens on both completion types.
func (s *Service) Bind() {
	s.bus.Subscribe(bus.TypeResearchInsight, "signal.generator", s.onInsight)
	s.bus.Subscribe(bus.TypeAlphaSignal, "signal.challenger", s.onChallenge)
	s.bus.Subscribe(bus.TypeAlphaSignal, "signal.backtester", s.onBacktest)
	s.bus.Subscribe(bus.TypeChallengeComplete, "signal.validator", s.onConfirmation(branchChallenge))
	s.bus.Subscribe(bus.TypeBacktestComplete, "signal.validator", s.onConfirmation(branchBacktest))
}

// RunSweeper expires half-confirmed signals until ctx is cancelled.
func (s *Service) RunSweeper(ctx context.Context) error {
	interval := time.Duration(s.cfg.SweepIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 60 * time.Second
	}
	sched := scheduler.NewIntervalScheduler(ctx, "signal-sweeper", interval)
	sched.Start(func(ctx context.Context) {
		if removed := s.pending.sweep(s.nowFn()); removed > 0 {
			logger.Warnf("signal: expired %d pending signals without full confirmation", removed)
		}
	})
	return ctx.Err()
}

func newSignalID() string {
	sum := md5.Sum([]byte(uuid.NewString()))
	return hex.EncodeToString(sum[:])[:8]
}

// onInsight turns a sufficiently confident insight into an alpha signal.
// The threshold and size multiplier come from Tunables so strategy updates
// from the monitoring layer take effect on the next insight.
func (s *Service) onInsight(ctx context.Context, evt bus.Event) error {
	insight, ok := evt.Payload.(types.Insight)
	if !ok {
		return fmt.Errorf("unexpected research_insight payload %T", evt.Payload)
	}
	threshold := s.tunables.SentimentThreshold()

	var direction types.Direction
	switch {
	case insight.Sentiment > threshold:
		direction = types.DirectionBuyYes
	case insight.Sentiment < -threshold:
		direction = types.DirectionBuyNo
	default:
		return nil
	}

	sig := types.Signal{
		ID:             newSignalID(),
		Market:         insight.Market,
		Direction:      direction,
		Size:           s.cfg.DefaultSizeUSD * s.tunables.SizeMultiplier(),
		Confidence:     insight.Confidence,
		ExpectedReturn: s.cfg.ExpectedReturn,
		CreatedAt:      s.nowFn(),
	}
	s.pending.add(sig, sig.CreatedAt)
	logger.Infof("signal: %s %s %s size=%.0f (from %s)", sig.ID, sig.Direction, sig.Market, sig.Size, insight.Agent)
	s.bus.Publish(ctx, bus.NewEvent(bus.TypeAlphaSignal, "alpha_generator", layerName, sig))
	return nil
}

// onChallenge plays devil's advocate against the signal. The delay models
// the adversarial review taking real time; a signal that fails basic sanity
// is reported invalid and will never complete the join.
func (s *Service) onChallenge(ctx context.Context, evt bus.Event) error {
	sig, ok := evt.Payload.(types.Signal)
	if !ok {
		return fmt.Errorf("unexpected alpha_signal payload %T", evt.Payload)
	}
	if !s.sleepFn(ctx, time.Duration(s.cfg.ChallengeDelayMs)*time.Millisecond) {
		return ctx.Err()
	}
	valid := sig.Size > 0 && sig.Confidence > 0 && sig.Market != ""
	assessment := "acceptable"
	if !valid {
		assessment = "rejected: degenerate signal"
	}
	s.bus.Publish(ctx, bus.NewEvent(bus.TypeChallengeComplete, "challenger", layerName, types.Confirmation{
		SignalID:       sig.ID,
		RiskAssessment: assessment,
		Valid:          valid,
	}))
	return nil
}

// onBacktest replays the signal against recent history. Paper mode has no
// real backtest engine, so this vouches for any well-formed signal after
// the configured delay.
func (s *Service) onBacktest(ctx context.Context, evt bus.Event) error {
	sig, ok := evt.Payload.(types.Signal)
	if !ok {
		return fmt.Errorf("unexpected alpha_signal payload %T", evt.Payload)
	}
	if !s.sleepFn(ctx, time.Duration(s.cfg.BacktestDelayMs)*time.Millisecond) {
		return ctx.Err()
	}
	s.bus.Publish(ctx, bus.NewEvent(bus.TypeBacktestComplete, "backtester", layerName, types.Confirmation{
		SignalID:       sig.ID,
		RiskAssessment: "historical edge confirmed",
		Valid:          sig.Size > 0,
	}))
	return nil
}

// onConfirmation is the join point. The pending table guarantees the
// completed signal comes back exactly once, whichever branch lands last.
func (s *Service) onConfirmation(br branch) bus.Handler {
	return func(ctx context.Context, evt bus.Event) error {
		conf, ok := evt.Payload.(types.Confirmation)
		if !ok {
			return fmt.Errorf("unexpected confirmation payload %T", evt.Payload)
		}
		if !conf.Valid {
			logger.Warnf("signal: %s failed confirmation (%s)", conf.SignalID, conf.RiskAssessment)
			return nil
		}
		sig, complete := s.pending.mark(conf.SignalID, br)
		if !complete {
			return nil
		}
		metrics.SignalsValidated.Inc()
		logger.Infof("signal: %s validated by both branches", sig.ID)
		s.bus.Publish(ctx, bus.NewEvent(bus.TypeValidatedSignal, "validator", layerName, types.ValidatedSignal{
			Signal: sig,
			Status: "validated",
		}))
		return nil
	}
}

// PendingCount is exposed for the status API.
func (s *Service) PendingCount() int { return s.pending.len() }
