package ingestion

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"polyflow/internal/bus"
	"polyflow/internal/config"
	"polyflow/internal/logger"
	"polyflow/internal/metrics"
	"polyflow/internal/types"
)

const layerName = "ingestion"

// Service polls a set of Sources on their own intervals and publishes what
// they return. It is also the consumer end of the feedback cycle: strategy
// updates from the monitoring layer land here and adjust Tunables, which the
// signal layer reads on its next pass.
type Service struct {
	bus      *bus.Bus
	cfg      config.IngestionConfig
	tunables *Tunables
	limiter  *rate.Limiter

	mu      sync.Mutex
	sources []polledSource
}

type polledSource struct {
	src      Source
	interval time.Duration
}

func NewService(b *bus.Bus, cfg config.IngestionConfig, tunables *Tunables) *Service {
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Service{
		bus:      b,
		cfg:      cfg,
		tunables: tunables,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Register adds a source polled at the given interval. Must be called before
// Run.
func (s *Service) Register(src Source, interval time.Duration) {
	if src == nil || interval <= 0 {
		logger.Warnf("ingestion: skipping invalid source registration")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, polledSource{src: src, interval: interval})
}

// Bind wires the feedback subscriptions. Separate from Run so the full
// subscription table is in place before any publisher starts.
func (s *Service) Bind() {
	s.bus.Subscribe(bus.TypeStrategyUpdate, "ingestion.strategy", s.onStrategyUpdate)
	s.bus.Subscribe(bus.TypeResolutionFeedback, "ingestion.resolution", s.onResolution)
}

// Run starts one poll loop per registered source and blocks until all of
// them returned or ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	sources := make([]polledSource, len(s.sources))
	copy(sources, s.sources)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, ps := range sources {
		wg.Add(1)
		go func(ps polledSource) {
			defer wg.Done()
			s.pollLoop(ctx, ps)
		}(ps)
	}
	wg.Wait()
	return ctx.Err()
}

// pollLoop fetches on a fixed interval; consecutive failures stretch the
// wait with doubling backoff up to backoff_max_seconds, and one success
// resets it.
func (s *Service) pollLoop(ctx context.Context, ps polledSource) {
	maxBackoff := time.Duration(s.cfg.BackoffMaxSeconds) * time.Second
	if maxBackoff <= 0 {
		maxBackoff = 300 * time.Second
	}
	wait := ps.interval
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("ingestion: %s stopped", ps.src.Name())
			return
		case <-timer.C:
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		res := ps.src.Fetch(ctx)
		if res.Success {
			wait = ps.interval
			for _, raw := range res.Events {
				evt := bus.NewEvent(raw.Type, raw.Source, layerName, raw.Payload)
				if !raw.Timestamp.IsZero() {
					evt.Timestamp = raw.Timestamp
				}
				s.bus.Publish(ctx, evt)
			}
		} else {
			metrics.IngestionFailures.WithLabelValues(ps.src.Name()).Inc()
			logger.Warnf("ingestion: %s fetch failed, retrying in %s: %v", ps.src.Name(), wait, res.Error)
			wait *= 2
			if wait > maxBackoff {
				wait = maxBackoff
			}
		}
		timer.Reset(wait)
	}
}

func (s *Service) onStrategyUpdate(_ context.Context, evt bus.Event) error {
	update, ok := evt.Payload.(types.StrategyUpdate)
	if !ok {
		logger.Warnf("ingestion: unexpected strategy_update payload %T", evt.Payload)
		return nil
	}
	s.tunables.Apply(update.Params)
	logger.Infof("ingestion: strategy update applied (patterns=%d threshold=%.2f multiplier=%.2f)",
		update.PatternsIdentified, s.tunables.SentimentThreshold(), s.tunables.SizeMultiplier())
	return nil
}

func (s *Service) onResolution(_ context.Context, evt bus.Event) error {
	res, ok := evt.Payload.(types.Resolution)
	if !ok {
		return nil
	}
	if res.Resolved {
		logger.Debugf("ingestion: resolution observed trade=%s outcome=%s pnl=%.2f", res.TradeID, res.Outcome, res.PnL)
	}
	return nil
}
