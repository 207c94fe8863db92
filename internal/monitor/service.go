package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"polyflow/internal/bus"
	"polyflow/internal/config"
	"polyflow/internal/logger"
	"polyflow/internal/store"
	"polyflow/internal/store/model"
	"polyflow/internal/types"
)

const layerName = "monitor"

type trackedTrade struct {
	fill   types.Fill
	signal types.Signal
	seenAt time.Time
}

// Service is the learning layer. It watches executed trades, journals them,
// keeps long-term memory, and runs the three background loops (resolution,
// drift, evolution) that feed conclusions back to the top of the pipeline.
type Service struct {
	bus     *bus.Bus
	cfg     config.MonitorConfig
	memory  *MemoryLog
	journal store.Journal

	mu     sync.Mutex
	trades []*trackedTrade

	rngMu sync.Mutex
	rng   *rand.Rand
	nowFn func() time.Time

	// Per-pass probability that an open trade resolves.
	resolveChance float64
}

func NewService(b *bus.Bus, cfg config.MonitorConfig, memory *MemoryLog, journal store.Journal, seed int64) *Service {
	return &Service{
		bus:     b,
		cfg:     cfg,
		memory:  memory,
		journal: journal,
		rng:     rand.New(rand.NewSource(seed)),
		nowFn:   time.Now,

		resolveChance: 0.1,
	}
}

func (s *Service) Bind() {
	s.bus.Subscribe(bus.TypeTradeExecuted, "monitor.trades", s.onTrade)
}

func (s *Service) onTrade(ctx context.Context, evt bus.Event) error {
	te, ok := evt.Payload.(types.TradeExecuted)
	if !ok {
		return fmt.Errorf("unexpected trade_executed payload %T", evt.Payload)
	}

	s.mu.Lock()
	s.trades = append(s.trades, &trackedTrade{fill: te.Fill, signal: te.Signal, seenAt: s.nowFn()})
	s.mu.Unlock()

	s.attribution(te)
	s.checkCalibration(te)
	s.memory.Append(MemoryRecord{
		Kind:     MemoryTrade,
		SignalID: te.Signal.ID,
		At:       s.nowFn(),
	})
	s.journalTrade(ctx, te)
	return nil
}

// attribution reports what drove the trade so post-mortems have a paper
// trail even before resolution.
func (s *Service) attribution(te types.TradeExecuted) {
	logger.Infof("monitor: attribution for %s: direction=%s confidence=%.2f expected_return=%.2f",
		te.Signal.ID, te.Signal.Direction, te.Signal.Confidence, te.Signal.ExpectedReturn)
}

// checkCalibration compares predicted edge against the realized entry. The
// real comparison needs resolution, so until then the error is estimated
// from entry slippage.
func (s *Service) checkCalibration(te types.TradeExecuted) {
	calibrationError := te.Fill.Slippage * 2
	if calibrationError > s.cfg.CalibrationTolerance {
		logger.Warnf("monitor: calibration error %.4f above %.4f for %s",
			calibrationError, s.cfg.CalibrationTolerance, te.Signal.ID)
	}
	s.memory.Append(MemoryRecord{
		Kind:     MemoryCalibration,
		SignalID: te.Signal.ID,
		PnL:      0,
		Note:     fmt.Sprintf("error=%.4f", calibrationError),
		At:       s.nowFn(),
	})
}

func (s *Service) journalTrade(ctx context.Context, te types.TradeExecuted) {
	if s.journal == nil {
		return
	}
	attribution, _ := json.Marshal(map[string]float64{
		"confidence":      te.Signal.Confidence,
		"expected_return": te.Signal.ExpectedReturn,
	})
	rec := model.TradeRecordModel{
		SignalID:        te.Signal.ID,
		Market:          te.Signal.Market,
		Direction:       string(te.Signal.Direction),
		Size:            te.Fill.FilledSize,
		Price:           te.Fill.Price,
		Slippage:        te.Fill.Slippage,
		Fees:            te.Fill.Fees,
		Confidence:      te.Signal.Confidence,
		AttributionJSON: attribution,
		ExecutedAt:      s.nowFn(),
	}
	if err := s.journal.SaveTrade(ctx, rec); err != nil {
		logger.Errorf("monitor: journal write failed for %s: %v", te.Signal.ID, err)
	}
}

func (s *Service) randFloat() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}

func (s *Service) randIntn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

// TradeCount reports how many unresolved trades are being tracked.
func (s *Service) TradeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades)
}

// dropTrade removes a resolved trade from tracking; its history stays in
// memory and the journal.
func (s *Service) dropTrade(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tr := range s.trades {
		if tr.fill.OrderID == id {
			s.trades = append(s.trades[:i], s.trades[i+1:]...)
			return
		}
	}
}

// Memory exposes the long-term memory for the status API.
func (s *Service) Memory() *MemoryLog { return s.memory }
