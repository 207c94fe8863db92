package risk

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyflow/internal/bus"
	"polyflow/internal/config"
	"polyflow/internal/types"
)

func testTradingConfig() config.TradingConfig {
	return config.TradingConfig{
		Mode:                  "paper",
		PortfolioValue:        10000,
		MaxPositionSize:       5000,
		MaxPortfolioRisk:      0.1,
		KellyFraction:         0.25,
		ApprovalThresholdUSD:  2000,
		AssumedVolatility:     0.15,
		VaRConfidenceQuantile: 1.645,
	}
}

type memoryAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (m *memoryAudit) Record(_ context.Context, e AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryAudit) all() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AuditEntry(nil), m.entries...)
}

func approveAll(context.Context, types.Position) bool { return true }

func newTestGate(b *bus.Bus, model Model, audit AuditSink) *Gate {
	return NewGate(b, testTradingConfig(), model, ApproverFunc(approveAll), audit)
}

func publishValidated(b *bus.Bus, sig types.Signal) {
	b.Publish(context.Background(), bus.NewEvent(bus.TypeValidatedSignal, "validator", "signal", types.ValidatedSignal{
		Signal: sig, Status: "validated",
	}))
}

func captureApproved(b *bus.Bus) *[]types.RiskApproved {
	var out []types.RiskApproved
	b.Subscribe(bus.TypeRiskApproved, "test.capture", func(_ context.Context, evt bus.Event) error {
		out = append(out, evt.Payload.(types.RiskApproved))
		return nil
	})
	return &out
}

func TestKellySizingBoundsThePosition(t *testing.T) {
	b := bus.New(100)
	gate := newTestGate(b, FixedModel{Corr: 0.2, Platform: 0.1}, nil)
	gate.Bind()
	approved := captureApproved(b)

	// kelly = 10000 * 0.05 * 0.8 * 0.25 = 100, below working size and cap.
	publishValidated(b, types.Signal{
		ID: "sig00001", Market: "trump-fed-chair", Direction: types.DirectionBuyYes,
		Size: 2000, Confidence: 0.8, ExpectedReturn: 0.05,
	})

	require.Len(t, *approved, 1)
	assert.InDelta(t, 100, (*approved)[0].Position.Size, 1e-9)
	assert.False(t, (*approved)[0].Position.NeedsHumanApproval)
}

func TestCorrelationHalvesWorkingSize(t *testing.T) {
	b := bus.New(100)
	gate := newTestGate(b, FixedModel{Corr: 0.6, Platform: 0.1}, nil)
	gate.Bind()
	approved := captureApproved(b)

	// High confidence and edge keep kelly above the halved working size:
	// kelly = 10000 * 0.9 * 0.9 * 0.25 = 2025, working = 1000/2 = 500.
	publishValidated(b, types.Signal{
		ID: "sig00002", Market: "trump-fed-chair", Direction: types.DirectionBuyYes,
		Size: 1000, Confidence: 0.9, ExpectedReturn: 0.9,
	})

	require.Len(t, *approved, 1)
	assert.InDelta(t, 500, (*approved)[0].Position.Size, 1e-9)
	assert.InDelta(t, 0.6, (*approved)[0].Position.CorrelationScore, 1e-9)
}

func TestExposureLimitRejects(t *testing.T) {
	b := bus.New(100)
	audit := &memoryAudit{}
	gate := newTestGate(b, FixedModel{Corr: 0.2, Platform: 0.1}, audit)
	gate.Bind()
	approved := captureApproved(b)

	// Preload the book close to the 8000 limit.
	gate.positions.commit(types.Position{SignalID: "open0001", Size: 7500})

	publishValidated(b, types.Signal{
		ID: "sig00003", Market: "trump-fed-chair", Direction: types.DirectionBuyYes,
		Size: 1000, Confidence: 0.8, ExpectedReturn: 0.05,
	})

	assert.Empty(t, *approved)
	entries := audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "rejected", entries[0].Decision)
	assert.Equal(t, "exposure_limit", entries[0].Reason)
	assert.InDelta(t, 7500, gate.Exposure(), 1e-9)
}

func TestTailRiskRejectsOversizedVaR(t *testing.T) {
	b := bus.New(100)
	cfg := testTradingConfig()
	cfg.MaxPortfolioRisk = 0.01
	gate := NewGate(b, cfg, FixedModel{Corr: 0.2, Platform: 0.1}, ApproverFunc(approveAll), nil)
	gate.Bind()
	approved := captureApproved(b)

	// VaR = 5000 * 0.15 * 1.645 / 10000 = 0.1234 > 0.01.
	publishValidated(b, types.Signal{
		ID: "sig00004", Market: "trump-fed-chair", Direction: types.DirectionBuyYes,
		Size: 5000, Confidence: 0.8, ExpectedReturn: 0.05,
	})
	assert.Empty(t, *approved)
}

func TestPlatformRiskHedgesInsteadOfRejecting(t *testing.T) {
	b := bus.New(100)
	gate := newTestGate(b, FixedModel{Corr: 0.2, Platform: 0.9}, nil)
	gate.Bind()
	approved := captureApproved(b)

	publishValidated(b, types.Signal{
		ID: "sig00005", Market: "trump-fed-chair", Direction: types.DirectionBuyYes,
		Size: 1000, Confidence: 0.8, ExpectedReturn: 0.05,
	})

	require.Len(t, *approved, 1)
	assert.True(t, (*approved)[0].Position.Hedged)
}

func TestLargePositionsRequireApproval(t *testing.T) {
	b := bus.New(100)
	var asked []types.Position
	approver := ApproverFunc(func(_ context.Context, p types.Position) bool {
		asked = append(asked, p)
		return p.Size < 4000
	})
	gate := NewGate(b, testTradingConfig(), FixedModel{Corr: 0.2, Platform: 0.1}, approver, nil)
	gate.Bind()
	approved := captureApproved(b)

	// kelly = 10000 * 0.9 * 1.0 * 0.25 = 2250 > threshold 2000.
	publishValidated(b, types.Signal{
		ID: "sig00006", Market: "trump-fed-chair", Direction: types.DirectionBuyYes,
		Size: 3000, Confidence: 1.0, ExpectedReturn: 0.9,
	})
	require.Len(t, asked, 1)
	require.Len(t, *approved, 1)
	assert.True(t, (*approved)[0].Position.Approved)

	// Denied approvals hold no exposure.
	denyAll := ApproverFunc(func(context.Context, types.Position) bool { return false })
	b2 := bus.New(100)
	gate2 := NewGate(b2, testTradingConfig(), FixedModel{Corr: 0.2, Platform: 0.1}, denyAll, nil)
	gate2.Bind()
	approved2 := captureApproved(b2)
	publishValidated(b2, types.Signal{
		ID: "sig00007", Market: "trump-fed-chair", Direction: types.DirectionBuyYes,
		Size: 3000, Confidence: 1.0, ExpectedReturn: 0.9,
	})
	assert.Empty(t, *approved2)
	assert.Zero(t, gate2.Exposure())
}

func TestConcurrentSignalsRespectExposureLimit(t *testing.T) {
	b := bus.New(100)
	arrived := make(chan struct{}, 4)
	release := make(chan struct{})
	approver := ApproverFunc(func(context.Context, types.Position) bool {
		arrived <- struct{}{}
		<-release
		return true
	})
	gate := NewGate(b, testTradingConfig(), FixedModel{Corr: 0.2, Platform: 0.1}, approver, nil)
	gate.Bind()

	// Four 2500 USD signals race through the gate while the approver holds
	// each one in flight. Only three fit under the 8000 limit; the fourth
	// must be rejected even though nothing has committed yet.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			publishValidated(b, types.Signal{
				ID: fmt.Sprintf("sig001%02d", i), Market: "trump-fed-chair", Direction: types.DirectionBuyYes,
				Size: 2500, Confidence: 1.0, ExpectedReturn: 1.0,
			})
		}(i)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-arrived:
		case <-time.After(2 * time.Second):
			t.Fatal("approver saw fewer than three signals")
		}
	}
	close(release)
	wg.Wait()

	assert.InDelta(t, 7500, gate.Exposure(), 1e-9)
	assert.Len(t, gate.OpenPositions(), 3)
}

func TestDeniedApprovalReleasesReservation(t *testing.T) {
	b := bus.New(100)
	denyAll := ApproverFunc(func(context.Context, types.Position) bool { return false })
	gate := NewGate(b, testTradingConfig(), FixedModel{Corr: 0.2, Platform: 0.1}, denyAll, nil)
	gate.Bind()

	publishValidated(b, types.Signal{
		ID: "sig00011", Market: "trump-fed-chair", Direction: types.DirectionBuyYes,
		Size: 2500, Confidence: 1.0, ExpectedReturn: 1.0,
	})
	assert.Zero(t, gate.Exposure())

	// The freed reservation leaves room for the next signal.
	approved := captureApproved(b)
	gate.approver = ApproverFunc(approveAll)
	publishValidated(b, types.Signal{
		ID: "sig00012", Market: "trump-fed-chair", Direction: types.DirectionBuyYes,
		Size: 2500, Confidence: 1.0, ExpectedReturn: 1.0,
	})
	require.Len(t, *approved, 1)
	assert.InDelta(t, 2500, gate.Exposure(), 1e-9)
}

func TestFailedExecutionReleasesExposure(t *testing.T) {
	b := bus.New(100)
	gate := newTestGate(b, FixedModel{Corr: 0.2, Platform: 0.1}, nil)
	gate.Bind()

	gate.positions.commit(types.Position{SignalID: "sig00008", Size: 1200})
	require.InDelta(t, 1200, gate.Exposure(), 1e-9)

	b.Publish(context.Background(), bus.NewEvent(bus.TypeExecutionFailed, "executor", "execution", types.ExecutionResult{
		SignalID: "sig00008",
		Fill:     types.Fill{Status: types.FillFailed},
	}))
	assert.Zero(t, gate.Exposure())
}

func TestResolutionClosesPosition(t *testing.T) {
	b := bus.New(100)
	gate := newTestGate(b, FixedModel{Corr: 0.2, Platform: 0.1}, nil)
	gate.Bind()

	gate.positions.commit(types.Position{SignalID: "sig00009", Size: 800, OpenedAt: time.Now()})

	b.Publish(context.Background(), bus.NewEvent(bus.TypeResolutionFeedback, "monitor", "monitor", types.Resolution{
		TradeID: "sig00009", Resolved: true, Outcome: "win", PnL: 42,
	}))
	assert.Zero(t, gate.Exposure())
	assert.Empty(t, gate.OpenPositions())
}
