package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyflow/internal/bus"
	"polyflow/internal/config"
	"polyflow/internal/ingestion"
	"polyflow/internal/types"
)

func newTestService(t *testing.T, b *bus.Bus) *Service {
	t.Helper()
	svc := NewService(b, config.SignalConfig{
		DefaultSizeUSD:    1000,
		ExpectedReturn:    0.05,
		PendingTTLSeconds: 300,
	}, ingestion.NewTunables(0.5))
	svc.sleepFn = func(context.Context, time.Duration) bool { return true }
	svc.Bind()
	return svc
}

func publishInsight(b *bus.Bus, sentiment, confidence float64) {
	b.Publish(context.Background(), bus.NewEvent(bus.TypeResearchInsight, "sentiment", "research", types.Insight{
		Agent: "sentiment", Kind: types.InsightSentiment, Market: "trump-fed-chair",
		Sentiment: sentiment, Confidence: confidence,
	}))
}

func TestInsightAboveThresholdValidatesExactlyOnce(t *testing.T) {
	b := bus.New(1000)
	svc := newTestService(t, b)

	var validated []types.ValidatedSignal
	b.Subscribe(bus.TypeValidatedSignal, "test.capture", func(_ context.Context, evt bus.Event) error {
		validated = append(validated, evt.Payload.(types.ValidatedSignal))
		return nil
	})

	// The synchronous bus runs the whole cascade inside this Publish:
	// insight, alpha signal, both confirmations, and the join.
	publishInsight(b, 0.8, 0.8)

	require.Len(t, validated, 1)
	assert.Equal(t, types.DirectionBuyYes, validated[0].Signal.Direction)
	assert.Equal(t, "validated", validated[0].Status)
	assert.InDelta(t, 1000, validated[0].Signal.Size, 1e-9)
	assert.Len(t, validated[0].Signal.ID, 8)
	assert.Equal(t, 0, svc.PendingCount())
}

func TestInsightBelowThresholdIgnored(t *testing.T) {
	b := bus.New(1000)
	svc := newTestService(t, b)

	publishInsight(b, 0.5, 0.8) // boundary value, strictly-greater required
	publishInsight(b, 0.3, 0.9)

	for _, evt := range b.History() {
		assert.NotEqual(t, bus.TypeAlphaSignal, evt.Type)
	}
	assert.Equal(t, 0, svc.PendingCount())
}

func TestStrongNegativeSentimentBuysNo(t *testing.T) {
	b := bus.New(1000)
	newTestService(t, b)

	var validated []types.ValidatedSignal
	b.Subscribe(bus.TypeValidatedSignal, "test.capture", func(_ context.Context, evt bus.Event) error {
		validated = append(validated, evt.Payload.(types.ValidatedSignal))
		return nil
	})

	publishInsight(b, -0.8, 0.7)
	require.Len(t, validated, 1)
	assert.Equal(t, types.DirectionBuyNo, validated[0].Signal.Direction)
}

func TestJoinIsOrderIndependent(t *testing.T) {
	for name, order := range map[string][]branch{
		"challenge first": {branchChallenge, branchBacktest},
		"backtest first":  {branchBacktest, branchChallenge},
	} {
		t.Run(name, func(t *testing.T) {
			table := newPendingTable(time.Minute)
			sig := types.Signal{ID: "abcd1234", Size: 1000}
			table.add(sig, time.Now())

			_, complete := table.mark(sig.ID, order[0])
			assert.False(t, complete)
			got, complete := table.mark(sig.ID, order[1])
			require.True(t, complete)
			assert.Equal(t, sig, got)

			// Late duplicates find nothing.
			_, complete = table.mark(sig.ID, order[0])
			assert.False(t, complete)
		})
	}
}

func TestDuplicateConfirmationDoesNotRevalidate(t *testing.T) {
	b := bus.New(1000)
	newTestService(t, b)

	var count int
	b.Subscribe(bus.TypeValidatedSignal, "test.capture", func(context.Context, bus.Event) error {
		count++
		return nil
	})

	publishInsight(b, 0.9, 0.8)
	require.Equal(t, 1, count)

	// Replay the recorded confirmations; the join must stay silent.
	for _, evt := range b.History() {
		if evt.Type == bus.TypeChallengeComplete || evt.Type == bus.TypeBacktestComplete {
			b.Publish(context.Background(), evt)
		}
	}
	assert.Equal(t, 1, count)
}

func TestUnknownSignalConfirmationIsNoop(t *testing.T) {
	table := newPendingTable(time.Minute)
	_, complete := table.mark("missing", branchChallenge)
	assert.False(t, complete)
}

func TestSweepExpiresHalfConfirmedSignals(t *testing.T) {
	table := newPendingTable(time.Minute)
	now := time.Now()
	table.add(types.Signal{ID: "old00001"}, now.Add(-2*time.Minute))
	table.add(types.Signal{ID: "new00001"}, now)
	table.mark("old00001", branchChallenge)

	removed := table.sweep(now)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, table.len())

	// The expired id can never validate.
	_, complete := table.mark("old00001", branchBacktest)
	assert.False(t, complete)
}

func TestSizeFollowsTunablesMultiplier(t *testing.T) {
	b := bus.New(1000)
	tn := ingestion.NewTunables(0.5)
	svc := NewService(b, config.SignalConfig{DefaultSizeUSD: 1000, PendingTTLSeconds: 300}, tn)
	svc.sleepFn = func(context.Context, time.Duration) bool { return true }
	svc.Bind()

	var sizes []float64
	b.Subscribe(bus.TypeValidatedSignal, "test.capture", func(_ context.Context, evt bus.Event) error {
		sizes = append(sizes, evt.Payload.(types.ValidatedSignal).Signal.Size)
		return nil
	})

	publishInsight(b, 0.8, 0.8)
	tn.Apply(types.StrategyParams{SentimentThreshold: 0.6, PositionSizeMultiplier: 1.1})
	publishInsight(b, 0.8, 0.8)

	require.Len(t, sizes, 2)
	assert.InDelta(t, 1000, sizes[0], 1e-9)
	assert.InDelta(t, 1100, sizes[1], 1e-9)
}
