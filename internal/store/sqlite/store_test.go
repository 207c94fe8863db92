package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"polyflow/internal/store/model"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	s, err := NewSqliteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveTradeIsIdempotentPerSignal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := model.TradeRecordModel{
		SignalID:        "sig00001",
		Market:          "trump-fed-chair",
		Direction:       "BUY_YES",
		Size:            1000,
		Price:           0.944,
		Fees:            2,
		Confidence:      0.8,
		AttributionJSON: datatypes.JSON(`{"sentiment":0.8}`),
		ExecutedAt:      time.Now(),
	}
	require.NoError(t, s.SaveTrade(ctx, rec))

	rec.Price = 0.95
	require.NoError(t, s.SaveTrade(ctx, rec))

	trades, err := s.RecentTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.InDelta(t, 0.95, trades[0].Price, 1e-9)
}

func TestRecentTradesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveTrade(ctx, model.TradeRecordModel{
			SignalID:   string(rune('a'+i)) + "0000001",
			Market:     "m",
			ExecutedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	trades, err := s.RecentTrades(ctx, 3)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.True(t, trades[0].ExecutedAt.After(trades[1].ExecutedAt))
	assert.True(t, trades[1].ExecutedAt.After(trades[2].ExecutedAt))
}

func TestResolutionsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveResolution(ctx, model.ResolutionModel{
		SignalID: "sig00001", Outcome: "win", FinalPrice: 1.0, PnL: 55, ResolvedAt: time.Now(),
	}))
	res, err := s.RecentResolutions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "win", res[0].Outcome)
	assert.InDelta(t, 55, res[0].PnL, 1e-9)
}
