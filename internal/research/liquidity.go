package research

import (
	"context"

	"polyflow/internal/bus"
	"polyflow/internal/types"
)

// LiquidityAnalyzer scores book quality from spread and 24h volume. Thin
// books depress confidence rather than flipping direction, so its insights
// mostly temper what the other analyzers say.
type LiquidityAnalyzer struct {
	maxSpread float64
	minVolume float64
}

func NewLiquidityAnalyzer() *LiquidityAnalyzer {
	return &LiquidityAnalyzer{maxSpread: 0.02, minVolume: 1e5}
}

func (a *LiquidityAnalyzer) Name() string { return "liquidity" }

func (a *LiquidityAnalyzer) Interested(typ bus.EventType) bool {
	return typ == bus.TypePriceUpdate
}

func (a *LiquidityAnalyzer) Analyze(_ context.Context, evt bus.Event) (*types.Insight, bool) {
	pu, ok := evt.Payload.(types.PriceUpdate)
	if !ok || pu.Market == "" {
		return nil, false
	}
	if pu.Spread <= 0 {
		return nil, false
	}

	spreadScore := 1 - pu.Spread/a.maxSpread
	if spreadScore < 0 {
		spreadScore = 0
	}
	volumeScore := 0.5
	if pu.Volume24h > 0 {
		volumeScore = pu.Volume24h / (a.minVolume * 100)
		if volumeScore > 1 {
			volumeScore = 1
		}
	}
	confidence := 0.5*spreadScore + 0.5*volumeScore

	// A liquid book is mildly supportive, an illiquid one a mild warning.
	sentiment := 0.2
	if confidence < 0.3 {
		sentiment = -0.2
	}
	return &types.Insight{
		Kind:       types.InsightLiquidity,
		Market:     pu.Market,
		Sentiment:  sentiment,
		Confidence: confidence,
	}, true
}
