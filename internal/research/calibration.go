package research

import (
	"context"
	"sync"

	"polyflow/internal/bus"
	"polyflow/internal/types"
)

// CalibrationAnalyzer tracks a slow exponential fair-value estimate per
// market and flags quotes that drift away from it. A mispriced quote is an
// opportunity in the direction of the correction.
type CalibrationAnalyzer struct {
	tolerance float64
	alpha     float64

	mu   sync.Mutex
	fair map[string]float64
}

func NewCalibrationAnalyzer(tolerance float64) *CalibrationAnalyzer {
	if tolerance <= 0 {
		tolerance = 0.01
	}
	return &CalibrationAnalyzer{
		tolerance: tolerance,
		alpha:     0.05,
		fair:      make(map[string]float64),
	}
}

func (a *CalibrationAnalyzer) Name() string { return "calibration" }

func (a *CalibrationAnalyzer) Interested(typ bus.EventType) bool {
	return typ == bus.TypePriceUpdate
}

func (a *CalibrationAnalyzer) Analyze(_ context.Context, evt bus.Event) (*types.Insight, bool) {
	pu, ok := evt.Payload.(types.PriceUpdate)
	if !ok || pu.Market == "" || pu.Price <= 0 {
		return nil, false
	}

	a.mu.Lock()
	fair, seen := a.fair[pu.Market]
	if !seen {
		a.fair[pu.Market] = pu.Price
		a.mu.Unlock()
		return nil, false
	}
	fair = fair + a.alpha*(pu.Price-fair)
	a.fair[pu.Market] = fair
	a.mu.Unlock()

	err := pu.Price - fair
	if abs(err) <= a.tolerance {
		return nil, false
	}

	// Price above the estimate means the quote should revert down.
	sentiment := -0.4
	if err < 0 {
		sentiment = 0.4
	}
	confidence := abs(err) / (a.tolerance * 4)
	if confidence > 0.9 {
		confidence = 0.9
	}
	return &types.Insight{
		Kind:       types.InsightCalibration,
		Market:     pu.Market,
		Sentiment:  sentiment,
		Confidence: confidence,
	}, true
}
