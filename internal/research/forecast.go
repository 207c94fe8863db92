package research

import (
	"context"
	"math"
	"sync"

	talib "github.com/markcheno/go-talib"

	"polyflow/internal/bus"
	"polyflow/internal/types"
)

const (
	forecastHistoryCap = 200
	forecastMinPoints  = 30
	emaPeriod          = 10
	rsiPeriod          = 14
)

// ForecastAnalyzer keeps a per-market price history and reads EMA direction
// plus RSI extremes off it. Stays silent until enough ticks accumulated.
type ForecastAnalyzer struct {
	mu     sync.Mutex
	closes map[string][]float64
}

func NewForecastAnalyzer() *ForecastAnalyzer {
	return &ForecastAnalyzer{closes: make(map[string][]float64)}
}

func (a *ForecastAnalyzer) Name() string { return "forecast" }

func (a *ForecastAnalyzer) Interested(typ bus.EventType) bool {
	return typ == bus.TypePriceUpdate
}

func (a *ForecastAnalyzer) Analyze(_ context.Context, evt bus.Event) (*types.Insight, bool) {
	pu, ok := evt.Payload.(types.PriceUpdate)
	if !ok || pu.Market == "" || pu.Price <= 0 {
		return nil, false
	}

	a.mu.Lock()
	hist := append(a.closes[pu.Market], pu.Price)
	if len(hist) > forecastHistoryCap {
		hist = hist[len(hist)-forecastHistoryCap:]
	}
	a.closes[pu.Market] = hist
	closes := make([]float64, len(hist))
	copy(closes, hist)
	a.mu.Unlock()

	if len(closes) < forecastMinPoints {
		return nil, false
	}

	ema := talib.Ema(closes, emaPeriod)
	rsi := talib.Rsi(closes, rsiPeriod)
	lastEma := ema[len(ema)-1]
	lastRsi := rsi[len(rsi)-1]
	if math.IsNaN(lastRsi) {
		// Flat history has no gains or losses to ratio.
		lastRsi = 50
	}

	forecast := "sideways"
	sentiment := 0.0
	switch {
	case pu.Price > lastEma && lastRsi < 70:
		forecast = "up"
		sentiment = 0.6
	case pu.Price < lastEma && lastRsi > 30:
		forecast = "down"
		sentiment = -0.6
	case lastRsi >= 70:
		forecast = "overbought"
		sentiment = -0.3
	case lastRsi <= 30:
		forecast = "oversold"
		sentiment = 0.3
	}

	// RSI distance from neutral is the conviction proxy.
	confidence := 0.4 + 0.4*abs(lastRsi-50)/50
	return &types.Insight{
		Kind:       types.InsightForecast,
		Market:     pu.Market,
		Sentiment:  sentiment,
		Forecast:   forecast,
		Confidence: confidence,
	}, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
