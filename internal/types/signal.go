package types

import "time"

type Direction string

const (
	DirectionBuyYes  Direction = "BUY_YES"
	DirectionBuyNo   Direction = "BUY_NO"
	DirectionSellYes Direction = "SELL_YES"
	DirectionSellNo  Direction = "SELL_NO"
)

// IsBuy reports whether the direction benefits from a lower entry price.
func (d Direction) IsBuy() bool {
	return d == DirectionBuyYes || d == DirectionBuyNo
}

// Signal is a directional trade proposal emitted by signal generation,
// prior to risk gating.
type Signal struct {
	ID             string    `json:"id"`
	Market         string    `json:"market"`
	Direction      Direction `json:"direction"`
	Size           float64   `json:"size"`
	Confidence     float64   `json:"confidence"`
	ExpectedReturn float64   `json:"expected_return"`
	CreatedAt      time.Time `json:"created_at"`
}

// InsightKind tags a research insight with the analyzer family producing it.
type InsightKind string

const (
	InsightSentiment   InsightKind = "sentiment_analysis"
	InsightForecast    InsightKind = "price_forecast"
	InsightCalibration InsightKind = "calibration_check"
	InsightLiquidity   InsightKind = "liquidity_analysis"
)

// Insight is the scored output of one research analyzer for one raw event.
type Insight struct {
	Agent      string      `json:"agent"`
	Kind       InsightKind `json:"kind"`
	Market     string      `json:"market"`
	Sentiment  float64     `json:"sentiment"`
	Forecast   string      `json:"forecast,omitempty"`
	Confidence float64     `json:"confidence"`
}

// Confirmation is the completion payload of one validation branch
// (challenge or backtest) for a pending signal.
type Confirmation struct {
	SignalID       string `json:"signal_id"`
	RiskAssessment string `json:"risk_assessment,omitempty"`
	Valid          bool   `json:"valid"`
}

// ValidatedSignal is published exactly once per signal id when both
// confirmation branches completed.
type ValidatedSignal struct {
	Signal Signal `json:"signal"`
	Status string `json:"status"`
}
