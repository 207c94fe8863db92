package types

import "time"

type FillStatus string

const (
	FillPending FillStatus = "PENDING"
	FillFilled  FillStatus = "FILLED"
	FillPartial FillStatus = "PARTIAL"
	FillFailed  FillStatus = "FAILED"
)

// Terminal reports whether no further fill progress is possible.
func (s FillStatus) Terminal() bool { return s != FillPending }

// Fill is the outcome of simulated price discovery for one gated position.
type Fill struct {
	OrderID    string     `json:"order_id"`
	Status     FillStatus `json:"status"`
	FilledSize float64    `json:"filled_size"`
	Price      float64    `json:"price"`
	Slippage   float64    `json:"slippage"`
	Fees       float64    `json:"fees"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ExecutionResult pairs a fill with its originating position for the risk
// gate and the audit trail.
type ExecutionResult struct {
	SignalID string   `json:"signal_id"`
	Fill     Fill     `json:"fill"`
	Position Position `json:"position"`
}

// TradeExecuted notifies monitoring of a completed trade, carrying the
// upstream signal for attribution.
type TradeExecuted struct {
	Fill   Fill   `json:"trade"`
	Signal Signal `json:"signal"`
}

// Resolution is the realized outcome of an executed trade.
type Resolution struct {
	TradeID    string    `json:"trade_id"`
	Resolved   bool      `json:"resolved"`
	Outcome    string    `json:"outcome"`
	FinalPrice float64   `json:"final_price"`
	PnL        float64   `json:"pnl"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// DriftAlert requests retraining when rolling performance degrades.
type DriftAlert struct {
	WinRate float64 `json:"win_rate"`
	Action  string  `json:"action"`
}

// StrategyParams are the tunables adjusted by strategy evolution and
// consumed at the ingestion boundary, closing the feedback cycle.
type StrategyParams struct {
	SentimentThreshold     float64 `json:"sentiment_threshold"`
	PositionSizeMultiplier float64 `json:"position_size_multiplier"`
	RiskTolerance          string  `json:"risk_tolerance"`
}

// StrategyUpdate carries evolved parameters back to ingestion.
type StrategyUpdate struct {
	PatternsIdentified int            `json:"patterns_identified"`
	Params             StrategyParams `json:"parameter_adjustments"`
	GeneratedAt        time.Time      `json:"timestamp"`
}
