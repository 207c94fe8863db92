package types

import "time"

// Position is created by the risk gate after sizing and mutated only by the
// gate (approval flag) and execution (fill updates).
type Position struct {
	SignalID           string    `json:"signal_id"`
	Market             string    `json:"market"`
	Direction          Direction `json:"direction"`
	Size               float64   `json:"size"`
	EntryPrice         float64   `json:"entry_price"`
	CurrentPrice       float64   `json:"current_price"`
	CorrelationScore   float64   `json:"correlation_score"`
	TailRisk           float64   `json:"tail_risk"`
	NeedsHumanApproval bool      `json:"needs_human_approval"`
	Approved           bool      `json:"approved"`
	Hedged             bool      `json:"hedged"`
	OpenedAt           time.Time `json:"opened_at"`
}

// RiskApproved carries a gated position to execution.
type RiskApproved struct {
	SignalID string   `json:"signal_id"`
	Signal   Signal   `json:"signal"`
	Position Position `json:"position"`
}

// PositionUpdate is published by execution after a fill so the risk gate can
// keep cross-position correlation in view.
type PositionUpdate struct {
	SignalID string  `json:"signal_id"`
	Market   string  `json:"market"`
	Size     float64 `json:"size"`
	Price    float64 `json:"price"`
}
