package model

import (
	"time"

	"gorm.io/datatypes"
)

// TradeRecordModel is one executed trade in the journal.
type TradeRecordModel struct {
	ID              int64          `gorm:"column:id;primaryKey"`
	SignalID        string         `gorm:"column:signal_id;uniqueIndex"`
	Market          string         `gorm:"column:market;index"`
	Direction       string         `gorm:"column:direction"`
	Size            float64        `gorm:"column:size"`
	Price           float64        `gorm:"column:price"`
	Slippage        float64        `gorm:"column:slippage"`
	Fees            float64        `gorm:"column:fees"`
	Confidence      float64        `gorm:"column:confidence"`
	AttributionJSON datatypes.JSON `gorm:"column:attribution_json;type:TEXT"`
	ExecutedAt      time.Time      `gorm:"column:executed_at;index"`
}

func (TradeRecordModel) TableName() string { return "trades" }

// ResolutionModel is the realized outcome of a journaled trade.
type ResolutionModel struct {
	ID         int64     `gorm:"column:id;primaryKey"`
	SignalID   string    `gorm:"column:signal_id;index"`
	Outcome    string    `gorm:"column:outcome"`
	FinalPrice float64   `gorm:"column:final_price"`
	PnL        float64   `gorm:"column:pnl"`
	ResolvedAt time.Time `gorm:"column:resolved_at;index"`
}

func (ResolutionModel) TableName() string { return "resolutions" }
