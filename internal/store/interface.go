package store

import (
	"context"

	"polyflow/internal/store/model"
)

// Journal persists executed trades and their eventual resolutions.
type Journal interface {
	SaveTrade(ctx context.Context, rec model.TradeRecordModel) error
	SaveResolution(ctx context.Context, rec model.ResolutionModel) error
	RecentTrades(ctx context.Context, limit int) ([]model.TradeRecordModel, error)
	RecentResolutions(ctx context.Context, limit int) ([]model.ResolutionModel, error)
	Close() error
}
