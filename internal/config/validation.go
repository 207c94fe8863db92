package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Signal.validate(); err != nil {
		return err
	}
	if err := c.Ingestion.validate(); err != nil {
		return err
	}
	if err := c.Monitor.validate(); err != nil {
		return err
	}
	return nil
}

func (t *TradingConfig) validate() error {
	switch t.Mode {
	case "paper", "live":
	default:
		return fmt.Errorf("trading.mode must be paper or live, got %q", t.Mode)
	}
	if t.MaxPortfolioRisk >= 1 {
		return fmt.Errorf("trading.max_portfolio_risk must be a fraction < 1, got %v", t.MaxPortfolioRisk)
	}
	if t.KellyFraction > 1 {
		return fmt.Errorf("trading.kelly_fraction must be <= 1, got %v", t.KellyFraction)
	}
	if t.HedgeRatio >= 1 {
		return fmt.Errorf("trading.hedge_ratio must be a fraction < 1, got %v", t.HedgeRatio)
	}
	if t.MaxPositionSize > t.PortfolioValue {
		return fmt.Errorf("trading.max_position_size (%v) exceeds portfolio_value (%v)", t.MaxPositionSize, t.PortfolioValue)
	}
	return nil
}

func (s *SignalConfig) validate() error {
	if s.SentimentThreshold >= 1 {
		return fmt.Errorf("signal.sentiment_threshold must be < 1, got %v", s.SentimentThreshold)
	}
	if s.PendingTTLSeconds < s.SweepIntervalSeconds {
		return fmt.Errorf("signal.pending_ttl_seconds (%d) must not be below sweep_interval_seconds (%d)",
			s.PendingTTLSeconds, s.SweepIntervalSeconds)
	}
	return nil
}

func (i *IngestionConfig) validate() error {
	if i.Newsfeed.Enabled && strings.TrimSpace(i.Newsfeed.BaseURL) == "" {
		return fmt.Errorf("ingestion.newsfeed.base_url is required when the newsfeed source is enabled")
	}
	if i.Binance.Enabled && len(i.Binance.Symbols) == 0 {
		return fmt.Errorf("ingestion.binance.symbols is required when the binance source is enabled")
	}
	return nil
}

func (m *MonitorConfig) validate() error {
	if m.DriftThreshold >= 1 {
		return fmt.Errorf("monitor.drift_threshold must be a fraction < 1, got %v", m.DriftThreshold)
	}
	if m.DriftMinTrades > m.DriftWindow {
		return fmt.Errorf("monitor.drift_min_trades (%d) cannot exceed drift_window (%d)", m.DriftMinTrades, m.DriftWindow)
	}
	return nil
}
