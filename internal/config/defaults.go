package config

import "strings"

const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9980"

	defaultTradingMode       = "paper"
	defaultPortfolioValue    = 10000.0
	defaultMaxPositionSize   = 5000.0
	defaultMaxPortfolioRisk  = 0.1
	defaultKellyFraction     = 0.25
	defaultApprovalThreshold = 2000.0
	defaultApprovalDelay     = 2
	defaultHedgeThreshold    = 3000.0
	defaultHedgeRatio        = 0.2
	defaultAssumedVolatility = 0.15
	defaultVaRQuantile       = 1.645 // 95% one-sided

	defaultBusHistoryCap = 10000

	defaultPriceInterval   = 5
	defaultNewsInterval    = 60
	defaultSocialInterval  = 30
	defaultWhaleInterval   = 45
	defaultRatePerSecond   = 1.0
	defaultBackoffMax      = 300
	defaultNewsfeedTimeout = 30

	defaultSentimentThreshold = 0.5
	defaultSignalSize         = 1000.0
	defaultExpectedReturn     = 0.05
	defaultPendingTTL         = 300
	defaultSweepInterval      = 60
	defaultChallengeDelayMs   = 500
	defaultBacktestDelayMs    = 500

	defaultSnipeEpsilon  = 0.002
	defaultMaxSlippage   = 0.001
	defaultFeeRate       = 0.002
	defaultFillThreshold = 0.9

	defaultMemoryCap          = 10000
	defaultResolutionInterval = 60
	defaultDriftInterval      = 120
	defaultEvolutionInterval  = 300
	defaultEvolutionMinGap    = 300
	defaultDriftWindow        = 20
	defaultDriftMinTrades     = 5
	defaultDriftThreshold     = 0.5
	defaultCalibrationTol     = 0.01
	defaultPatternThreshold   = 5
	defaultMemoryScanDepth    = 100
)

func (c *Config) applyDefaults() {
	c.App.applyDefaults()
	c.Trading.applyDefaults()
	c.Bus.applyDefaults()
	c.Markets.applyDefaults()
	c.Ingestion.applyDefaults()
	c.Signal.applyDefaults()
	c.Execution.applyDefaults()
	c.Monitor.applyDefaults()
}

func (a *AppConfig) applyDefaults() {
	if strings.TrimSpace(a.Env) == "" {
		a.Env = defaultAppEnv
	}
	if strings.TrimSpace(a.LogLevel) == "" {
		a.LogLevel = defaultAppLogLevel
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		a.HTTPAddr = defaultAppHTTPAddr
	}
}

func (t *TradingConfig) applyDefaults() {
	if strings.TrimSpace(t.Mode) == "" {
		t.Mode = defaultTradingMode
	}
	if t.PortfolioValue <= 0 {
		t.PortfolioValue = defaultPortfolioValue
	}
	if t.MaxPositionSize <= 0 {
		t.MaxPositionSize = defaultMaxPositionSize
	}
	if t.MaxPortfolioRisk <= 0 {
		t.MaxPortfolioRisk = defaultMaxPortfolioRisk
	}
	if t.KellyFraction <= 0 {
		t.KellyFraction = defaultKellyFraction
	}
	if t.ApprovalThresholdUSD <= 0 {
		t.ApprovalThresholdUSD = defaultApprovalThreshold
	}
	if t.ApprovalDelaySeconds <= 0 {
		t.ApprovalDelaySeconds = defaultApprovalDelay
	}
	if t.HedgeThresholdUSD <= 0 {
		t.HedgeThresholdUSD = defaultHedgeThreshold
	}
	if t.HedgeRatio <= 0 {
		t.HedgeRatio = defaultHedgeRatio
	}
	if t.AssumedVolatility <= 0 {
		t.AssumedVolatility = defaultAssumedVolatility
	}
	if t.VaRConfidenceQuantile <= 0 {
		t.VaRConfidenceQuantile = defaultVaRQuantile
	}
}

func (b *BusConfig) applyDefaults() {
	if b.HistoryCap <= 0 {
		b.HistoryCap = defaultBusHistoryCap
	}
}

func (m *MarketsConfig) applyDefaults() {
	if len(m.Symbols) == 0 && strings.TrimSpace(m.Path) == "" {
		m.Symbols = []string{"trump-fed-chair"}
	}
}

func (i *IngestionConfig) applyDefaults() {
	if i.PriceIntervalSeconds <= 0 {
		i.PriceIntervalSeconds = defaultPriceInterval
	}
	if i.NewsIntervalSeconds <= 0 {
		i.NewsIntervalSeconds = defaultNewsInterval
	}
	if i.SocialIntervalSeconds <= 0 {
		i.SocialIntervalSeconds = defaultSocialInterval
	}
	if i.WhaleIntervalSeconds <= 0 {
		i.WhaleIntervalSeconds = defaultWhaleInterval
	}
	if i.RatePerSecond <= 0 {
		i.RatePerSecond = defaultRatePerSecond
	}
	if i.BackoffMaxSeconds <= 0 {
		i.BackoffMaxSeconds = defaultBackoffMax
	}
	if i.Newsfeed.TimeoutSeconds <= 0 {
		i.Newsfeed.TimeoutSeconds = defaultNewsfeedTimeout
	}
}

func (s *SignalConfig) applyDefaults() {
	if s.SentimentThreshold <= 0 {
		s.SentimentThreshold = defaultSentimentThreshold
	}
	if s.DefaultSizeUSD <= 0 {
		s.DefaultSizeUSD = defaultSignalSize
	}
	if s.ExpectedReturn <= 0 {
		s.ExpectedReturn = defaultExpectedReturn
	}
	if s.PendingTTLSeconds <= 0 {
		s.PendingTTLSeconds = defaultPendingTTL
	}
	if s.SweepIntervalSeconds <= 0 {
		s.SweepIntervalSeconds = defaultSweepInterval
	}
	if s.ChallengeDelayMs <= 0 {
		s.ChallengeDelayMs = defaultChallengeDelayMs
	}
	if s.BacktestDelayMs <= 0 {
		s.BacktestDelayMs = defaultBacktestDelayMs
	}
}

func (e *ExecutionConfig) applyDefaults() {
	if e.SnipeEpsilon <= 0 {
		e.SnipeEpsilon = defaultSnipeEpsilon
	}
	if e.MaxSlippage <= 0 {
		e.MaxSlippage = defaultMaxSlippage
	}
	if e.FeeRate <= 0 {
		e.FeeRate = defaultFeeRate
	}
	if e.FillThreshold <= 0 {
		e.FillThreshold = defaultFillThreshold
	}
}

func (m *MonitorConfig) applyDefaults() {
	if m.MemoryCap <= 0 {
		m.MemoryCap = defaultMemoryCap
	}
	if m.ResolutionIntervalSeconds <= 0 {
		m.ResolutionIntervalSeconds = defaultResolutionInterval
	}
	if m.DriftIntervalSeconds <= 0 {
		m.DriftIntervalSeconds = defaultDriftInterval
	}
	if m.EvolutionIntervalSeconds <= 0 {
		m.EvolutionIntervalSeconds = defaultEvolutionInterval
	}
	if m.EvolutionMinIntervalSeconds <= 0 {
		m.EvolutionMinIntervalSeconds = defaultEvolutionMinGap
	}
	if m.DriftWindow <= 0 {
		m.DriftWindow = defaultDriftWindow
	}
	if m.DriftMinTrades <= 0 {
		m.DriftMinTrades = defaultDriftMinTrades
	}
	if m.DriftThreshold <= 0 {
		m.DriftThreshold = defaultDriftThreshold
	}
	if m.CalibrationTolerance <= 0 {
		m.CalibrationTolerance = defaultCalibrationTol
	}
	if m.PatternThreshold <= 0 {
		m.PatternThreshold = defaultPatternThreshold
	}
	if m.MemoryScanDepth <= 0 {
		m.MemoryScanDepth = defaultMemoryScanDepth
	}
}
