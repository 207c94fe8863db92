package config

// Config is the top-level configuration carrier for the pipeline.
type Config struct {
	App       AppConfig       `toml:"app"`
	Trading   TradingConfig   `toml:"trading"`
	Bus       BusConfig       `toml:"bus"`
	Markets   MarketsConfig   `toml:"markets"`
	Ingestion IngestionConfig `toml:"ingestion"`
	Signal    SignalConfig    `toml:"signal"`
	Execution ExecutionConfig `toml:"execution"`
	Monitor   MonitorConfig   `toml:"monitor"`
	Store     StoreConfig     `toml:"store"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// TradingConfig holds the portfolio-level risk surface.
type TradingConfig struct {
	Mode                  string  `toml:"mode"` // "paper" | "live"
	PortfolioValue        float64 `toml:"portfolio_value"`
	MaxPositionSize       float64 `toml:"max_position_size"`
	MaxPortfolioRisk      float64 `toml:"max_portfolio_risk"`
	KellyFraction         float64 `toml:"kelly_fraction"`
	ApprovalThresholdUSD  float64 `toml:"approval_threshold_usd"`
	ApprovalDelaySeconds  int     `toml:"approval_delay_seconds"`
	HedgeThresholdUSD     float64 `toml:"hedge_threshold_usd"`
	HedgeRatio            float64 `toml:"hedge_ratio"`
	AssumedVolatility     float64 `toml:"assumed_volatility"`
	VaRConfidenceQuantile float64 `toml:"var_confidence_quantile"`
}

func (t TradingConfig) Live() bool { return t.Mode == "live" }

type BusConfig struct {
	HistoryCap int `toml:"history_cap"`
}

// MarketsConfig points at the watchlist of market slugs; Symbols is the
// static fallback when no watchlist file is configured.
type MarketsConfig struct {
	Path    string   `toml:"path"`
	Symbols []string `toml:"symbols"`
}

type IngestionConfig struct {
	PriceIntervalSeconds  int     `toml:"price_interval_seconds"`
	NewsIntervalSeconds   int     `toml:"news_interval_seconds"`
	SocialIntervalSeconds int     `toml:"social_interval_seconds"`
	WhaleIntervalSeconds  int     `toml:"whale_interval_seconds"`
	RatePerSecond         float64 `toml:"rate_per_second"`
	BackoffMaxSeconds     int     `toml:"backoff_max_seconds"`

	Newsfeed NewsfeedConfig `toml:"newsfeed"`
	Binance  BinanceConfig  `toml:"binance"`
}

// NewsfeedConfig describes the external news API boundary.
type NewsfeedConfig struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// BinanceConfig enables the live price source in mode=live.
type BinanceConfig struct {
	Enabled     bool     `toml:"enabled"`
	RESTBaseURL string   `toml:"rest_base_url"`
	Symbols     []string `toml:"symbols"`
}

type SignalConfig struct {
	SentimentThreshold   float64 `toml:"sentiment_threshold"`
	DefaultSizeUSD       float64 `toml:"default_size_usd"`
	ExpectedReturn       float64 `toml:"expected_return"`
	PendingTTLSeconds    int     `toml:"pending_ttl_seconds"`
	SweepIntervalSeconds int     `toml:"sweep_interval_seconds"`
	ChallengeDelayMs     int     `toml:"challenge_delay_ms"`
	BacktestDelayMs      int     `toml:"backtest_delay_ms"`
}

type ExecutionConfig struct {
	SnipeEpsilon  float64 `toml:"snipe_epsilon"`
	MaxSlippage   float64 `toml:"max_slippage"`
	FeeRate       float64 `toml:"fee_rate"`
	FillThreshold float64 `toml:"fill_threshold"`
}

type MonitorConfig struct {
	MemoryCap                   int     `toml:"memory_cap"`
	ResolutionIntervalSeconds   int     `toml:"resolution_interval_seconds"`
	DriftIntervalSeconds        int     `toml:"drift_interval_seconds"`
	EvolutionIntervalSeconds    int     `toml:"evolution_interval_seconds"`
	EvolutionMinIntervalSeconds int     `toml:"evolution_min_interval_seconds"`
	DriftWindow                 int     `toml:"drift_window"`
	DriftMinTrades              int     `toml:"drift_min_trades"`
	DriftThreshold              float64 `toml:"drift_threshold"`
	CalibrationTolerance        float64 `toml:"calibration_tolerance"`
	PatternThreshold            int     `toml:"pattern_threshold"`
	MemoryScanDepth             int     `toml:"memory_scan_depth"`
}

// StoreConfig locates the on-disk stores. Empty paths disable them.
type StoreConfig struct {
	JournalPath string `toml:"journal_path"`
	AuditPath   string `toml:"audit_path"`
}
